package membership

import "strings"

// Tier is a fixed membership plan: a daily payout for a number of days plus a
// one-time completion bonus, all settled in USD.
type Tier struct {
	Code         string
	DailyAmount  float64
	DurationDays int
	BonusAmount  float64
}

var tiers = map[string]Tier{
	"V1": {Code: "V1", DailyAmount: 10, DurationDays: 5, BonusAmount: 50},
	"V2": {Code: "V2", DailyAmount: 25, DurationDays: 10, BonusAmount: 150},
	"V3": {Code: "V3", DailyAmount: 60, DurationDays: 15, BonusAmount: 400},
	"V4": {Code: "V4", DailyAmount: 150, DurationDays: 20, BonusAmount: 1200},
	"V5": {Code: "V5", DailyAmount: 400, DurationDays: 30, BonusAmount: 3500},
}

// TierByCode looks up a tier by its code, case-insensitively.
func TierByCode(code string) (Tier, bool) {
	tier, ok := tiers[strings.ToUpper(strings.TrimSpace(code))]
	return tier, ok
}
