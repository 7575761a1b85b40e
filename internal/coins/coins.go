package coins

import "strings"

// Supported asset symbols. USD is the internal settlement unit used for
// membership payouts and can also be held as a plain balance.
const (
	BTC  = "BTC"
	ETH  = "ETH"
	USDT = "USDT"
	BNB  = "BNB"
	ADA  = "ADA"
	USD  = "USD"
)

// All lists every coin a balance can be held in, in display order.
var All = []string{BTC, ETH, USDT, BNB, ADA, USD}

// Normalize maps user input to the canonical symbol form.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsSupported reports whether the (already normalized) symbol is known.
func IsSupported(symbol string) bool {
	for _, c := range All {
		if c == symbol {
			return true
		}
	}
	return false
}
