package membership

import (
	"errors"
	"time"
)

// Status values for a membership.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ErrNotFound indicates no membership matches the lookup.
var ErrNotFound = errors.New("membership not found")

// Membership tracks a purchased payout plan. DaysPaid never exceeds
// DurationDays; the completion bonus is paid at most once.
type Membership struct {
	ID           string
	UserID       string
	Tier         string
	Status       string
	StartedAt    time.Time
	DurationDays int
	DaysPaid     int
	DailyAmount  float64
	BonusAmount  float64
	BonusPaid    bool
	LastPayout   time.Time
}
