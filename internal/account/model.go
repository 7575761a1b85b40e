package account

import "time"

// User represents a registered customer holding per-coin balances.
type User struct {
	ID                 string
	Email              string
	Username           string
	PasswordHash       []byte
	Bio                string
	ActiveMembershipID string
	CreatedAt          time.Time
}
