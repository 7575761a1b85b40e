package ledger

import (
	"errors"
	"time"
)

// Kind labels what a transaction represents.
type Kind string

const (
	KindDeposit          Kind = "deposit"
	KindWithdraw         Kind = "withdraw"
	KindTransfer         Kind = "transfer"
	KindPayout           Kind = "payout"
	KindMembershipPayout Kind = "membership_payout"
)

// Status tracks the settlement state of a transaction. Confirmed and declined
// are terminal: no further mutation besides attaching a transaction hash at
// confirmation time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusFailed    Status = "failed"
)

// Metadata keys used across the service.
const (
	MetaAddress      = "address"
	MetaTier         = "tier"
	MetaDirection    = "direction"
	MetaCounterparty = "counterparty"
	MetaTxHash       = "tx_hash"
	MetaLinkID       = "link_id"
)

// Direction values for the two halves of an internal transfer.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

var (
	// ErrNotFound indicates no transaction matches the identifier.
	ErrNotFound = errors.New("transaction not found")

	// ErrAlreadySettled occurs when a status transition targets a transaction
	// that is no longer in the expected source state.
	ErrAlreadySettled = errors.New("transaction already settled")
)

// Transaction is one append-style ledger record. Ledger rows are audit
// history; the live balance source is the per-coin balance map on the user.
type Transaction struct {
	ID        string
	UserID    string
	Kind      Kind
	Coin      string
	Amount    float64
	Status    Status
	Metadata  map[string]string
	CreatedAt time.Time
}
