package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a ShowPayout.
type PayoutStatus string

const (
	PayoutDraft    PayoutStatus = "draft"
	PayoutApproved PayoutStatus = "approved"
	PayoutPaid     PayoutStatus = "paid"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid payout status transition")

// Valid reports whether s is a known status.
func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutDraft, PayoutApproved, PayoutPaid:
		return true
	}
	return false
}

// CanEdit reports whether line items may be (re)calculated in this state.
func (s PayoutStatus) CanEdit() bool { return s == PayoutDraft }

// CheckTransition validates a normal-flow transition:
// draft -> approved -> paid, and approved -> draft.
// Leaving paid requires an explicit unwind and is not accepted here.
func (s PayoutStatus) CheckTransition(to PayoutStatus) error {
	switch {
	case s == PayoutDraft && to == PayoutApproved,
		s == PayoutApproved && to == PayoutPaid,
		s == PayoutApproved && to == PayoutDraft:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}

// ShowPayout is the payout record for one show. There is at most one per show.
type ShowPayout struct {
	// ID is the unique identifier for the payout (UUID format).
	ID string

	// ShowID is the show this payout belongs to (unique).
	ShowID string

	Status PayoutStatus

	// SchemeID and SchemeVersion record which scheme produced the line items.
	// Both are empty when the rules came from OverrideRules or the caller.
	SchemeID      string
	SchemeVersion int

	// OverrideRules is an optional per-show rules document (JSON) that replaces
	// the scheme's rules.
	OverrideRules []byte

	// TotalPayout is the cached sum of line item amounts.
	TotalPayout decimal.Decimal

	// Version increments on every write and guards concurrent recalculation.
	Version int64

	CalculatedAt int64
	ApprovedAt   int64
	PaidAt       int64
	CreatedAt    int64
	UpdatedAt    int64
}

// PaymentStatus tracks payment of an individual line item.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// LineItem is one payee's computed amount within a ShowPayout.
type LineItem struct {
	ID           string
	ShowPayoutID string

	// Payee is a NamedPayee or a GuestPayee, never both.
	Payee Payee

	// Position is the roster order of the line item.
	Position int

	// Amount is the computed payout (>= 0), rounded to cents.
	Amount decimal.Decimal

	// AdvanceDeduction is the amount withheld to recover advances.
	AdvanceDeduction decimal.Decimal

	// Details is the audit breakdown of how Amount was computed.
	Details CalculationDetails

	ManuallyPaid      bool
	PaymentMethod     string
	PayoutStatus      PaymentStatus
	PayoutReferenceID string
	PaidAt            int64
}

// NetAmount is what is owed to the payee after advance recovery.
func (li *LineItem) NetAmount() decimal.Decimal {
	return li.Amount.Sub(li.AdvanceDeduction)
}

// CalculationDetails records how a line item amount was derived.
// It is stored as JSON and must round-trip byte-for-byte for identical inputs.
type CalculationDetails struct {
	Method             string            `json:"method"`
	Inputs             map[string]string `json:"inputs"`
	Formula            string            `json:"formula"`
	RoundingAdjustment string            `json:"rounding_adjustment,omitempty"`
	Override           *OverrideDetails  `json:"override,omitempty"`
	Advances           []AdvanceDetail   `json:"advances,omitempty"`
}

// OverrideDetails records a performer override that replaced the computed amount.
type OverrideDetails struct {
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	ComputedAmount string `json:"computed_amount"`
}

// AdvanceDetail records one advance recovered from a line item.
type AdvanceDetail struct {
	AdvanceID string `json:"advance_id"`
	Amount    string `json:"amount"`
}

// PayoutEvent is an append-only audit record of a status change.
type PayoutEvent struct {
	ID           string
	ShowPayoutID string
	FromStatus   PayoutStatus
	ToStatus     PayoutStatus
	Actor        string
	Reason       string
	Total        decimal.Decimal

	// Snapshot is a JSON copy of the line items at the time of the event.
	Snapshot  []byte
	CreatedAt int64
}
