package models

import "github.com/shopspring/decimal"

// AdvanceStatus is the collection state of a PersonAdvance.
type AdvanceStatus string

const (
	AdvancePending    AdvanceStatus = "pending"
	AdvancePartial    AdvanceStatus = "partial"
	AdvanceSettled    AdvanceStatus = "settled"
	AdvanceWrittenOff AdvanceStatus = "written_off"
)

// Outstanding reports whether the advance can still be recovered.
func (s AdvanceStatus) Outstanding() bool {
	return s == AdvancePending || s == AdvancePartial
}

// PersonAdvance is money paid to a person ahead of a show, recovered later
// from their payouts.
//
// Invariant: OriginalAmount = RemainingBalance + sum of its recoveries.
type PersonAdvance struct {
	ID           string
	PersonID     string
	ProductionID string

	// ShowID restricts recovery to one show's payout. Empty means any show
	// in the production.
	ShowID string

	OriginalAmount   decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           AdvanceStatus
	Note             string

	CreatedAt int64
	UpdatedAt int64
}

// StatusForBalance derives the status from the remaining balance.
// Written-off advances keep their status.
func (a *PersonAdvance) StatusForBalance() AdvanceStatus {
	switch {
	case a.Status == AdvanceWrittenOff:
		return AdvanceWrittenOff
	case a.RemainingBalance.Sign() <= 0:
		return AdvanceSettled
	case a.RemainingBalance.Equal(a.OriginalAmount):
		return AdvancePending
	default:
		return AdvancePartial
	}
}

// AdvanceRecovery links an advance to the line item it was recovered from.
// Unique per (AdvanceID, LineItemID).
type AdvanceRecovery struct {
	ID         string
	AdvanceID  string
	LineItemID string
	Amount     decimal.Decimal
	CreatedAt  int64
}
