// Package storage provides abstractions for persistent payout data.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/showpayouts/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrStaleVersion is returned when an optimistic version check fails.
	ErrStaleVersion = errors.New("stale version")

	// ErrInUse is returned when deleting a record that is still referenced.
	ErrInUse = errors.New("in use")
)

// AdvanceFilter selects advances for listing. Empty fields match everything.
type AdvanceFilter struct {
	PersonID     string
	ProductionID string

	// OutstandingOnly restricts the result to pending and partial advances.
	OutstandingOnly bool
}

// Queries is the set of storage operations. The same operations are available
// on the store directly and inside a transaction.
type Queries interface {
	// UpsertShow creates or replaces a show with its financials and roster.
	UpsertShow(ctx context.Context, show *models.Show) error

	// GetShow retrieves a show with its financials and roster.
	GetShow(ctx context.Context, showID string) (*models.Show, error)

	// CreateScheme persists a new scheme. Returns ErrConflict when the name
	// is already used in the production.
	CreateScheme(ctx context.Context, scheme *models.PayoutScheme) error
	GetScheme(ctx context.Context, schemeID string) (*models.PayoutScheme, error)

	// GetDefaultScheme returns the production's default scheme or ErrNotFound.
	GetDefaultScheme(ctx context.Context, productionID string) (*models.PayoutScheme, error)
	ListSchemes(ctx context.Context, productionID string) ([]*models.PayoutScheme, error)

	// UpdateSchemeRules replaces the rules document and increments the version.
	UpdateSchemeRules(ctx context.Context, schemeID string, rules []byte) (*models.PayoutScheme, error)

	// SetDefaultScheme makes schemeID the only default in its production.
	SetDefaultScheme(ctx context.Context, productionID, schemeID string) error

	// DeleteScheme removes a scheme. Returns ErrInUse while a show or payout
	// references it.
	DeleteScheme(ctx context.Context, schemeID string) error

	GetPayout(ctx context.Context, payoutID string) (*models.ShowPayout, error)
	GetPayoutByShow(ctx context.Context, showID string) (*models.ShowPayout, error)

	// CreatePayout inserts a payout. Returns ErrConflict when the show
	// already has one.
	CreatePayout(ctx context.Context, payout *models.ShowPayout) error

	// UpdatePayout writes the payout if its stored version equals
	// expectedVersion, and increments payout.Version. Returns ErrStaleVersion
	// otherwise.
	UpdatePayout(ctx context.Context, payout *models.ShowPayout, expectedVersion int64) error

	// ListLineItems returns a payout's line items in position order.
	ListLineItems(ctx context.Context, payoutID string) ([]*models.LineItem, error)
	GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error)

	// ReplaceLineItems deletes every line item of the payout and inserts items.
	ReplaceLineItems(ctx context.Context, payoutID string, items []*models.LineItem) error

	// UpdateLineItemPayment writes the payment tracking fields.
	UpdateLineItemPayment(ctx context.Context, item *models.LineItem) error

	// UpdateLineItemDeduction writes AdvanceDeduction and Details.
	UpdateLineItemDeduction(ctx context.Context, item *models.LineItem) error

	CreatePayoutEvent(ctx context.Context, event *models.PayoutEvent) error
	ListPayoutEvents(ctx context.Context, payoutID string) ([]*models.PayoutEvent, error)

	CreateAdvance(ctx context.Context, advance *models.PersonAdvance) error
	GetAdvance(ctx context.Context, advanceID string) (*models.PersonAdvance, error)

	// UpdateAdvance writes the remaining balance and status.
	UpdateAdvance(ctx context.Context, advance *models.PersonAdvance) error

	// ListAdvances returns matching advances, oldest first.
	ListAdvances(ctx context.Context, filter AdvanceFilter) ([]*models.PersonAdvance, error)

	// CreateRecovery records an advance recovery. Returns ErrConflict when
	// the (advance, line item) pair already exists.
	CreateRecovery(ctx context.Context, recovery *models.AdvanceRecovery) error

	// DeleteRecovery removes a recovery. The caller restores the advance balance.
	DeleteRecovery(ctx context.Context, recoveryID string) error

	// ListRecoveries returns the recoveries of an advance, oldest first.
	ListRecoveries(ctx context.Context, advanceID string) ([]*models.AdvanceRecovery, error)

	// ListPayoutRecoveries returns every recovery taken from a payout's line items.
	ListPayoutRecoveries(ctx context.Context, payoutID string) ([]*models.AdvanceRecovery, error)
}

// Store is a Queries implementation that can run work atomically.
// This abstraction allows swapping storage backends without changing the
// payout or service layers.
type Store interface {
	Queries

	// WithTx runs fn inside a transaction. The transaction commits if fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	// Close releases any resources held by the store.
	Close() error
}
