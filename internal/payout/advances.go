package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/calculator"
	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/storage"
)

// Advances manages the person advance ledger.
type Advances struct {
	deps
}

// NewAdvances creates an Advances backed by store.
func NewAdvances(store storage.Store, opts ...Option) *Advances {
	return &Advances{deps: newDeps(store, opts)}
}

// Create records a new advance. It starts pending with its full amount
// outstanding.
func (a *Advances) Create(ctx context.Context, adv *models.PersonAdvance) error {
	if adv.PersonID == "" || adv.ProductionID == "" {
		return errors.New("advance needs a person and a production")
	}
	if adv.OriginalAmount.Sign() <= 0 {
		return fmt.Errorf("advance amount must be positive, got %s", adv.OriginalAmount)
	}
	adv.OriginalAmount = calculator.RoundMoney(adv.OriginalAmount)
	adv.RemainingBalance = adv.OriginalAmount
	adv.Status = models.AdvancePending

	if err := a.store.CreateAdvance(ctx, adv); err != nil {
		return err
	}
	a.logger.Info("Advance created", "advance_id", adv.ID, "person_id", adv.PersonID,
		"amount", calculator.FormatMoney(adv.OriginalAmount))
	return nil
}

// Apply recovers up to amount of the advance from a line item and returns the
// amount actually applied. It never takes more than the advance's remaining
// balance or the line item's net amount, so a recovery can shrink a line
// item's net to zero but never below it. A non-positive amount or a closed
// advance is a no-op returning zero. Applying the same advance to the same
// line item twice fails with storage.ErrConflict.
//
// The line item's payout must be a draft.
func (a *Advances) Apply(ctx context.Context, advanceID, lineItemID string, amount decimal.Decimal) (decimal.Decimal, error) {
	applied := decimal.Zero
	err := a.store.WithTx(ctx, func(q storage.Queries) error {
		adv, err := q.GetAdvance(ctx, advanceID)
		if err != nil {
			return err
		}
		item, err := q.GetLineItem(ctx, lineItemID)
		if err != nil {
			return err
		}
		if item.Payee.Key() != models.Person(adv.PersonID).Key() {
			return fmt.Errorf("line item %s is not payable to person %s", item.ID, adv.PersonID)
		}
		payout, err := q.GetPayout(ctx, item.ShowPayoutID)
		if err != nil {
			return err
		}
		if !payout.Status.CanEdit() {
			return failf(ReasonAlreadyApproved, "payout %s is %s", payout.ID, payout.Status)
		}

		applied, err = a.apply(ctx, q, adv, item, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return applied, nil
}

// WriteOff stops collection of an outstanding advance. The remaining balance
// is kept for the record.
func (a *Advances) WriteOff(ctx context.Context, advanceID string) (*models.PersonAdvance, error) {
	var adv *models.PersonAdvance
	err := a.store.WithTx(ctx, func(q storage.Queries) error {
		var err error
		adv, err = q.GetAdvance(ctx, advanceID)
		if err != nil {
			return err
		}
		if !adv.Status.Outstanding() {
			return fmt.Errorf("advance %s is %s: %w", adv.ID, adv.Status, ErrAdvanceClosed)
		}
		adv.Status = models.AdvanceWrittenOff
		return q.UpdateAdvance(ctx, adv)
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("Advance written off", "advance_id", adv.ID,
		"remaining", calculator.FormatMoney(adv.RemainingBalance))
	return adv, nil
}

// List returns advances matching filter, oldest first.
func (a *Advances) List(ctx context.Context, filter storage.AdvanceFilter) ([]*models.PersonAdvance, error) {
	return a.store.ListAdvances(ctx, filter)
}

// Recoveries returns what has been recovered against an advance.
func (a *Advances) Recoveries(ctx context.Context, advanceID string) ([]*models.AdvanceRecovery, error) {
	return a.store.ListRecoveries(ctx, advanceID)
}

// apply moves min(amount, remaining balance, line net) from the advance onto
// the line item's deduction and records the recovery.
func (d *deps) apply(ctx context.Context, q storage.Queries, adv *models.PersonAdvance, item *models.LineItem, amount decimal.Decimal) (decimal.Decimal, error) {
	if !adv.Status.Outstanding() || amount.Sign() <= 0 || adv.RemainingBalance.Sign() <= 0 {
		return decimal.Zero, nil
	}
	applied := decimal.Min(amount, adv.RemainingBalance, item.NetAmount())
	if applied.Sign() <= 0 {
		return decimal.Zero, nil
	}

	err := q.CreateRecovery(ctx, &models.AdvanceRecovery{
		AdvanceID:  adv.ID,
		LineItemID: item.ID,
		Amount:     applied,
		CreatedAt:  d.now().Unix(),
	})
	if err != nil {
		return decimal.Zero, err
	}

	adv.RemainingBalance = adv.RemainingBalance.Sub(applied)
	adv.Status = adv.StatusForBalance()
	if err := q.UpdateAdvance(ctx, adv); err != nil {
		return decimal.Zero, err
	}

	item.AdvanceDeduction = item.AdvanceDeduction.Add(applied)
	item.Details.Advances = append(item.Details.Advances, models.AdvanceDetail{
		AdvanceID: adv.ID,
		Amount:    calculator.FormatMoney(applied),
	})
	if err := q.UpdateLineItemDeduction(ctx, item); err != nil {
		return decimal.Zero, err
	}

	d.metrics.ObserveRecovered(applied)
	d.logger.Debug("Advance recovered", "advance_id", adv.ID, "line_item_id", item.ID,
		"amount", calculator.FormatMoney(applied), "remaining", calculator.FormatMoney(adv.RemainingBalance))
	return applied, nil
}

// reverseRecoveries undoes every recovery taken from a payout's line items so
// the items can be replaced.
func (d *deps) reverseRecoveries(ctx context.Context, q storage.Queries, payoutID string) error {
	recoveries, err := q.ListPayoutRecoveries(ctx, payoutID)
	if err != nil {
		return err
	}
	for _, r := range recoveries {
		adv, err := q.GetAdvance(ctx, r.AdvanceID)
		if err != nil {
			return err
		}
		adv.RemainingBalance = adv.RemainingBalance.Add(r.Amount)
		adv.Status = adv.StatusForBalance()
		if err := q.UpdateAdvance(ctx, adv); err != nil {
			return err
		}
		if err := q.DeleteRecovery(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// recoverAdvances applies each Person payee's outstanding advances for the
// show's production, oldest first, against that payee's new line item.
func (d *deps) recoverAdvances(ctx context.Context, q storage.Queries, show *models.Show, items []*models.LineItem) error {
	for _, item := range items {
		if item.Payee.Type() != models.PayeePerson {
			continue
		}
		personID := item.Payee.(models.NamedPayee).ID

		advances, err := q.ListAdvances(ctx, storage.AdvanceFilter{
			PersonID:        personID,
			ProductionID:    show.ProductionID,
			OutstandingOnly: true,
		})
		if err != nil {
			return err
		}
		for _, adv := range advances {
			if adv.ShowID != "" && adv.ShowID != show.ID {
				continue
			}
			if item.NetAmount().Sign() <= 0 {
				break
			}
			if _, err := d.apply(ctx, q, adv, item, item.NetAmount()); err != nil {
				return err
			}
		}
	}
	return nil
}
