package payout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmynk/showpayouts/internal/calculator"
	"github.com/mmynk/showpayouts/internal/lock"
	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/storage"
)

// Approve freezes a draft payout.
func (c *Calculator) Approve(ctx context.Context, payoutID, actor string) (*models.ShowPayout, error) {
	return c.transition(ctx, payoutID, models.PayoutApproved, actor, "", false)
}

// RevertToDraft reopens an approved payout for recalculation.
func (c *Calculator) RevertToDraft(ctx context.Context, payoutID, actor, reason string) (*models.ShowPayout, error) {
	return c.transition(ctx, payoutID, models.PayoutDraft, actor, reason, false)
}

// MarkPaid marks an approved payout and all of its line items paid.
func (c *Calculator) MarkPaid(ctx context.Context, payoutID, actor string) (*models.ShowPayout, error) {
	return c.transition(ctx, payoutID, models.PayoutPaid, actor, "", false)
}

// Unwind moves a paid payout back to draft for a correction. The event log
// keeps a snapshot of what was paid.
func (c *Calculator) Unwind(ctx context.Context, payoutID, actor, reason string) (*models.ShowPayout, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	return c.transition(ctx, payoutID, models.PayoutDraft, actor, reason, true)
}

// Events returns a payout's audit trail, oldest first.
func (c *Calculator) Events(ctx context.Context, payoutID string) ([]*models.PayoutEvent, error) {
	return c.store.ListPayoutEvents(ctx, payoutID)
}

func (c *Calculator) transition(ctx context.Context, payoutID string, to models.PayoutStatus, actor, reason string, unwind bool) (*models.ShowPayout, error) {
	current, err := c.store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	release, err := c.locker.Acquire(ctx, lock.ShowKey(current.ShowID))
	if err != nil {
		return nil, lockError(err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			c.logger.Warn("Failed to release payout lock", "payout_id", payoutID, "error", rerr)
		}
	}()

	var (
		payout *models.ShowPayout
		from   models.PayoutStatus
	)
	err = c.store.WithTx(ctx, func(q storage.Queries) error {
		p, err := q.GetPayout(ctx, payoutID)
		if err != nil {
			return err
		}
		from = p.Status

		if unwind {
			if from != models.PayoutPaid || to != models.PayoutDraft {
				return fmt.Errorf("%w: only paid payouts can be unwound, payout is %s", models.ErrInvalidTransition, from)
			}
		} else if err := from.CheckTransition(to); err != nil {
			return err
		}

		items, err := q.ListLineItems(ctx, p.ID)
		if err != nil {
			return err
		}
		snapshot, err := snapshotLineItems(items)
		if err != nil {
			return err
		}

		ts := c.now().Unix()
		switch to {
		case models.PayoutApproved:
			p.ApprovedAt = ts
		case models.PayoutPaid:
			p.PaidAt = ts
			for _, li := range items {
				if li.PayoutStatus == models.PaymentPaid {
					continue
				}
				li.PayoutStatus = models.PaymentPaid
				li.PaidAt = ts
				if err := q.UpdateLineItemPayment(ctx, li); err != nil {
					return err
				}
			}
		case models.PayoutDraft:
			p.ApprovedAt = 0
			if unwind {
				p.PaidAt = 0
				for _, li := range items {
					li.PayoutStatus = models.PaymentPending
					li.PaidAt = 0
					li.ManuallyPaid = false
					if err := q.UpdateLineItemPayment(ctx, li); err != nil {
						return err
					}
				}
			}
		}

		p.Status = to
		if err := q.UpdatePayout(ctx, p, p.Version); err != nil {
			return err
		}

		payout = p
		return q.CreatePayoutEvent(ctx, &models.PayoutEvent{
			ShowPayoutID: p.ID,
			FromStatus:   from,
			ToStatus:     to,
			Actor:        actor,
			Reason:       reason,
			Total:        p.TotalPayout,
			Snapshot:     snapshot,
			CreatedAt:    ts,
		})
	})
	if err != nil {
		return nil, err
	}

	c.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	c.logger.Info("Payout status changed",
		"payout_id", payout.ID,
		"show_id", payout.ShowID,
		"from", from,
		"to", to,
		"actor", actor,
	)
	return payout, nil
}

// MarkLineItemPaid records payment of a single line item. The payout must be
// approved.
func (c *Calculator) MarkLineItemPaid(ctx context.Context, lineItemID, method, reference string) (*models.LineItem, error) {
	var item *models.LineItem
	err := c.store.WithTx(ctx, func(q storage.Queries) error {
		li, err := q.GetLineItem(ctx, lineItemID)
		if err != nil {
			return err
		}
		p, err := q.GetPayout(ctx, li.ShowPayoutID)
		if err != nil {
			return err
		}
		if p.Status != models.PayoutApproved {
			return fmt.Errorf("payout %s is %s: %w", p.ID, p.Status, ErrNotApproved)
		}

		li.ManuallyPaid = true
		li.PaymentMethod = method
		li.PayoutReferenceID = reference
		li.PayoutStatus = models.PaymentPaid
		li.PaidAt = c.now().Unix()
		if err := q.UpdateLineItemPayment(ctx, li); err != nil {
			return err
		}
		item = li
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Line item paid", "line_item_id", item.ID, "method", method)
	return item, nil
}

type lineSnapshot struct {
	Payee            json.RawMessage           `json:"payee"`
	Amount           string                    `json:"amount"`
	AdvanceDeduction string                    `json:"advance_deduction"`
	Details          models.CalculationDetails `json:"calculation_details"`
	PayoutStatus     models.PaymentStatus      `json:"payout_status"`
	PaymentMethod    string                    `json:"payment_method,omitempty"`
	Reference        string                    `json:"payout_reference_id,omitempty"`
}

func snapshotLineItems(items []*models.LineItem) ([]byte, error) {
	out := make([]lineSnapshot, len(items))
	for i, li := range items {
		payee, err := models.MarshalPayee(li.Payee)
		if err != nil {
			return nil, err
		}
		out[i] = lineSnapshot{
			Payee:            payee,
			Amount:           calculator.FormatMoney(li.Amount),
			AdvanceDeduction: calculator.FormatMoney(li.AdvanceDeduction),
			Details:          li.Details,
			PayoutStatus:     li.PayoutStatus,
			PaymentMethod:    li.PaymentMethod,
			Reference:        li.PayoutReferenceID,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line item snapshot: %w", err)
	}
	return data, nil
}
