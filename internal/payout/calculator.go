// Package payout orchestrates show payout calculation: it runs the pure
// calculator stages, persists the ShowPayout and its line items atomically,
// recovers outstanding advances, and moves payouts through their
// draft/approved/paid lifecycle.
package payout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/calculator"
	"github.com/mmynk/showpayouts/internal/lock"
	"github.com/mmynk/showpayouts/internal/metrics"
	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/rules"
	"github.com/mmynk/showpayouts/internal/storage"
)

// deps are the collaborators shared by Calculator, Schemes and Advances.
type deps struct {
	store   storage.Store
	locker  lock.Locker
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Calculator, Schemes or Advances.
type Option func(*deps)

// WithLocker sets the per-show lock. The default is an in-process LocalLocker.
func WithLocker(l lock.Locker) Option {
	return func(d *deps) { d.locker = l }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *deps) { d.logger = l }
}

// WithMetrics sets the collectors. The default discards observations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func newDeps(store storage.Store, opts []Option) deps {
	d := deps{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	if d.locker == nil {
		d.locker = lock.NewLocalLocker()
	}
	if d.metrics == nil {
		d.metrics = metrics.Discard()
	}
	return d
}

// Calculator computes and persists show payouts and moves them through
// their lifecycle.
type Calculator struct {
	deps
}

// NewCalculator creates a Calculator backed by store.
func NewCalculator(store storage.Store, opts ...Option) *Calculator {
	return &Calculator{deps: newDeps(store, opts)}
}

// Result is a successful calculation.
type Result struct {
	Payout    *models.ShowPayout
	LineItems []*models.LineItem

	// Total is the sum of line item amounts before advance deductions.
	Total decimal.Decimal

	Allocation calculator.AllocationResult

	// Warnings lists non-fatal problems, such as overrides for performers
	// who are no longer on the roster.
	Warnings []string
}

// source identifies where the rules of a calculation came from.
type source struct {
	schemeID      string
	schemeVersion int

	// override, when set, is stored as the payout's override rules together
	// with the new line items.
	override []byte
}

// Calculate computes the show's payout with r and replaces the stored line
// items. It only runs while the payout is a draft; an approved or paid payout
// fails with ReasonAlreadyApproved and must be reverted explicitly first.
//
// The show must already be stored. Calculation data (financials and roster)
// is taken from the show argument.
func (c *Calculator) Calculate(ctx context.Context, show *models.Show, r *rules.Rules) (*Result, error) {
	return c.calculate(ctx, show, r, source{})
}

// CalculateForShow loads a show and calculates it with its effective rules:
// the payout's override rules, else the show's scheme, else the production
// default scheme.
func (c *Calculator) CalculateForShow(ctx context.Context, showID string) (*Result, error) {
	return c.calculateShow(ctx, showID, nil)
}

// CalculateWithOverride calculates a show with doc and stores doc as the
// payout's override rules in the same transaction as the line items. A failed
// calculation leaves any previous override in place.
func (c *Calculator) CalculateWithOverride(ctx context.Context, showID string, doc []byte) (*Result, error) {
	if len(doc) == 0 {
		doc = []byte{}
	}
	return c.calculateShow(ctx, showID, doc)
}

func (c *Calculator) calculateShow(ctx context.Context, showID string, override []byte) (*Result, error) {
	if showID == "" {
		c.metrics.Calculations.WithLabelValues(string(ReasonNoShow)).Inc()
		return nil, fail(ReasonNoShow, nil)
	}
	show, err := c.store.GetShow(ctx, showID)
	if errors.Is(err, storage.ErrNotFound) {
		c.metrics.Calculations.WithLabelValues(string(ReasonNoShow)).Inc()
		return nil, fail(ReasonNoShow, err)
	}
	if err != nil {
		return nil, err
	}

	var (
		r   *rules.Rules
		src source
	)
	if override != nil {
		r, err = parseRules(override)
		if err == nil {
			src.override, err = r.MarshalJSON()
		}
	} else {
		r, src, err = c.effectiveRules(ctx, show)
	}
	if err != nil {
		outcome := string(ReasonOf(err))
		if outcome == "" {
			outcome = metrics.OutcomeError
		}
		c.metrics.Calculations.WithLabelValues(outcome).Inc()
		return nil, err
	}
	return c.calculate(ctx, show, r, src)
}

// effectiveRules resolves the rules that apply to a show.
func (c *Calculator) effectiveRules(ctx context.Context, show *models.Show) (*rules.Rules, source, error) {
	existing, err := c.store.GetPayoutByShow(ctx, show.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, source{}, err
	}
	if existing != nil && len(existing.OverrideRules) > 0 {
		r, err := parseRules(existing.OverrideRules)
		return r, source{}, err
	}

	var scheme *models.PayoutScheme
	if show.PayoutSchemeID != "" {
		scheme, err = c.store.GetScheme(ctx, show.PayoutSchemeID)
	} else {
		scheme, err = c.store.GetDefaultScheme(ctx, show.ProductionID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, source{}, fail(ReasonNoRules, err)
	}
	if err != nil {
		return nil, source{}, err
	}

	r, err := parseRules(scheme.Rules)
	if err != nil {
		return nil, source{}, err
	}
	return r, source{schemeID: scheme.ID, schemeVersion: scheme.Version}, nil
}

func parseRules(doc []byte) (*rules.Rules, error) {
	r, err := rules.Parse(doc)
	if errors.Is(err, rules.ErrEmpty) {
		return nil, fail(ReasonNoRules, err)
	}
	if err != nil {
		return nil, fail(ReasonInvalidRules, err)
	}
	return r, nil
}

func (c *Calculator) calculate(ctx context.Context, show *models.Show, r *rules.Rules, src source) (res *Result, err error) {
	start := c.now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = string(ReasonOf(err))
			if outcome == "" {
				outcome = metrics.OutcomeError
			}
		}
		c.metrics.Calculations.WithLabelValues(outcome).Inc()
		c.metrics.CalculationDuration.Observe(c.now().Sub(start).Seconds())
	}()

	if show == nil || show.ID == "" {
		return nil, fail(ReasonNoShow, nil)
	}
	if r == nil {
		return nil, fail(ReasonNoRules, nil)
	}
	logger := c.logger.With("show_id", show.ID)

	snap := calculator.ResolveSnapshot(show)
	if !snap.Complete {
		return nil, fail(ReasonNoFinancialData, nil)
	}
	if len(calculator.UniquePerformers(show.Roster)) == 0 {
		return nil, fail(ReasonNoPerformers, nil)
	}

	breakdown, err := calculator.Compute(snap, r, show.Roster)
	if errors.Is(err, calculator.ErrNoPerformers) {
		return nil, fail(ReasonNoPerformers, err)
	}
	if err != nil {
		return nil, fail(ReasonInvalidRules, err)
	}

	var warnings []string
	for _, key := range breakdown.Distribution.IgnoredOverrides {
		logger.Warn("Ignoring override for performer not on roster", "override", key)
		warnings = append(warnings, "override for "+key+" ignored: performer not on roster")
	}

	release, err := c.locker.Acquire(ctx, lock.ShowKey(show.ID))
	if err != nil {
		return nil, lockError(err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			logger.Warn("Failed to release payout lock", "error", rerr)
		}
	}()

	payout, items, err := c.persist(ctx, show, breakdown, src)
	if err != nil {
		return nil, err
	}

	logger.Info("Payout calculated",
		"payout_id", payout.ID,
		"line_items", len(items),
		"total", calculator.FormatMoney(payout.TotalPayout),
		"pool", calculator.FormatMoney(breakdown.Allocation.Pool),
	)

	return &Result{
		Payout:     payout,
		LineItems:  items,
		Total:      payout.TotalPayout,
		Allocation: breakdown.Allocation,
		Warnings:   warnings,
	}, nil
}

// persist replaces the payout's line items and recovers advances in one
// transaction. The version read before the transaction must still be current
// when the payout row is written.
func (c *Calculator) persist(ctx context.Context, show *models.Show, b calculator.Breakdown, src source) (*models.ShowPayout, []*models.LineItem, error) {
	existing, err := c.store.GetPayoutByShow(ctx, show.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, err
	}
	if existing != nil && !existing.Status.CanEdit() {
		return nil, nil, failf(ReasonAlreadyApproved, "payout %s is %s", existing.ID, existing.Status)
	}

	var (
		payout *models.ShowPayout
		items  []*models.LineItem
	)
	err = c.store.WithTx(ctx, func(q storage.Queries) error {
		if existing == nil {
			payout = &models.ShowPayout{ShowID: show.ID, Status: models.PayoutDraft}
			if err := q.CreatePayout(ctx, payout); err != nil {
				switch {
				case errors.Is(err, storage.ErrConflict):
					return fail(ReasonConcurrentUpdate, err)
				case errors.Is(err, storage.ErrNotFound):
					return fail(ReasonNoShow, err)
				}
				return err
			}
		} else {
			current, err := q.GetPayout(ctx, existing.ID)
			if err != nil {
				return err
			}
			if current.Version != existing.Version {
				return failf(ReasonConcurrentUpdate, "payout %s changed from version %d to %d", existing.ID, existing.Version, current.Version)
			}
			if !current.Status.CanEdit() {
				return failf(ReasonAlreadyApproved, "payout %s is %s", current.ID, current.Status)
			}
			payout = current
		}
		expectedVersion := payout.Version

		if err := c.reverseRecoveries(ctx, q, payout.ID); err != nil {
			return err
		}

		items = make([]*models.LineItem, len(b.Distribution.Allocations))
		total := decimal.Zero
		for i, a := range b.Distribution.Allocations {
			items[i] = &models.LineItem{
				Payee:            a.Payee,
				Amount:           a.Amount,
				AdvanceDeduction: decimal.Zero,
				Details:          a.Details,
				PayoutStatus:     models.PaymentPending,
			}
			total = total.Add(a.Amount)
		}
		if err := q.ReplaceLineItems(ctx, payout.ID, items); err != nil {
			return err
		}

		if err := c.recoverAdvances(ctx, q, show, items); err != nil {
			return err
		}

		payout.TotalPayout = total
		payout.CalculatedAt = c.now().Unix()
		payout.SchemeID = src.schemeID
		payout.SchemeVersion = src.schemeVersion
		if src.override != nil {
			payout.OverrideRules = src.override
		}
		if err := q.UpdatePayout(ctx, payout, expectedVersion); err != nil {
			if errors.Is(err, storage.ErrStaleVersion) {
				return fail(ReasonConcurrentUpdate, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payout, items, nil
}

// GetPayout returns a show's payout and its line items.
func (c *Calculator) GetPayout(ctx context.Context, showID string) (*models.ShowPayout, []*models.LineItem, error) {
	payout, err := c.store.GetPayoutByShow(ctx, showID)
	if err != nil {
		return nil, nil, err
	}
	items, err := c.store.ListLineItems(ctx, payout.ID)
	if err != nil {
		return nil, nil, err
	}
	return payout, items, nil
}

// SetOverrideRules stores a per-show rules document that replaces the scheme
// for this show. An empty doc clears it. The payout must be a draft; one is
// created if the show has none.
func (c *Calculator) SetOverrideRules(ctx context.Context, showID string, doc []byte) (*models.ShowPayout, error) {
	if len(doc) > 0 {
		r, err := parseRules(doc)
		if err != nil {
			return nil, err
		}
		if doc, err = r.MarshalJSON(); err != nil {
			return nil, err
		}
	}

	var payout *models.ShowPayout
	err := c.store.WithTx(ctx, func(q storage.Queries) error {
		p, err := q.GetPayoutByShow(ctx, showID)
		if errors.Is(err, storage.ErrNotFound) {
			p = &models.ShowPayout{ShowID: showID, Status: models.PayoutDraft, OverrideRules: doc}
			if err := q.CreatePayout(ctx, p); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fail(ReasonNoShow, err)
				}
				return err
			}
			payout = p
			return nil
		}
		if err != nil {
			return err
		}
		if !p.Status.CanEdit() {
			return failf(ReasonAlreadyApproved, "payout %s is %s", p.ID, p.Status)
		}
		p.OverrideRules = doc
		if err := q.UpdatePayout(ctx, p, p.Version); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}
