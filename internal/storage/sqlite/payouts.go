package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/storage"
)

const selectPayout = `
SELECT id, show_id, status, scheme_id, scheme_version, override_rules, total_payout, version,
       calculated_at, approved_at, paid_at, created_at, updated_at
FROM show_payouts`

func scanPayout(row interface{ Scan(...any) error }) (*models.ShowPayout, error) {
	p := &models.ShowPayout{}
	var (
		status        string
		schemeID      sql.NullString
		overrideRules sql.NullString
	)
	if err := row.Scan(&p.ID, &p.ShowID, &status, &schemeID, &p.SchemeVersion, &overrideRules,
		&p.TotalPayout, &p.Version, &p.CalculatedAt, &p.ApprovedAt, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.PayoutStatus(status)
	p.SchemeID = schemeID.String
	if overrideRules.Valid {
		p.OverrideRules = []byte(overrideRules.String)
	}
	return p, nil
}

func nullBytes(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: len(b) > 0}
}

// GetPayout retrieves a payout by ID.
func (s *queries) GetPayout(ctx context.Context, payoutID string) (*models.ShowPayout, error) {
	p, err := scanPayout(s.q.QueryRowContext(ctx, selectPayout+" WHERE id = ?", payoutID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payout", payoutID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}

// GetPayoutByShow retrieves the payout of a show.
func (s *queries) GetPayoutByShow(ctx context.Context, showID string) (*models.ShowPayout, error) {
	p, err := scanPayout(s.q.QueryRowContext(ctx, selectPayout+" WHERE show_id = ?", showID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payout for show", showID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}

// CreatePayout inserts a new payout with version 1.
func (s *queries) CreatePayout(ctx context.Context, p *models.ShowPayout) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.PayoutDraft
	}
	ts := now()
	if p.CreatedAt == 0 {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts
	p.Version = 1

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO show_payouts (id, show_id, status, scheme_id, scheme_version, override_rules, total_payout,
		     version, calculated_at, approved_at, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ShowID, string(p.Status), nullString(p.SchemeID), p.SchemeVersion, nullBytes(p.OverrideRules),
		p.TotalPayout, p.Version, p.CalculatedAt, p.ApprovedAt, p.PaidAt, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueError(err) {
		return fmt.Errorf("payout for show %s: %w", p.ShowID, storage.ErrConflict)
	}
	if isForeignKeyError(err) {
		return notFound("show", p.ShowID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}
	return nil
}

// UpdatePayout writes every mutable payout field guarded by the version.
func (s *queries) UpdatePayout(ctx context.Context, p *models.ShowPayout, expectedVersion int64) error {
	p.UpdatedAt = now()
	res, err := s.q.ExecContext(ctx,
		`UPDATE show_payouts SET status = ?, scheme_id = ?, scheme_version = ?, override_rules = ?,
		     total_payout = ?, version = version + 1, calculated_at = ?, approved_at = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(p.Status), nullString(p.SchemeID), p.SchemeVersion, nullBytes(p.OverrideRules),
		p.TotalPayout, p.CalculatedAt, p.ApprovedAt, p.PaidAt, p.UpdatedAt,
		p.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetPayout(ctx, p.ID); err != nil {
			return err
		}
		return fmt.Errorf("payout %s at version %d: %w", p.ID, expectedVersion, storage.ErrStaleVersion)
	}
	p.Version = expectedVersion + 1
	return nil
}

const selectLineItem = `
SELECT id, show_payout_id, position, payee_type, payee_id, guest_name, amount, advance_deduction,
       calculation_details, manually_paid, payment_method, payout_status, payout_reference_id, paid_at
FROM show_payout_line_items`

func scanLineItem(row interface{ Scan(...any) error }) (*models.LineItem, error) {
	li := &models.LineItem{}
	var (
		payeeType          string
		payeeID, guestName sql.NullString
		details            string
		manuallyPaid       int
		paymentStatus      string
	)
	if err := row.Scan(&li.ID, &li.ShowPayoutID, &li.Position, &payeeType, &payeeID, &guestName,
		&li.Amount, &li.AdvanceDeduction, &details, &manuallyPaid, &li.PaymentMethod, &paymentStatus,
		&li.PayoutReferenceID, &li.PaidAt); err != nil {
		return nil, err
	}
	payee, err := models.PayeeFromColumns(models.PayeeType(payeeType), payeeID.String, guestName.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt line item %s: %w", li.ID, err)
	}
	li.Payee = payee
	if err := json.Unmarshal([]byte(details), &li.Details); err != nil {
		return nil, fmt.Errorf("corrupt calculation details on line item %s: %w", li.ID, err)
	}
	li.ManuallyPaid = manuallyPaid != 0
	li.PayoutStatus = models.PaymentStatus(paymentStatus)
	return li, nil
}

// ListLineItems returns the payout's line items in roster order.
func (s *queries) ListLineItems(ctx context.Context, payoutID string) ([]*models.LineItem, error) {
	rows, err := s.q.QueryContext(ctx, selectLineItem+" WHERE show_payout_id = ? ORDER BY position", payoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []*models.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}
	return items, nil
}

// GetLineItem retrieves one line item.
func (s *queries) GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error) {
	li, err := scanLineItem(s.q.QueryRowContext(ctx, selectLineItem+" WHERE id = ?", lineItemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("line item", lineItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line item: %w", err)
	}
	return li, nil
}

// ReplaceLineItems deletes the payout's line items and inserts items in order.
// Recoveries against the old items must already be removed.
func (s *queries) ReplaceLineItems(ctx context.Context, payoutID string, items []*models.LineItem) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM show_payout_line_items WHERE show_payout_id = ?", payoutID)
	if isForeignKeyError(err) {
		return fmt.Errorf("line items of payout %s still have advance recoveries: %w", payoutID, storage.ErrInUse)
	}
	if err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}

	for i, li := range items {
		if err := models.ValidatePayee(li.Payee); err != nil {
			return fmt.Errorf("line item %d: %w", i, err)
		}
		if li.ID == "" {
			li.ID = uuid.New().String()
		}
		li.ShowPayoutID = payoutID
		li.Position = i
		if li.PayoutStatus == "" {
			li.PayoutStatus = models.PaymentPending
		}

		details, err := json.Marshal(li.Details)
		if err != nil {
			return fmt.Errorf("failed to encode calculation details: %w", err)
		}
		payeeType, payeeID, guestName := models.PayeeColumns(li.Payee)

		_, err = s.q.ExecContext(ctx,
			`INSERT INTO show_payout_line_items (id, show_payout_id, position, payee_type, payee_id, guest_name,
			     amount, advance_deduction, calculation_details, manually_paid, payment_method, payout_status,
			     payout_reference_id, paid_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			li.ID, payoutID, li.Position, string(payeeType), nullString(payeeID), nullString(guestName),
			li.Amount, li.AdvanceDeduction, string(details), boolToInt(li.ManuallyPaid), li.PaymentMethod,
			string(li.PayoutStatus), li.PayoutReferenceID, li.PaidAt,
		)
		if isUniqueError(err) {
			return fmt.Errorf("duplicate payee %s on payout %s: %w", li.Payee.Label(), payoutID, storage.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}
	return nil
}

// UpdateLineItemPayment writes the payment tracking fields.
func (s *queries) UpdateLineItemPayment(ctx context.Context, li *models.LineItem) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE show_payout_line_items
		 SET manually_paid = ?, payment_method = ?, payout_status = ?, payout_reference_id = ?, paid_at = ?
		 WHERE id = ?`,
		boolToInt(li.ManuallyPaid), li.PaymentMethod, string(li.PayoutStatus), li.PayoutReferenceID, li.PaidAt, li.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update line item payment: %w", err)
	}
	return expectOne(res, "line item", li.ID)
}

// UpdateLineItemDeduction writes the advance deduction and calculation details.
func (s *queries) UpdateLineItemDeduction(ctx context.Context, li *models.LineItem) error {
	details, err := json.Marshal(li.Details)
	if err != nil {
		return fmt.Errorf("failed to encode calculation details: %w", err)
	}
	res, err := s.q.ExecContext(ctx,
		"UPDATE show_payout_line_items SET advance_deduction = ?, calculation_details = ? WHERE id = ?",
		li.AdvanceDeduction, string(details), li.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update line item deduction: %w", err)
	}
	return expectOne(res, "line item", li.ID)
}

// CreatePayoutEvent appends an audit event.
func (s *queries) CreatePayoutEvent(ctx context.Context, e *models.PayoutEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = now()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payout_events (id, show_payout_id, from_status, to_status, actor, reason, total, snapshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ShowPayoutID, string(e.FromStatus), string(e.ToStatus), e.Actor, e.Reason, e.Total,
		string(e.Snapshot), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payout event: %w", err)
	}
	return nil
}

// ListPayoutEvents returns the payout's events, oldest first.
func (s *queries) ListPayoutEvents(ctx context.Context, payoutID string) ([]*models.PayoutEvent, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, show_payout_id, from_status, to_status, actor, reason, total, snapshot, created_at
		 FROM payout_events WHERE show_payout_id = ? ORDER BY created_at, rowid`,
		payoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout events: %w", err)
	}
	defer rows.Close()

	var events []*models.PayoutEvent
	for rows.Next() {
		e := &models.PayoutEvent{}
		var from, to, snapshot string
		if err := rows.Scan(&e.ID, &e.ShowPayoutID, &from, &to, &e.Actor, &e.Reason, &e.Total, &snapshot, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout event: %w", err)
		}
		e.FromStatus = models.PayoutStatus(from)
		e.ToStatus = models.PayoutStatus(to)
		e.Snapshot = []byte(snapshot)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout events: %w", err)
	}
	return events, nil
}
