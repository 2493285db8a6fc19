package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/storage"
)

const selectAdvance = `
SELECT id, person_id, production_id, show_id, original_amount, remaining_balance, status, note,
       created_at, updated_at
FROM person_advances`

func scanAdvance(row interface{ Scan(...any) error }) (*models.PersonAdvance, error) {
	a := &models.PersonAdvance{}
	var (
		showID sql.NullString
		status string
	)
	if err := row.Scan(&a.ID, &a.PersonID, &a.ProductionID, &showID, &a.OriginalAmount, &a.RemainingBalance,
		&status, &a.Note, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ShowID = showID.String
	a.Status = models.AdvanceStatus(status)
	return a, nil
}

// CreateAdvance persists a new advance.
func (s *queries) CreateAdvance(ctx context.Context, a *models.PersonAdvance) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	ts := now()
	if a.CreatedAt == 0 {
		a.CreatedAt = ts
	}
	a.UpdatedAt = ts

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO person_advances (id, person_id, production_id, show_id, original_amount, remaining_balance,
		     status, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PersonID, a.ProductionID, nullString(a.ShowID), a.OriginalAmount, a.RemainingBalance,
		string(a.Status), a.Note, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert advance: %w", err)
	}
	return nil
}

// GetAdvance retrieves an advance by ID.
func (s *queries) GetAdvance(ctx context.Context, advanceID string) (*models.PersonAdvance, error) {
	a, err := scanAdvance(s.q.QueryRowContext(ctx, selectAdvance+" WHERE id = ?", advanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("advance", advanceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advance: %w", err)
	}
	return a, nil
}

// UpdateAdvance writes the remaining balance and status.
func (s *queries) UpdateAdvance(ctx context.Context, a *models.PersonAdvance) error {
	a.UpdatedAt = now()
	res, err := s.q.ExecContext(ctx,
		"UPDATE person_advances SET remaining_balance = ?, status = ?, updated_at = ? WHERE id = ?",
		a.RemainingBalance, string(a.Status), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update advance: %w", err)
	}
	return expectOne(res, "advance", a.ID)
}

// ListAdvances returns matching advances, oldest first.
func (s *queries) ListAdvances(ctx context.Context, filter storage.AdvanceFilter) ([]*models.PersonAdvance, error) {
	var (
		where []string
		args  []any
	)
	if filter.PersonID != "" {
		where = append(where, "person_id = ?")
		args = append(args, filter.PersonID)
	}
	if filter.ProductionID != "" {
		where = append(where, "production_id = ?")
		args = append(args, filter.ProductionID)
	}
	if filter.OutstandingOnly {
		where = append(where, "status IN ('pending', 'partial')")
	}

	query := selectAdvance
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list advances: %w", err)
	}
	defer rows.Close()

	var advances []*models.PersonAdvance
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advance: %w", err)
		}
		advances = append(advances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advances: %w", err)
	}
	return advances, nil
}

// CreateRecovery records an advance recovery against a line item.
func (s *queries) CreateRecovery(ctx context.Context, r *models.AdvanceRecovery) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = now()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO advance_recoveries (id, advance_id, line_item_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.AdvanceID, r.LineItemID, r.Amount, r.CreatedAt,
	)
	if isUniqueError(err) {
		return fmt.Errorf("advance %s already recovered from line item %s: %w", r.AdvanceID, r.LineItemID, storage.ErrConflict)
	}
	if isForeignKeyError(err) {
		return fmt.Errorf("advance %s or line item %s: %w", r.AdvanceID, r.LineItemID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert advance recovery: %w", err)
	}
	return nil
}

// DeleteRecovery removes a recovery record.
func (s *queries) DeleteRecovery(ctx context.Context, recoveryID string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM advance_recoveries WHERE id = ?", recoveryID)
	if err != nil {
		return fmt.Errorf("failed to delete advance recovery: %w", err)
	}
	return expectOne(res, "advance recovery", recoveryID)
}

func (s *queries) listRecoveries(ctx context.Context, query string, arg string) ([]*models.AdvanceRecovery, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list advance recoveries: %w", err)
	}
	defer rows.Close()

	var recoveries []*models.AdvanceRecovery
	for rows.Next() {
		r := &models.AdvanceRecovery{}
		if err := rows.Scan(&r.ID, &r.AdvanceID, &r.LineItemID, &r.Amount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan advance recovery: %w", err)
		}
		recoveries = append(recoveries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advance recoveries: %w", err)
	}
	return recoveries, nil
}

// ListRecoveries returns the recoveries of one advance.
func (s *queries) ListRecoveries(ctx context.Context, advanceID string) ([]*models.AdvanceRecovery, error) {
	return s.listRecoveries(ctx,
		`SELECT id, advance_id, line_item_id, amount, created_at FROM advance_recoveries
		 WHERE advance_id = ? ORDER BY created_at, rowid`,
		advanceID,
	)
}

// ListPayoutRecoveries returns every recovery taken from the payout's line items.
func (s *queries) ListPayoutRecoveries(ctx context.Context, payoutID string) ([]*models.AdvanceRecovery, error) {
	return s.listRecoveries(ctx,
		`SELECT r.id, r.advance_id, r.line_item_id, r.amount, r.created_at
		 FROM advance_recoveries r
		 JOIN show_payout_line_items li ON li.id = r.line_item_id
		 WHERE li.show_payout_id = ? ORDER BY r.created_at, r.rowid`,
		payoutID,
	)
}
