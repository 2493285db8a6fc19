package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/models"
)

type expenseItemRow struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type ticketFeeRow struct {
	Name          string          `json:"name"`
	FlatPerTicket decimal.Decimal `json:"flat_per_ticket"`
	Percentage    decimal.Decimal `json:"percentage"`
}

type productionAllocationRow struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// UpsertShow creates or replaces a show, its financials and its roster.
func (s *queries) UpsertShow(ctx context.Context, show *models.Show) error {
	if show.ID == "" || show.ProductionID == "" {
		return fmt.Errorf("show id and production id are required")
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO shows (id, production_id, date_and_time, payout_scheme_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     production_id = excluded.production_id,
		     date_and_time = excluded.date_and_time,
		     payout_scheme_id = excluded.payout_scheme_id,
		     updated_at = excluded.updated_at`,
		show.ID, show.ProductionID, show.DateAndTime, nullString(show.PayoutSchemeID), now(),
	)
	if isForeignKeyError(err) {
		return notFound("payout scheme", show.PayoutSchemeID)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert show: %w", err)
	}

	if _, err := s.q.ExecContext(ctx, "DELETE FROM show_financials WHERE show_id = ?", show.ID); err != nil {
		return fmt.Errorf("failed to clear financials: %w", err)
	}
	if f := show.Financials; f != nil {
		expenseItems := make([]expenseItemRow, len(f.ExpenseItems))
		for i, e := range f.ExpenseItems {
			expenseItems[i] = expenseItemRow{Description: e.Description, Amount: e.Amount}
		}
		fees := make([]ticketFeeRow, len(f.TicketFees))
		for i, t := range f.TicketFees {
			fees[i] = ticketFeeRow{Name: t.Name, FlatPerTicket: t.FlatPerTicket, Percentage: t.Percentage}
		}
		allocs := make([]productionAllocationRow, len(f.ProductionExpenseAllocations))
		for i, a := range f.ProductionExpenseAllocations {
			allocs[i] = productionAllocationRow{Name: a.Name, Amount: a.Amount}
		}

		itemsJSON, err := json.Marshal(expenseItems)
		if err != nil {
			return fmt.Errorf("failed to encode expense items: %w", err)
		}
		feesJSON, err := json.Marshal(fees)
		if err != nil {
			return fmt.Errorf("failed to encode ticket fees: %w", err)
		}
		allocsJSON, err := json.Marshal(allocs)
		if err != nil {
			return fmt.Errorf("failed to encode production allocations: %w", err)
		}

		revenueType := f.RevenueType
		if revenueType == "" {
			revenueType = models.RevenueTicketSales
		}

		_, err = s.q.ExecContext(ctx,
			`INSERT INTO show_financials (show_id, revenue_type, ticket_count, ticket_revenue, flat_fee,
			     other_revenue, expenses, expense_items, ticket_fees, production_expense_allocations, data_confirmed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			show.ID, string(revenueType), f.TicketCount, f.TicketRevenue, f.FlatFee,
			f.OtherRevenue, f.Expenses, string(itemsJSON), string(feesJSON), string(allocsJSON), boolToInt(f.DataConfirmed),
		)
		if err != nil {
			return fmt.Errorf("failed to insert financials: %w", err)
		}
	}

	if _, err := s.q.ExecContext(ctx, "DELETE FROM role_assignments WHERE show_id = ?", show.ID); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	for i, ra := range show.Roster {
		if err := models.ValidatePayee(ra.Payee); err != nil {
			return fmt.Errorf("roster[%d]: %w", i, err)
		}
		payeeType, payeeID, guestName := models.PayeeColumns(ra.Payee)
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO role_assignments (show_id, position, role_name, payee_type, payee_id, guest_name)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			show.ID, i, ra.RoleName, string(payeeType), nullString(payeeID), nullString(guestName),
		)
		if err != nil {
			return fmt.Errorf("failed to insert role assignment: %w", err)
		}
	}

	return nil
}

// GetShow retrieves a show by ID, including financials and roster.
func (s *queries) GetShow(ctx context.Context, showID string) (*models.Show, error) {
	show := &models.Show{}
	var schemeID sql.NullString
	err := s.q.QueryRowContext(ctx,
		"SELECT id, production_id, date_and_time, payout_scheme_id FROM shows WHERE id = ?",
		showID,
	).Scan(&show.ID, &show.ProductionID, &show.DateAndTime, &schemeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("show", showID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	show.PayoutSchemeID = schemeID.String

	financials, err := s.getFinancials(ctx, showID)
	if err != nil {
		return nil, err
	}
	show.Financials = financials

	rows, err := s.q.QueryContext(ctx,
		`SELECT role_name, payee_type, payee_id, guest_name FROM role_assignments
		 WHERE show_id = ? ORDER BY position`,
		showID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ra                 models.RoleAssignment
			payeeType          string
			payeeID, guestName sql.NullString
		)
		if err := rows.Scan(&ra.RoleName, &payeeType, &payeeID, &guestName); err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		ra.Payee, err = models.PayeeFromColumns(models.PayeeType(payeeType), payeeID.String, guestName.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt role assignment for show %s: %w", showID, err)
		}
		show.Roster = append(show.Roster, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roster: %w", err)
	}

	return show, nil
}

func (s *queries) getFinancials(ctx context.Context, showID string) (*models.ShowFinancials, error) {
	f := &models.ShowFinancials{}
	var (
		revenueType string
		itemsJSON   string
		feesJSON    string
		allocsJSON  string
		confirmed   int
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT revenue_type, ticket_count, ticket_revenue, flat_fee, other_revenue, expenses,
		     expense_items, ticket_fees, production_expense_allocations, data_confirmed
		 FROM show_financials WHERE show_id = ?`,
		showID,
	).Scan(&revenueType, &f.TicketCount, &f.TicketRevenue, &f.FlatFee, &f.OtherRevenue, &f.Expenses,
		&itemsJSON, &feesJSON, &allocsJSON, &confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get financials: %w", err)
	}
	f.RevenueType = models.RevenueType(revenueType)
	f.DataConfirmed = confirmed != 0

	var items []expenseItemRow
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("failed to decode expense items: %w", err)
	}
	for _, e := range items {
		f.ExpenseItems = append(f.ExpenseItems, models.ExpenseItem{Description: e.Description, Amount: e.Amount})
	}

	var fees []ticketFeeRow
	if err := json.Unmarshal([]byte(feesJSON), &fees); err != nil {
		return nil, fmt.Errorf("failed to decode ticket fees: %w", err)
	}
	for _, t := range fees {
		f.TicketFees = append(f.TicketFees, models.TicketFeeTemplate{Name: t.Name, FlatPerTicket: t.FlatPerTicket, Percentage: t.Percentage})
	}

	var allocs []productionAllocationRow
	if err := json.Unmarshal([]byte(allocsJSON), &allocs); err != nil {
		return nil, fmt.Errorf("failed to decode production allocations: %w", err)
	}
	for _, a := range allocs {
		f.ProductionExpenseAllocations = append(f.ProductionExpenseAllocations, models.ProductionExpenseAllocation{Name: a.Name, Amount: a.Amount})
	}

	return f, nil
}
