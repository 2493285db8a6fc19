package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/calculator"
	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/payout"
	"github.com/mmynk/showpayouts/pkg/api"
)

// errInvalidInput marks request validation failures.
var errInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidInput, fmt.Sprintf(format, args...))
}

// parseMoney reads an optional decimal amount. Empty means zero.
func parseMoney(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalidf("%s: %q is not a decimal amount", field, s)
	}
	if d.IsNegative() {
		return decimal.Zero, invalidf("%s must not be negative", field)
	}
	return d, nil
}

func payeeFromAPI(p api.Payee) (models.Payee, error) {
	payee, err := models.PayeeFromColumns(models.PayeeType(p.Type), p.ID, p.GuestName)
	if err != nil {
		return nil, invalidf("payee: %v", err)
	}
	return payee, nil
}

func payeeToAPI(p models.Payee) api.Payee {
	t, id, name := models.PayeeColumns(p)
	return api.Payee{Type: string(t), ID: id, GuestName: name}
}

func financialsFromAPI(f *api.Financials) (*models.ShowFinancials, error) {
	if f == nil {
		return nil, nil
	}
	out := &models.ShowFinancials{
		RevenueType:   models.RevenueType(f.RevenueType),
		TicketCount:   f.TicketCount,
		DataConfirmed: f.DataConfirmed,
	}
	switch out.RevenueType {
	case "":
		out.RevenueType = models.RevenueTicketSales
	case models.RevenueTicketSales, models.RevenueFlatFee:
	default:
		return nil, invalidf("unknown revenue_type %q", f.RevenueType)
	}
	if f.TicketCount < 0 {
		return nil, invalidf("ticket_count must not be negative")
	}

	amounts := []struct {
		field string
		value string
		dst   *decimal.Decimal
	}{
		{"ticket_revenue", f.TicketRevenue, &out.TicketRevenue},
		{"flat_fee", f.FlatFee, &out.FlatFee},
		{"other_revenue", f.OtherRevenue, &out.OtherRevenue},
		{"expenses", f.Expenses, &out.Expenses},
	}
	for _, a := range amounts {
		d, err := parseMoney(a.field, a.value)
		if err != nil {
			return nil, err
		}
		*a.dst = d
	}

	for i, e := range f.ExpenseItems {
		amount, err := parseMoney(fmt.Sprintf("expense_items[%d].amount", i), e.Amount)
		if err != nil {
			return nil, err
		}
		out.ExpenseItems = append(out.ExpenseItems, models.ExpenseItem{Description: e.Description, Amount: amount})
	}
	for i, fee := range f.TicketFees {
		flat, err := parseMoney(fmt.Sprintf("ticket_fees[%d].flat_per_ticket", i), fee.FlatPerTicket)
		if err != nil {
			return nil, err
		}
		pct, err := parseMoney(fmt.Sprintf("ticket_fees[%d].percentage", i), fee.Percentage)
		if err != nil {
			return nil, err
		}
		out.TicketFees = append(out.TicketFees, models.TicketFeeTemplate{Name: fee.Name, FlatPerTicket: flat, Percentage: pct})
	}
	for i, a := range f.ProductionExpenseAllocations {
		amount, err := parseMoney(fmt.Sprintf("production_expense_allocations[%d].amount", i), a.Amount)
		if err != nil {
			return nil, err
		}
		out.ProductionExpenseAllocations = append(out.ProductionExpenseAllocations,
			models.ProductionExpenseAllocation{Name: a.Name, Amount: amount})
	}
	return out, nil
}

func showFromAPI(s api.Show) (*models.Show, error) {
	if s.ID == "" || s.ProductionID == "" {
		return nil, invalidf("show id and production_id are required")
	}
	financials, err := financialsFromAPI(s.Financials)
	if err != nil {
		return nil, err
	}
	show := &models.Show{
		ID:             s.ID,
		ProductionID:   s.ProductionID,
		DateAndTime:    s.DateAndTime,
		PayoutSchemeID: s.PayoutSchemeID,
		Financials:     financials,
	}
	for i, ra := range s.Roster {
		payee, err := payeeFromAPI(ra.Payee)
		if err != nil {
			return nil, fmt.Errorf("roster[%d]: %w", i, err)
		}
		show.Roster = append(show.Roster, models.RoleAssignment{RoleName: ra.RoleName, Payee: payee})
	}
	return show, nil
}

func payoutToAPI(p *models.ShowPayout) api.Payout {
	return api.Payout{
		ID:            p.ID,
		ShowID:        p.ShowID,
		Status:        string(p.Status),
		SchemeID:      p.SchemeID,
		SchemeVersion: p.SchemeVersion,
		TotalPayout:   calculator.FormatMoney(p.TotalPayout),
		Version:       p.Version,
		CalculatedAt:  p.CalculatedAt,
		ApprovedAt:    p.ApprovedAt,
		PaidAt:        p.PaidAt,
		OverrideRules: json.RawMessage(p.OverrideRules),
	}
}

func lineItemToAPI(li *models.LineItem) (api.LineItem, error) {
	details, err := json.Marshal(li.Details)
	if err != nil {
		return api.LineItem{}, fmt.Errorf("failed to encode calculation details: %w", err)
	}
	return api.LineItem{
		ID:                li.ID,
		Payee:             payeeToAPI(li.Payee),
		Position:          li.Position,
		Amount:            calculator.FormatMoney(li.Amount),
		AdvanceDeduction:  calculator.FormatMoney(li.AdvanceDeduction),
		NetAmount:         calculator.FormatMoney(li.NetAmount()),
		Details:           details,
		ManuallyPaid:      li.ManuallyPaid,
		PaymentMethod:     li.PaymentMethod,
		PayoutStatus:      string(li.PayoutStatus),
		PayoutReferenceID: li.PayoutReferenceID,
		PaidAt:            li.PaidAt,
	}, nil
}

func lineItemsToAPI(items []*models.LineItem) ([]api.LineItem, error) {
	out := make([]api.LineItem, 0, len(items))
	for _, li := range items {
		item, err := lineItemToAPI(li)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func allocationToAPI(a calculator.AllocationResult) api.Allocation {
	out := api.Allocation{
		Gross:      calculator.FormatMoney(a.Gross),
		Deductions: calculator.FormatMoney(a.Deductions),
		House:      calculator.FormatMoney(a.House),
		Pool:       calculator.FormatMoney(a.Pool),
	}
	for _, s := range a.Steps {
		out.Steps = append(out.Steps, api.AllocationStep{
			Type:         string(s.Type),
			Requested:    calculator.FormatMoney(s.Requested),
			Applied:      calculator.FormatMoney(s.Applied),
			RunningTotal: calculator.FormatMoney(s.RunningTotal),
			Clamped:      s.Clamped,
		})
	}
	return out
}

func eventToAPI(e *models.PayoutEvent) api.PayoutEvent {
	return api.PayoutEvent{
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		Actor:      e.Actor,
		Reason:     e.Reason,
		Total:      calculator.FormatMoney(e.Total),
		Snapshot:   json.RawMessage(e.Snapshot),
		CreatedAt:  e.CreatedAt,
	}
}

func schemeToAPI(s *models.PayoutScheme) api.Scheme {
	return api.Scheme{
		ID:           s.ID,
		ProductionID: s.ProductionID,
		Name:         s.Name,
		Rules:        json.RawMessage(s.Rules),
		IsDefault:    s.IsDefault,
		Version:      s.Version,
	}
}

func advanceToAPI(a *models.PersonAdvance) api.Advance {
	return api.Advance{
		ID:               a.ID,
		PersonID:         a.PersonID,
		ProductionID:     a.ProductionID,
		ShowID:           a.ShowID,
		OriginalAmount:   calculator.FormatMoney(a.OriginalAmount),
		RemainingBalance: calculator.FormatMoney(a.RemainingBalance),
		Status:           string(a.Status),
		Note:             a.Note,
		CreatedAt:        a.CreatedAt,
	}
}

func previewToAPI(p calculator.PreviewResult) *api.PreviewPayoutResponse {
	return &api.PreviewPayoutResponse{
		PerPerson: calculator.FormatMoney(p.PerPerson),
		Total:     calculator.FormatMoney(p.Total),
		Pool:      calculator.FormatMoney(p.Pool),
	}
}

// reasonFromPayout exposes the failure reason for a UI.
func reasonFromPayout(err error) string {
	return string(payout.ReasonOf(err))
}
