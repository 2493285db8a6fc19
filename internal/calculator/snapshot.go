package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/models"
)

// Snapshot is the normalized financial picture of a show, derived on demand
// and never stored.
type Snapshot struct {
	RevenueType models.RevenueType

	TicketCount                  int
	TicketRevenue                decimal.Decimal
	FlatFee                      decimal.Decimal
	OtherRevenue                 decimal.Decimal
	Expenses                     decimal.Decimal
	TicketFees                   decimal.Decimal
	ProductionExpenseAllocations decimal.Decimal

	// Complete is false when the show has no usable revenue data.
	Complete bool
}

// TotalRevenue is the active revenue figure plus other revenue.
// Exactly one of ticket revenue and flat fee counts.
func (s Snapshot) TotalRevenue() decimal.Decimal {
	if s.RevenueType == models.RevenueFlatFee {
		return s.FlatFee.Add(s.OtherRevenue)
	}
	return s.TicketRevenue.Add(s.OtherRevenue)
}

// Deductions is everything an expenses_first step removes.
func (s Snapshot) Deductions() decimal.Decimal {
	return s.Expenses.Add(s.TicketFees).Add(s.ProductionExpenseAllocations)
}

// NetRevenue = total revenue - expenses - ticket fees - production allocations.
func (s Snapshot) NetRevenue() decimal.Decimal {
	return s.TotalRevenue().Sub(s.Deductions())
}

// ResolveSnapshot builds a Snapshot from a show's financial record.
// A show without financials yields an incomplete snapshot.
func ResolveSnapshot(show *models.Show) Snapshot {
	if show == nil || show.Financials == nil {
		return Snapshot{}
	}
	f := show.Financials

	revenueType := f.RevenueType
	if revenueType == "" {
		revenueType = models.RevenueTicketSales
	}

	snap := Snapshot{
		RevenueType:                  revenueType,
		TicketCount:                  f.TicketCount,
		TicketRevenue:                f.TicketRevenue,
		FlatFee:                      f.FlatFee,
		OtherRevenue:                 f.OtherRevenue,
		Expenses:                     resolveExpenses(f),
		ProductionExpenseAllocations: sumAllocations(f.ProductionExpenseAllocations),
	}

	if revenueType == models.RevenueTicketSales {
		snap.TicketFees = TicketFees(f.TicketFees, f.TicketCount, f.TicketRevenue)
	}

	switch revenueType {
	case models.RevenueFlatFee:
		snap.Complete = f.FlatFee.Sign() > 0
	case models.RevenueTicketSales:
		snap.Complete = f.DataConfirmed && !f.TicketRevenue.IsNegative()
	}
	return snap
}

// resolveExpenses prefers itemized expenses over the legacy aggregate.
func resolveExpenses(f *models.ShowFinancials) decimal.Decimal {
	if len(f.ExpenseItems) == 0 {
		return f.Expenses
	}
	total := zero
	for _, e := range f.ExpenseItems {
		total = total.Add(e.Amount)
	}
	return total
}

func sumAllocations(allocs []models.ProductionExpenseAllocation) decimal.Decimal {
	total := zero
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return total
}

// TicketFees applies each fee template's per-ticket and percentage-of-revenue
// components and sums the results.
func TicketFees(templates []models.TicketFeeTemplate, ticketCount int, ticketRevenue decimal.Decimal) decimal.Decimal {
	tickets := decimal.NewFromInt(int64(ticketCount))
	total := zero
	for _, t := range templates {
		total = total.Add(t.FlatPerTicket.Mul(tickets))
		total = total.Add(ticketRevenue.Mul(t.Percentage).Div(hundred))
	}
	return total
}
