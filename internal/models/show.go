package models

import "github.com/shopspring/decimal"

// RevenueType selects which revenue figure a show's payout is computed from.
type RevenueType string

const (
	RevenueTicketSales RevenueType = "ticket_sales"
	RevenueFlatFee     RevenueType = "flat_fee"
)

// Show is a single performance of a production.
// Shows, their financials and their rosters are owned by the surrounding
// application; the payout engine only reads them.
type Show struct {
	// ID is the unique identifier for the show.
	ID string

	// ProductionID is the production this show belongs to.
	// Payout schemes and advances are scoped by production.
	ProductionID string

	// DateAndTime is the Unix timestamp of the performance.
	DateAndTime int64

	// PayoutSchemeID is the scheme assigned to this show, if any.
	// Empty means the production's default scheme applies.
	PayoutSchemeID string

	// Financials holds the revenue and expense figures.
	// Nil means no financial data has been entered yet.
	Financials *ShowFinancials

	// Roster is the cast for this show, in display order.
	// Line items are produced in this order.
	Roster []RoleAssignment
}

// RoleAssignment is one roster entry: a role filled by a person, a group or a guest.
type RoleAssignment struct {
	// RoleName is the name of the role being performed (informational).
	RoleName string

	// Payee is the assignee. Guests are represented by GuestPayee.
	Payee Payee
}

// ShowFinancials is the raw financial record of a show.
type ShowFinancials struct {
	RevenueType RevenueType

	TicketCount   int
	TicketRevenue decimal.Decimal
	FlatFee       decimal.Decimal
	OtherRevenue  decimal.Decimal

	// Expenses is the legacy aggregate expense figure.
	// It is only used when ExpenseItems is empty.
	Expenses decimal.Decimal

	// ExpenseItems are itemized expenses; they take precedence over Expenses.
	ExpenseItems []ExpenseItem

	// TicketFees are the fee templates applied to ticket sales.
	TicketFees []TicketFeeTemplate

	// ProductionExpenseAllocations are the show's share of production overhead.
	ProductionExpenseAllocations []ProductionExpenseAllocation

	// DataConfirmed marks ticket-sales figures as final, including a genuine zero.
	DataConfirmed bool
}

// ExpenseItem is one itemized show expense.
type ExpenseItem struct {
	Description string
	Amount      decimal.Decimal
}

// TicketFeeTemplate describes a ticketing fee: a flat amount per ticket plus
// a percentage of ticket revenue.
type TicketFeeTemplate struct {
	Name          string
	FlatPerTicket decimal.Decimal
	Percentage    decimal.Decimal
}

// ProductionExpenseAllocation is a portion of a production-level expense
// apportioned to this show.
type ProductionExpenseAllocation struct {
	Name   string
	Amount decimal.Decimal
}
