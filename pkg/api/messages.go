// Package api defines the PayoutService wire messages. Amounts are decimal
// strings with two fraction digits, for example "400.00".
package api

import "encoding/json"

// Payee identifies who a line item pays. Type is "Person", "Group" or
// "Guest"; guests carry GuestName instead of ID.
type Payee struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	GuestName string `json:"guest_name,omitempty"`
}

type RoleAssignment struct {
	RoleName string `json:"role_name,omitempty"`
	Payee    Payee  `json:"payee"`
}

type ExpenseItem struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type TicketFee struct {
	Name          string `json:"name"`
	FlatPerTicket string `json:"flat_per_ticket,omitempty"`
	Percentage    string `json:"percentage,omitempty"`
}

type ProductionExpenseAllocation struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Financials is a show's revenue and expense record. RevenueType is
// "ticket_sales" (the default) or "flat_fee".
type Financials struct {
	RevenueType                  string                        `json:"revenue_type,omitempty"`
	TicketCount                  int                           `json:"ticket_count,omitempty"`
	TicketRevenue                string                        `json:"ticket_revenue,omitempty"`
	FlatFee                      string                        `json:"flat_fee,omitempty"`
	OtherRevenue                 string                        `json:"other_revenue,omitempty"`
	Expenses                     string                        `json:"expenses,omitempty"`
	ExpenseItems                 []ExpenseItem                 `json:"expense_items,omitempty"`
	TicketFees                   []TicketFee                   `json:"ticket_fees,omitempty"`
	ProductionExpenseAllocations []ProductionExpenseAllocation `json:"production_expense_allocations,omitempty"`
	DataConfirmed                bool                          `json:"data_confirmed,omitempty"`
}

type Show struct {
	ID             string           `json:"id"`
	ProductionID   string           `json:"production_id"`
	DateAndTime    int64            `json:"date_and_time,omitempty"`
	PayoutSchemeID string           `json:"payout_scheme_id,omitempty"`
	Financials     *Financials      `json:"financials,omitempty"`
	Roster         []RoleAssignment `json:"roster,omitempty"`
}

type Payout struct {
	ID            string `json:"id"`
	ShowID        string `json:"show_id"`
	Status        string `json:"status"`
	SchemeID      string `json:"scheme_id,omitempty"`
	SchemeVersion int    `json:"scheme_version,omitempty"`
	TotalPayout   string `json:"total_payout"`
	Version       int64  `json:"version"`
	CalculatedAt  int64  `json:"calculated_at,omitempty"`
	ApprovedAt    int64  `json:"approved_at,omitempty"`
	PaidAt        int64  `json:"paid_at,omitempty"`

	// OverrideRules is the per-show rules document, if one is set.
	OverrideRules json.RawMessage `json:"override_rules,omitempty"`
}

// LineItem is one payee's amount. Details is the calculation breakdown.
type LineItem struct {
	ID                string          `json:"id"`
	Payee             Payee           `json:"payee"`
	Position          int             `json:"position"`
	Amount            string          `json:"amount"`
	AdvanceDeduction  string          `json:"advance_deduction"`
	NetAmount         string          `json:"net_amount"`
	Details           json.RawMessage `json:"calculation_details"`
	ManuallyPaid      bool            `json:"manually_paid,omitempty"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	PayoutStatus      string          `json:"payout_status"`
	PayoutReferenceID string          `json:"payout_reference_id,omitempty"`
	PaidAt            int64           `json:"paid_at,omitempty"`
}

type PayoutEvent struct {
	FromStatus string          `json:"from_status"`
	ToStatus   string          `json:"to_status"`
	Actor      string          `json:"actor,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Total      string          `json:"total"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// AllocationStep reports what one allocation step took from the running total.
type AllocationStep struct {
	Type         string `json:"type"`
	Requested    string `json:"requested"`
	Applied      string `json:"applied"`
	RunningTotal string `json:"running_total"`
	Clamped      bool   `json:"clamped,omitempty"`
}

type Allocation struct {
	Gross      string           `json:"gross"`
	Deductions string           `json:"deductions"`
	House      string           `json:"house"`
	Pool       string           `json:"pool"`
	Steps      []AllocationStep `json:"steps,omitempty"`
}

type Scheme struct {
	ID           string          `json:"id"`
	ProductionID string          `json:"production_id"`
	Name         string          `json:"name"`
	Rules        json.RawMessage `json:"rules"`
	IsDefault    bool            `json:"is_default"`
	Version      int             `json:"version"`
}

type Advance struct {
	ID               string `json:"id"`
	PersonID         string `json:"person_id"`
	ProductionID     string `json:"production_id"`
	ShowID           string `json:"show_id,omitempty"`
	OriginalAmount   string `json:"original_amount"`
	RemainingBalance string `json:"remaining_balance"`
	Status           string `json:"status"`
	Note             string `json:"note,omitempty"`
	CreatedAt        int64  `json:"created_at"`
}

type UpsertShowRequest struct {
	Show Show `json:"show"`
}

type UpsertShowResponse struct {
	ShowID string `json:"show_id"`
}

// CalculatePayoutRequest calculates a show with its effective rules. When
// OverrideRules is set it is stored on the payout first and replaces the
// show's scheme from then on.
type CalculatePayoutRequest struct {
	ShowID        string          `json:"show_id"`
	OverrideRules json.RawMessage `json:"override_rules,omitempty"`
}

type CalculatePayoutResponse struct {
	Payout     Payout     `json:"payout"`
	LineItems  []LineItem `json:"line_items"`
	Allocation Allocation `json:"allocation"`
	Warnings   []string   `json:"warnings,omitempty"`
}

type PreviewPayoutRequest struct {
	Rules          json.RawMessage `json:"rules"`
	Financials     *Financials     `json:"financials"`
	PerformerCount int             `json:"performer_count"`
}

type PreviewPayoutResponse struct {
	PerPerson string `json:"per_person"`
	Total     string `json:"total"`
	Pool      string `json:"pool"`
}

type GetPayoutRequest struct {
	ShowID string `json:"show_id"`
}

type GetPayoutResponse struct {
	Payout    Payout        `json:"payout"`
	LineItems []LineItem    `json:"line_items"`
	Events    []PayoutEvent `json:"events,omitempty"`
}

// Transition actions.
const (
	ActionApprove  = "approve"
	ActionRevert   = "revert"
	ActionMarkPaid = "mark_paid"
	ActionUnwind   = "unwind"
)

type TransitionPayoutRequest struct {
	PayoutID string `json:"payout_id"`
	Action   string `json:"action"`

	// Reason is required for unwind.
	Reason string `json:"reason,omitempty"`
}

type TransitionPayoutResponse struct {
	Payout Payout `json:"payout"`
}

type MarkLineItemPaidRequest struct {
	LineItemID string `json:"line_item_id"`
	Method     string `json:"method,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

type MarkLineItemPaidResponse struct {
	LineItem LineItem `json:"line_item"`
}

// SaveSchemeRequest creates a scheme when ID is empty and otherwise replaces
// the rules of an existing one.
type SaveSchemeRequest struct {
	ID           string          `json:"id,omitempty"`
	ProductionID string          `json:"production_id"`
	Name         string          `json:"name"`
	Rules        json.RawMessage `json:"rules"`
	IsDefault    bool            `json:"is_default,omitempty"`
}

type SaveSchemeResponse struct {
	Scheme Scheme `json:"scheme"`
}

type SetDefaultSchemeRequest struct {
	ProductionID string `json:"production_id"`
	SchemeID     string `json:"scheme_id"`
}

type SetDefaultSchemeResponse struct{}

type DeleteSchemeRequest struct {
	SchemeID string `json:"scheme_id"`
}

type DeleteSchemeResponse struct{}

type ListSchemesRequest struct {
	ProductionID string `json:"production_id"`
}

type ListSchemesResponse struct {
	Schemes []Scheme `json:"schemes"`
}

type CreateAdvanceRequest struct {
	PersonID     string `json:"person_id"`
	ProductionID string `json:"production_id"`
	ShowID       string `json:"show_id,omitempty"`
	Amount       string `json:"amount"`
	Note         string `json:"note,omitempty"`
}

type CreateAdvanceResponse struct {
	Advance Advance `json:"advance"`
}

type WriteOffAdvanceRequest struct {
	AdvanceID string `json:"advance_id"`
}

type WriteOffAdvanceResponse struct {
	Advance Advance `json:"advance"`
}

type ListAdvancesRequest struct {
	PersonID        string `json:"person_id,omitempty"`
	ProductionID    string `json:"production_id,omitempty"`
	OutstandingOnly bool   `json:"outstanding_only,omitempty"`
}

type ListAdvancesResponse struct {
	Advances []Advance `json:"advances"`
}
