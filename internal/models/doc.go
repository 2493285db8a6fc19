// Package models defines the core domain models for show payouts.
//
// # Inputs (owned by the surrounding application)
//
//   - Show: a performance, its financial record and its roster
//   - ShowFinancials: revenue, expenses, ticket fees and overhead allocations
//   - RoleAssignment: one roster entry, paid through a Payee
//
// # Payout records
//
//   - PayoutScheme: a production's named, versioned rules document
//   - ShowPayout: the one payout per show, with a draft/approved/paid lifecycle
//   - LineItem: one payee's amount plus its CalculationDetails audit trail
//   - PayoutEvent: append-only status change history
//
// # Advance ledger
//
//   - PersonAdvance: money paid ahead of a show
//   - AdvanceRecovery: the part of an advance recovered from one line item
//
// # Design Principles
//
//  1. Money is decimal.Decimal throughout; amounts are rounded to cents only when
//     they are assigned to a line item.
//  2. Payee is a closed sum type (NamedPayee | GuestPayee) instead of nullable
//     columns plus a discriminator string.
//  3. Relationships are ID strings, not pointers.
package models
