package calculator

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/rules"
)

// Breakdown is the full result of running a snapshot through a rules document.
type Breakdown struct {
	Snapshot     Snapshot
	Allocation   AllocationResult
	Distribution DistributionResult
}

// Compute runs allocation followed by distribution. It does no I/O and does
// not check snapshot completeness; callers gate on Snapshot.Complete.
func Compute(snap Snapshot, r *rules.Rules, roster []models.RoleAssignment) (Breakdown, error) {
	alloc, err := Allocate(snap.TotalRevenue(), snap.Deductions(), r.Steps())
	if err != nil {
		return Breakdown{}, err
	}

	dist, err := Distribute(alloc.Pool, roster, snap.TicketCount, r.Distribution, r.Overrides)
	if err != nil {
		return Breakdown{}, err
	}

	for i := range dist.Allocations {
		in := dist.Allocations[i].Details.Inputs
		if in == nil {
			in = map[string]string{}
			dist.Allocations[i].Details.Inputs = in
		}
		in["gross"] = FormatMoney(alloc.Gross)
		in["deductions"] = FormatMoney(alloc.Deductions)
		in["house"] = FormatMoney(alloc.House)
	}

	return Breakdown{Snapshot: snap, Allocation: alloc, Distribution: dist}, nil
}

// PreviewResult is an estimate for a cast of a given size.
type PreviewResult struct {
	PerPerson decimal.Decimal
	Total     decimal.Decimal
	Pool      decimal.Decimal
}

// Preview estimates per-person and total payouts for performerCount anonymous
// performers. Overrides are not applied because there is no roster to match
// them against; shares distributions use the default share for everyone.
func Preview(snap Snapshot, r *rules.Rules, performerCount int) (PreviewResult, error) {
	if performerCount <= 0 {
		return PreviewResult{}, ErrNoPerformers
	}

	roster := make([]models.RoleAssignment, performerCount)
	for i := range roster {
		roster[i] = models.RoleAssignment{Payee: models.Guest("performer " + strconv.Itoa(i+1))}
	}

	dist := r.Distribution
	if s, ok := dist.(rules.Shares); ok {
		dist = rules.Shares{DefaultShares: s.DefaultShares}
	}
	b, err := Compute(snap, &rules.Rules{Allocation: r.Allocation, Distribution: dist}, roster)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("failed to compute preview: %w", err)
	}

	// The residual from rounding goes to the front of the roster, so the last
	// performer always holds the unadjusted share.
	allocs := b.Distribution.Allocations
	return PreviewResult{
		PerPerson: allocs[len(allocs)-1].Amount,
		Total:     b.Distribution.Total,
		Pool:      b.Allocation.Pool,
	}, nil
}
