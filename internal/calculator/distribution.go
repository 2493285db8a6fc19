package calculator

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/rules"
)

var (
	// ErrNoPerformers is returned when the roster is empty.
	ErrNoPerformers = errors.New("no performers to distribute to")

	// ErrZeroShares is returned when a shares distribution has a positive
	// pool but every performer holds zero shares.
	ErrZeroShares = errors.New("total shares is zero")

	// ErrUnknownMethod is returned for a distribution config the engine
	// does not implement.
	ErrUnknownMethod = errors.New("unknown distribution method")
)

// UniquePerformers drops repeated payees from a roster, keeping the first role
// assignment of each. A performer cast in two roles is paid once.
func UniquePerformers(roster []models.RoleAssignment) []models.RoleAssignment {
	seen := make(map[string]bool, len(roster))
	out := make([]models.RoleAssignment, 0, len(roster))
	for _, ra := range roster {
		key := ra.Payee.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ra)
	}
	return out
}

// Allocation is one performer's computed amount.
type Allocation struct {
	Payee   models.Payee
	Amount  decimal.Decimal
	Details models.CalculationDetails
}

// DistributionResult is the output of the distribution stage.
type DistributionResult struct {
	Allocations []Allocation

	// Total is the sum of Allocations after overrides.
	Total decimal.Decimal

	// IgnoredOverrides lists override keys with no matching roster entry.
	IgnoredOverrides []string
}

// Distribute divides the performer pool among the roster.
//
// Allocations are returned in roster order. Pool-based methods (equal, shares)
// round each share half-up to cents and then move the residual one cent at a
// time onto allocations in roster order, so the amounts always sum to the pool
// rounded to cents. Overrides are applied afterwards and only replace the
// amount of the performer they name.
func Distribute(pool decimal.Decimal, roster []models.RoleAssignment, ticketCount int, dist rules.Distribution, overrides map[string]rules.Override) (DistributionResult, error) {
	if len(roster) == 0 {
		return DistributionResult{}, ErrNoPerformers
	}
	for i, ra := range roster {
		if err := models.ValidatePayee(ra.Payee); err != nil {
			return DistributionResult{}, fmt.Errorf("roster[%d]: %w", i, err)
		}
	}
	roster = UniquePerformers(roster)

	var (
		allocs []Allocation
		err    error
	)
	switch d := dist.(type) {
	case rules.Equal:
		allocs = distributeEqual(pool, roster)
	case rules.Shares:
		allocs, err = distributeShares(pool, roster, d)
	case rules.PerTicket:
		allocs = distributeFixed(roster, rules.MethodPerTicket, perTicketAmount(d.Rate, ticketCount), map[string]string{
			"ticket_count":    strconv.Itoa(ticketCount),
			"per_ticket_rate": FormatMoney(d.Rate),
		}, fmt.Sprintf("%d tickets × %s", ticketCount, FormatMoney(d.Rate)))
	case rules.PerTicketGuaranteed:
		computed := perTicketAmount(d.Rate, ticketCount)
		amount := decimal.Max(computed, d.Minimum)
		formula := fmt.Sprintf("max(%d tickets × %s = %s, minimum %s)",
			ticketCount, FormatMoney(d.Rate), FormatMoney(computed), FormatMoney(d.Minimum))
		allocs = distributeFixed(roster, rules.MethodPerTicketGuaranteed, amount, map[string]string{
			"ticket_count":    strconv.Itoa(ticketCount),
			"per_ticket_rate": FormatMoney(d.Rate),
			"minimum":         FormatMoney(d.Minimum),
			"computed":        FormatMoney(computed),
		}, formula)
	case rules.FlatFee:
		allocs = distributeFixed(roster, rules.MethodFlatFee, d.Amount, map[string]string{
			"flat_amount": FormatMoney(d.Amount),
		}, "flat fee "+FormatMoney(d.Amount))
	case rules.NoPay:
		allocs = distributeFixed(roster, rules.MethodNoPay, zero, map[string]string{}, "no pay")
	default:
		return DistributionResult{}, fmt.Errorf("%w: %T", ErrUnknownMethod, dist)
	}
	if err != nil {
		return DistributionResult{}, err
	}

	ignored := applyOverrides(allocs, overrides, ticketCount)

	total := zero
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return DistributionResult{Allocations: allocs, Total: total, IgnoredOverrides: ignored}, nil
}

func perTicketAmount(rate decimal.Decimal, ticketCount int) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(ticketCount)))
}

func distributeEqual(pool decimal.Decimal, roster []models.RoleAssignment) []Allocation {
	count := decimal.NewFromInt(int64(len(roster)))
	share := pool.Div(count)

	allocs := make([]Allocation, len(roster))
	exact := make([]decimal.Decimal, len(roster))
	for i, ra := range roster {
		exact[i] = share
		allocs[i] = Allocation{
			Payee: ra.Payee,
			Details: models.CalculationDetails{
				Method: string(rules.MethodEqual),
				Inputs: map[string]string{
					"pool":            FormatMoney(pool),
					"performer_count": strconv.Itoa(len(roster)),
				},
				Formula: fmt.Sprintf("%s / %d", FormatMoney(pool), len(roster)),
			},
		}
	}
	assignRounded(pool, exact, allocs)
	return allocs
}

func distributeShares(pool decimal.Decimal, roster []models.RoleAssignment, d rules.Shares) ([]Allocation, error) {
	shares := make([]decimal.Decimal, len(roster))
	totalShares := zero
	for i, ra := range roster {
		shares[i] = d.SharesFor(ra.Payee.Key())
		totalShares = totalShares.Add(shares[i])
	}
	if totalShares.IsZero() && pool.Sign() > 0 {
		return nil, ErrZeroShares
	}

	allocs := make([]Allocation, len(roster))
	exact := make([]decimal.Decimal, len(roster))
	for i, ra := range roster {
		if totalShares.IsZero() {
			exact[i] = zero
		} else {
			exact[i] = pool.Mul(shares[i]).Div(totalShares)
		}
		allocs[i] = Allocation{
			Payee: ra.Payee,
			Details: models.CalculationDetails{
				Method: string(rules.MethodShares),
				Inputs: map[string]string{
					"pool":         FormatMoney(pool),
					"shares":       shares[i].String(),
					"total_shares": totalShares.String(),
				},
				Formula: fmt.Sprintf("%s × %s / %s", FormatMoney(pool), shares[i].String(), totalShares.String()),
			},
		}
	}
	assignRounded(pool, exact, allocs)
	return allocs, nil
}

// assignRounded floors each exact share to cents and hands the residual out
// one cent at a time, largest remainder first and roster order among equal
// remainders, so the amounts sum to the rounded pool. Flooring never exceeds
// the rounded pool, so no amount is ever reduced. Allocations with a zero
// exact share never receive an adjustment.
func assignRounded(pool decimal.Decimal, exact []decimal.Decimal, allocs []Allocation) {
	target := RoundMoney(pool)
	sum := zero
	for i := range allocs {
		allocs[i].Amount = exact[i].Truncate(Cents)
		sum = sum.Add(allocs[i].Amount)
	}

	residual := target.Sub(sum)
	if residual.Sign() <= 0 {
		return
	}
	order := make([]int, 0, len(allocs))
	for i := range allocs {
		if exact[i].Sign() > 0 {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra := exact[order[a]].Sub(allocs[order[a]].Amount)
		rb := exact[order[b]].Sub(allocs[order[b]].Amount)
		return ra.GreaterThan(rb)
	})

	for k := 0; residual.Sign() > 0; k = (k + 1) % len(order) {
		i := order[k]
		allocs[i].Amount = allocs[i].Amount.Add(oneCent)
		residual = residual.Sub(oneCent)
		prev := zero
		if allocs[i].Details.RoundingAdjustment != "" {
			prev = decimal.RequireFromString(allocs[i].Details.RoundingAdjustment)
		}
		allocs[i].Details.RoundingAdjustment = FormatMoney(prev.Add(oneCent))
	}

	for i := range allocs {
		if allocs[i].Details.RoundingAdjustment == "" {
			continue
		}
		allocs[i].Details.Formula += " (rounding +" + allocs[i].Details.RoundingAdjustment + ")"
	}
}

func distributeFixed(roster []models.RoleAssignment, method rules.Method, amount decimal.Decimal, inputs map[string]string, formula string) []Allocation {
	rounded := RoundMoney(amount)
	allocs := make([]Allocation, len(roster))
	for i, ra := range roster {
		in := make(map[string]string, len(inputs))
		for k, v := range inputs {
			in[k] = v
		}
		allocs[i] = Allocation{
			Payee:  ra.Payee,
			Amount: rounded,
			Details: models.CalculationDetails{
				Method:  string(method),
				Inputs:  in,
				Formula: formula,
			},
		}
	}
	return allocs
}

// applyOverrides replaces overridden amounts in place and returns the keys of
// overrides that matched no roster entry, in sorted order.
func applyOverrides(allocs []Allocation, overrides map[string]rules.Override, ticketCount int) []string {
	if len(overrides) == 0 {
		return nil
	}
	matched := make(map[string]bool, len(overrides))
	for i := range allocs {
		key := allocs[i].Payee.Key()
		o, ok := overrides[key]
		if !ok {
			continue
		}
		matched[key] = true

		amount := o.Amount
		if o.Type == rules.OverridePerTicket {
			amount = perTicketAmount(o.Amount, ticketCount)
		}
		amount = RoundMoney(amount)

		allocs[i].Details.Override = &models.OverrideDetails{
			Type:           string(o.Type),
			Amount:         FormatMoney(amount),
			ComputedAmount: FormatMoney(allocs[i].Amount),
		}
		allocs[i].Details.Formula = fmt.Sprintf("override %s (computed %s)", FormatMoney(amount), allocs[i].Details.Formula)
		allocs[i].Amount = amount
	}

	var ignored []string
	for _, key := range sortedKeys(overrides) {
		if !matched[key] {
			ignored = append(ignored, key)
		}
	}
	return ignored
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
