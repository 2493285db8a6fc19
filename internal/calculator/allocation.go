package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/showpayouts/internal/rules"
)

// StepResult records the effect of one allocation step.
type StepResult struct {
	Type rules.StepType `json:"type"`

	// Requested is what the step asked to remove from the running total.
	Requested decimal.Decimal `json:"requested"`

	// Applied is what was actually removed; it is less than Requested only
	// when the running total would have gone negative.
	Applied decimal.Decimal `json:"applied"`

	// RunningTotal is the total after the step.
	RunningTotal decimal.Decimal `json:"running_total"`

	// Clamped is true when the step hit zero.
	Clamped bool `json:"clamped"`
}

// AllocationResult is the outcome of the allocation stage.
type AllocationResult struct {
	Gross      decimal.Decimal `json:"gross"`
	Deductions decimal.Decimal `json:"deductions"`

	// House is everything moved away from the performers.
	House decimal.Decimal `json:"house"`

	// Pool is what remains for distribution. It is never negative.
	Pool decimal.Decimal `json:"pool"`

	Steps []StepResult `json:"steps"`
}

// Allocate reduces gross revenue to the performer pool by applying steps in order.
//
// Each step removes money from a running total that starts at gross. A step
// that would take the running total below zero removes only what is left and
// is marked Clamped; this applies the same way to every step type. Without an
// expenses_first step the deductions are absorbed by the house and never
// reach the running total. Amounts keep full precision; rounding happens at
// distribution.
func Allocate(gross, deductions decimal.Decimal, steps []rules.Step) (AllocationResult, error) {
	res := AllocationResult{
		Gross:      gross,
		Deductions: deductions,
		Steps:      make([]StepResult, 0, len(steps)),
	}

	running, _ := clampZero(gross)
	house := zero
	for _, step := range steps {
		var requested decimal.Decimal
		toHouse := true

		switch s := step.(type) {
		case rules.Flat:
			requested = s.Amount
		case rules.Percentage:
			requested = gross.Mul(s.Percent).Div(hundred)
		case rules.ExpensesFirst:
			requested = deductions
			toHouse = false
		case rules.Remainder:
			if s.To == rules.ToPerformers {
				requested = zero
			} else {
				requested = running
			}
		default:
			return AllocationResult{}, fmt.Errorf("unsupported allocation step %T", step)
		}

		if requested.IsNegative() {
			requested = zero
		}
		applied := decimal.Min(requested, running)
		running = running.Sub(applied)
		if toHouse {
			house = house.Add(applied)
		}

		res.Steps = append(res.Steps, StepResult{
			Type:         step.Type(),
			Requested:    requested,
			Applied:      applied,
			RunningTotal: running,
			Clamped:      applied.LessThan(requested),
		})
	}

	res.House = house
	res.Pool = running
	return res, nil
}
