package rules

import (
	"github.com/shopspring/decimal"
)

// StepType names an allocation step kind.
type StepType string

const (
	StepFlat          StepType = "flat"
	StepPercentage    StepType = "percentage"
	StepExpensesFirst StepType = "expenses_first"
	StepRemainder     StepType = "remainder"
)

// Recipient is who receives the remainder of the running total.
type Recipient string

const (
	ToPerformers Recipient = "performers"
	ToHouse      Recipient = "house"
)

// Step is one allocation step. The concrete types are Flat, Percentage,
// ExpensesFirst and Remainder.
type Step interface {
	Type() StepType
	isStep()
}

// Flat moves a fixed amount to the house.
type Flat struct {
	Amount decimal.Decimal
}

// Percentage moves a percentage of gross revenue to the house.
type Percentage struct {
	// Percent is in (0, 100].
	Percent decimal.Decimal
}

// ExpensesFirst deducts the show's expenses, ticket fees and overhead allocations.
type ExpensesFirst struct{}

// Remainder assigns whatever is left. It must be the last step.
type Remainder struct {
	To Recipient
}

func (Flat) Type() StepType          { return StepFlat }
func (Percentage) Type() StepType    { return StepPercentage }
func (ExpensesFirst) Type() StepType { return StepExpensesFirst }
func (Remainder) Type() StepType     { return StepRemainder }

func (Flat) isStep()          {}
func (Percentage) isStep()    {}
func (ExpensesFirst) isStep() {}
func (Remainder) isStep()     {}

type rawStep struct {
	Type   StepType         `json:"type"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Value  *decimal.Decimal `json:"value,omitempty"`
	To     Recipient        `json:"to,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func (r rawStep) toStep(field string) (Step, error) {
	switch r.Type {
	case StepFlat:
		if r.Amount == nil {
			return nil, invalid(field+".amount", "is required for a flat step")
		}
		if err := nonNegative(field+".amount", *r.Amount); err != nil {
			return nil, err
		}
		return Flat{Amount: *r.Amount}, nil
	case StepPercentage:
		if r.Value == nil {
			return nil, invalid(field+".value", "is required for a percentage step")
		}
		if r.Value.Sign() <= 0 || r.Value.GreaterThan(hundred) {
			return nil, invalid(field+".value", "must be in (0, 100], got %s", r.Value)
		}
		return Percentage{Percent: *r.Value}, nil
	case StepExpensesFirst:
		return ExpensesFirst{}, nil
	case StepRemainder:
		to := r.To
		if to == "" {
			to = ToPerformers
		}
		if to != ToPerformers && to != ToHouse {
			return nil, invalid(field+".to", "must be %q or %q, got %q", ToPerformers, ToHouse, r.To)
		}
		return Remainder{To: to}, nil
	case "":
		return nil, invalid(field+".type", "is required")
	}
	return nil, invalid(field+".type", "unknown allocation step %q", r.Type)
}

func fromStep(s Step) rawStep {
	switch v := s.(type) {
	case Flat:
		a := v.Amount
		return rawStep{Type: StepFlat, Amount: &a}
	case Percentage:
		p := v.Percent
		return rawStep{Type: StepPercentage, Value: &p}
	case Remainder:
		return rawStep{Type: StepRemainder, To: v.To}
	}
	return rawStep{Type: s.Type()}
}

// validateOrder enforces that remainder is terminal and expenses are deducted once.
func validateOrder(steps []Step) error {
	expenses := 0
	for i, s := range steps {
		switch s.(type) {
		case Remainder:
			if i != len(steps)-1 {
				return invalid("allocation", "remainder must be the last step")
			}
		case ExpensesFirst:
			expenses++
			if expenses > 1 {
				return invalid("allocation", "expenses_first may appear only once")
			}
		}
	}
	return nil
}
