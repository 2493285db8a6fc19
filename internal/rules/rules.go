// Package rules parses and validates payout rules documents.
//
// A rules document has three parts: an ordered list of allocation steps that
// reduce gross revenue to the performer pool, one distribution method that
// splits the pool, and per-performer overrides. Unknown step types, methods or
// override types are rejected when the document is parsed, never at
// calculation time.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when a rules document is missing or empty.
var ErrEmpty = errors.New("rules document is empty")

// ValidationError describes why a rules document was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rules: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Rules is a validated rules document.
type Rules struct {
	// Allocation is the ordered list of house allocation steps.
	// Empty means DefaultAllocation.
	Allocation []Step

	// Distribution splits the performer pool.
	Distribution Distribution

	// Overrides replace the computed amount for individual performers,
	// keyed by models.Payee.Key().
	Overrides map[string]Override
}

// DefaultAllocation is used when a document lists no allocation steps:
// deduct expenses, then everything left goes to the performers.
func DefaultAllocation() []Step {
	return []Step{ExpensesFirst{}, Remainder{To: ToPerformers}}
}

// Steps returns the allocation steps to apply, substituting DefaultAllocation
// for an empty list.
func (r *Rules) Steps() []Step {
	if len(r.Allocation) == 0 {
		return DefaultAllocation()
	}
	return r.Allocation
}

// document is the JSON shape of a rules document.
type document struct {
	Allocation         []rawStep                  `json:"allocation"`
	Distribution       *rawDistribution           `json:"distribution"`
	PerformerOverrides map[string]json.RawMessage `json:"performer_overrides"`
}

// Parse decodes and validates a JSON rules document.
func Parse(data []byte) (*Rules, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, ErrEmpty
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	if doc.Distribution == nil {
		return nil, invalid("distribution", "is required")
	}

	r := &Rules{Overrides: map[string]Override{}}

	for i, raw := range doc.Allocation {
		step, err := raw.toStep(fmt.Sprintf("allocation[%d]", i))
		if err != nil {
			return nil, err
		}
		r.Allocation = append(r.Allocation, step)
	}
	if err := validateOrder(r.Allocation); err != nil {
		return nil, err
	}

	dist, err := doc.Distribution.toDistribution()
	if err != nil {
		return nil, err
	}
	r.Distribution = dist

	for key, raw := range doc.PerformerOverrides {
		o, err := parseOverride(key, raw)
		if err != nil {
			return nil, err
		}
		r.Overrides[key] = o
	}

	return r, nil
}

// MustParse is Parse for static documents; it panics on error.
func MustParse(data string) *Rules {
	r, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return r
}

// MarshalJSON re-encodes the rules in canonical form.
func (r *Rules) MarshalJSON() ([]byte, error) {
	doc := struct {
		Allocation         []rawStep              `json:"allocation"`
		Distribution       rawDistribution        `json:"distribution"`
		PerformerOverrides map[string]rawOverride `json:"performer_overrides,omitempty"`
	}{
		Allocation:   make([]rawStep, 0, len(r.Allocation)),
		Distribution: fromDistribution(r.Distribution),
	}
	for _, s := range r.Allocation {
		doc.Allocation = append(doc.Allocation, fromStep(s))
	}
	if len(r.Overrides) > 0 {
		doc.PerformerOverrides = make(map[string]rawOverride, len(r.Overrides))
		for k, o := range r.Overrides {
			doc.PerformerOverrides[k] = fromOverride(o)
		}
	}
	return json.Marshal(doc)
}

// OverrideKeys returns the override keys in sorted order.
func (r *Rules) OverrideKeys() []string {
	keys := make([]string, 0, len(r.Overrides))
	for k := range r.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid(field, "must not be negative, got %s", d)
	}
	return nil
}
