package rules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		doc          string
		wantErr      bool
		validateFunc func(t *testing.T, r *Rules)
	}{
		{
			name: "equal with default allocation",
			doc:  `{"distribution": {"method": "equal"}}`,
			validateFunc: func(t *testing.T, r *Rules) {
				if r.Distribution.Method() != MethodEqual {
					t.Errorf("method = %s, want equal", r.Distribution.Method())
				}
				steps := r.Steps()
				if len(steps) != 2 {
					t.Fatalf("expected 2 default steps, got %d", len(steps))
				}
				if steps[0].Type() != StepExpensesFirst || steps[1].Type() != StepRemainder {
					t.Errorf("unexpected default steps: %v", steps)
				}
			},
		},
		{
			name: "ordered allocation steps",
			doc: `{"allocation": [
				{"type": "expenses_first"},
				{"type": "percentage", "value": 20},
				{"type": "flat", "amount": 100},
				{"type": "remainder", "to": "performers"}
			], "distribution": {"method": "equal"}}`,
			validateFunc: func(t *testing.T, r *Rules) {
				if len(r.Allocation) != 4 {
					t.Fatalf("expected 4 steps, got %d", len(r.Allocation))
				}
				pct, ok := r.Allocation[1].(Percentage)
				if !ok || !pct.Percent.Equal(decimal.NewFromInt(20)) {
					t.Errorf("step 1 = %#v, want Percentage{20}", r.Allocation[1])
				}
				flat, ok := r.Allocation[2].(Flat)
				if !ok || !flat.Amount.Equal(decimal.NewFromInt(100)) {
					t.Errorf("step 2 = %#v, want Flat{100}", r.Allocation[2])
				}
			},
		},
		{
			name: "shares defaults to one share",
			doc:  `{"distribution": {"method": "shares", "performer_shares": {"p1": 2}}}`,
			validateFunc: func(t *testing.T, r *Rules) {
				s := r.Distribution.(Shares)
				if !s.SharesFor("p2").Equal(decimal.NewFromInt(1)) {
					t.Errorf("default shares = %s, want 1", s.SharesFor("p2"))
				}
				if !s.SharesFor("p1").Equal(decimal.NewFromInt(2)) {
					t.Errorf("p1 shares = %s, want 2", s.SharesFor("p1"))
				}
			},
		},
		{
			name: "per ticket guaranteed",
			doc:  `{"distribution": {"method": "per_ticket_guaranteed", "per_ticket_rate": "2.00", "minimum": 150}}`,
			validateFunc: func(t *testing.T, r *Rules) {
				d := r.Distribution.(PerTicketGuaranteed)
				if !d.Rate.Equal(decimal.NewFromInt(2)) || !d.Minimum.Equal(decimal.NewFromInt(150)) {
					t.Errorf("got %#v", d)
				}
			},
		},
		{
			name: "both override forms",
			doc: `{"distribution": {"method": "equal"}, "performer_overrides": {
				"p1": {"flat_amount": 500},
				"guest:Guest Star": {"fixed_type": "per_ticket", "amount": 1.5}
			}}`,
			validateFunc: func(t *testing.T, r *Rules) {
				if o := r.Overrides["p1"]; o.Type != OverrideFlat || !o.Amount.Equal(decimal.NewFromInt(500)) {
					t.Errorf("p1 override = %#v", o)
				}
				if o := r.Overrides["guest:Guest Star"]; o.Type != OverridePerTicket {
					t.Errorf("guest override = %#v", o)
				}
				keys := r.OverrideKeys()
				if len(keys) != 2 || keys[0] != "guest:Guest Star" {
					t.Errorf("OverrideKeys() = %v", keys)
				}
			},
		},
		{name: "unknown method fails fast", doc: `{"distribution": {"method": "lottery"}}`, wantErr: true},
		{name: "missing distribution", doc: `{"allocation": [{"type": "expenses_first"}]}`, wantErr: true},
		{name: "unknown step", doc: `{"allocation": [{"type": "tithe"}], "distribution": {"method": "equal"}}`, wantErr: true},
		{name: "remainder not last", doc: `{"allocation": [{"type": "remainder"}, {"type": "flat", "amount": 1}], "distribution": {"method": "equal"}}`, wantErr: true},
		{name: "percentage over 100", doc: `{"allocation": [{"type": "percentage", "value": 120}], "distribution": {"method": "equal"}}`, wantErr: true},
		{name: "negative flat", doc: `{"allocation": [{"type": "flat", "amount": -5}], "distribution": {"method": "equal"}}`, wantErr: true},
		{name: "remainder bad recipient", doc: `{"allocation": [{"type": "remainder", "to": "charity"}], "distribution": {"method": "equal"}}`, wantErr: true},
		{name: "per ticket without rate", doc: `{"distribution": {"method": "per_ticket"}}`, wantErr: true},
		{name: "zero default shares", doc: `{"distribution": {"method": "shares", "default_shares": 0}}`, wantErr: true},
		{name: "unknown override type", doc: `{"distribution": {"method": "equal"}, "performer_overrides": {"p1": {"fixed_type": "bonus", "amount": 5}}}`, wantErr: true},
		{name: "ambiguous override", doc: `{"distribution": {"method": "equal"}, "performer_overrides": {"p1": {"flat_amount": 5, "amount": 5}}}`, wantErr: true},
		{name: "unknown field", doc: `{"distribution": {"method": "equal"}, "house_cut": 10}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.validateFunc != nil {
				tt.validateFunc(t, r)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, doc := range []string{"", "  ", "null", "{}"} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrEmpty) {
			t.Errorf("Parse(%q) error = %v, want ErrEmpty", doc, err)
		}
	}
}

func TestParse_ValidationError(t *testing.T) {
	_, err := Parse([]byte(`{"distribution": {"method": "lottery"}}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if verr.Field != "distribution.method" {
		t.Errorf("Field = %q, want distribution.method", verr.Field)
	}
}

func TestMarshalJSON_RoundTrip(t *testing.T) {
	original := MustParse(`{
		"allocation": [{"type": "expenses_first"}, {"type": "percentage", "value": 10}, {"type": "remainder", "to": "house"}],
		"distribution": {"method": "per_ticket_guaranteed", "per_ticket_rate": 2, "minimum": 150},
		"performer_overrides": {"p1": {"flat_amount": 500}}
	}`)

	data, err := original.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-parse failed: %v (%s)", err, data)
	}
	data2, err := again.MarshalJSON()
	if err != nil {
		t.Fatalf("second MarshalJSON failed: %v", err)
	}
	if string(data) != string(data2) {
		t.Errorf("canonical form is not stable:\n%s\n%s", data, data2)
	}
	if r, ok := again.Allocation[2].(Remainder); !ok || r.To != ToHouse {
		t.Errorf("remainder step lost: %#v", again.Allocation[2])
	}
}
