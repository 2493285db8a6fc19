package rules

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// OverrideType is how an override amount is interpreted.
type OverrideType string

const (
	// OverrideFlat replaces the computed amount with Amount.
	OverrideFlat OverrideType = "flat"

	// OverridePerTicket replaces the computed amount with ticket_count * Amount.
	OverridePerTicket OverrideType = "per_ticket"
)

// Override replaces one performer's computed amount. It is applied after
// distribution and never changes the pool or anyone else's share.
type Override struct {
	Type   OverrideType
	Amount decimal.Decimal
}

// rawOverride accepts both {"flat_amount": X} and {"fixed_type": T, "amount": X}.
type rawOverride struct {
	FlatAmount *decimal.Decimal `json:"flat_amount,omitempty"`
	FixedType  OverrideType     `json:"fixed_type,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

func parseOverride(key string, data json.RawMessage) (Override, error) {
	field := "performer_overrides." + key
	if key == "" {
		return Override{}, invalid("performer_overrides", "override key must not be empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw rawOverride
	if err := dec.Decode(&raw); err != nil {
		return Override{}, invalid(field, "%v", err)
	}

	switch {
	case raw.FlatAmount != nil && (raw.FixedType != "" || raw.Amount != nil):
		return Override{}, invalid(field, "use either flat_amount or fixed_type/amount, not both")
	case raw.FlatAmount != nil:
		if err := nonNegative(field+".flat_amount", *raw.FlatAmount); err != nil {
			return Override{}, err
		}
		return Override{Type: OverrideFlat, Amount: *raw.FlatAmount}, nil
	case raw.Amount != nil:
		t := raw.FixedType
		if t == "" {
			t = OverrideFlat
		}
		if t != OverrideFlat && t != OverridePerTicket {
			return Override{}, invalid(field+".fixed_type", "unknown override type %q", raw.FixedType)
		}
		if err := nonNegative(field+".amount", *raw.Amount); err != nil {
			return Override{}, err
		}
		return Override{Type: t, Amount: *raw.Amount}, nil
	}
	return Override{}, invalid(field, "must set flat_amount or amount")
}

func fromOverride(o Override) rawOverride {
	amt := o.Amount
	return rawOverride{FixedType: o.Type, Amount: &amt}
}
