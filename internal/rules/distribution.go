package rules

import (
	"github.com/shopspring/decimal"
)

// Method names a distribution method.
type Method string

const (
	MethodEqual               Method = "equal"
	MethodShares              Method = "shares"
	MethodPerTicket           Method = "per_ticket"
	MethodPerTicketGuaranteed Method = "per_ticket_guaranteed"
	MethodFlatFee             Method = "flat_fee"
	MethodNoPay               Method = "no_pay"
)

// UsesPool reports whether the method divides the performer pool.
// The other methods pay from a fee schedule independent of the pool.
func (m Method) UsesPool() bool {
	return m == MethodEqual || m == MethodShares
}

// Distribution is a distribution configuration. The concrete types are
// Equal, Shares, PerTicket, PerTicketGuaranteed, FlatFee and NoPay.
type Distribution interface {
	Method() Method
	isDistribution()
}

// Equal splits the pool evenly.
type Equal struct{}

// Shares splits the pool in proportion to each performer's shares.
type Shares struct {
	// DefaultShares applies to performers without an entry in PerformerShares.
	DefaultShares decimal.Decimal

	// PerformerShares is keyed by models.Payee.Key().
	PerformerShares map[string]decimal.Decimal
}

// PerTicket pays ticket_count * Rate to every performer.
type PerTicket struct {
	Rate decimal.Decimal
}

// PerTicketGuaranteed pays max(ticket_count * Rate, Minimum) to every performer.
type PerTicketGuaranteed struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
}

// FlatFee pays Amount to every performer.
type FlatFee struct {
	Amount decimal.Decimal
}

// NoPay pays nothing.
type NoPay struct{}

func (Equal) Method() Method               { return MethodEqual }
func (Shares) Method() Method              { return MethodShares }
func (PerTicket) Method() Method           { return MethodPerTicket }
func (PerTicketGuaranteed) Method() Method { return MethodPerTicketGuaranteed }
func (FlatFee) Method() Method             { return MethodFlatFee }
func (NoPay) Method() Method               { return MethodNoPay }

func (Equal) isDistribution()               {}
func (Shares) isDistribution()              {}
func (PerTicket) isDistribution()           {}
func (PerTicketGuaranteed) isDistribution() {}
func (FlatFee) isDistribution()             {}
func (NoPay) isDistribution()               {}

// SharesFor returns the share weight for a performer key.
func (s Shares) SharesFor(key string) decimal.Decimal {
	if v, ok := s.PerformerShares[key]; ok {
		return v
	}
	return s.DefaultShares
}

type rawDistribution struct {
	Method          Method                     `json:"method"`
	DefaultShares   *decimal.Decimal           `json:"default_shares,omitempty"`
	PerformerShares map[string]decimal.Decimal `json:"performer_shares,omitempty"`
	PerTicketRate   *decimal.Decimal           `json:"per_ticket_rate,omitempty"`
	Minimum         *decimal.Decimal           `json:"minimum,omitempty"`
	FlatAmount      *decimal.Decimal           `json:"flat_amount,omitempty"`
}

func (r rawDistribution) toDistribution() (Distribution, error) {
	switch r.Method {
	case MethodEqual:
		return Equal{}, nil
	case MethodShares:
		def := decimal.NewFromInt(1)
		if r.DefaultShares != nil {
			def = *r.DefaultShares
		}
		if def.Sign() <= 0 {
			return nil, invalid("distribution.default_shares", "must be positive, got %s", def)
		}
		shares := make(map[string]decimal.Decimal, len(r.PerformerShares))
		for k, v := range r.PerformerShares {
			if err := nonNegative("distribution.performer_shares."+k, v); err != nil {
				return nil, err
			}
			shares[k] = v
		}
		return Shares{DefaultShares: def, PerformerShares: shares}, nil
	case MethodPerTicket:
		if r.PerTicketRate == nil {
			return nil, invalid("distribution.per_ticket_rate", "is required for %s", r.Method)
		}
		if err := nonNegative("distribution.per_ticket_rate", *r.PerTicketRate); err != nil {
			return nil, err
		}
		return PerTicket{Rate: *r.PerTicketRate}, nil
	case MethodPerTicketGuaranteed:
		if r.PerTicketRate == nil {
			return nil, invalid("distribution.per_ticket_rate", "is required for %s", r.Method)
		}
		if r.Minimum == nil {
			return nil, invalid("distribution.minimum", "is required for %s", r.Method)
		}
		if err := nonNegative("distribution.per_ticket_rate", *r.PerTicketRate); err != nil {
			return nil, err
		}
		if err := nonNegative("distribution.minimum", *r.Minimum); err != nil {
			return nil, err
		}
		return PerTicketGuaranteed{Rate: *r.PerTicketRate, Minimum: *r.Minimum}, nil
	case MethodFlatFee:
		if r.FlatAmount == nil {
			return nil, invalid("distribution.flat_amount", "is required for %s", r.Method)
		}
		if err := nonNegative("distribution.flat_amount", *r.FlatAmount); err != nil {
			return nil, err
		}
		return FlatFee{Amount: *r.FlatAmount}, nil
	case MethodNoPay:
		return NoPay{}, nil
	case "":
		return nil, invalid("distribution.method", "is required")
	}
	return nil, invalid("distribution.method", "unknown distribution method %q", r.Method)
}

func fromDistribution(d Distribution) rawDistribution {
	switch v := d.(type) {
	case Shares:
		def := v.DefaultShares
		return rawDistribution{Method: MethodShares, DefaultShares: &def, PerformerShares: v.PerformerShares}
	case PerTicket:
		rate := v.Rate
		return rawDistribution{Method: MethodPerTicket, PerTicketRate: &rate}
	case PerTicketGuaranteed:
		rate, min := v.Rate, v.Minimum
		return rawDistribution{Method: MethodPerTicketGuaranteed, PerTicketRate: &rate, Minimum: &min}
	case FlatFee:
		amt := v.Amount
		return rawDistribution{Method: MethodFlatFee, FlatAmount: &amt}
	}
	return rawDistribution{Method: d.Method()}
}
