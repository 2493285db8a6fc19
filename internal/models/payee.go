package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayeeType identifies the kind of payee a line item or roster entry refers to.
type PayeeType string

const (
	PayeePerson PayeeType = "Person"
	PayeeGroup  PayeeType = "Group"
	PayeeGuest  PayeeType = "Guest"
)

// Payee is who receives a line item: a platform identity (Person or Group)
// or a guest known only by name. The concrete types are NamedPayee and GuestPayee.
type Payee interface {
	// Type reports whether this is a person, group or guest.
	Type() PayeeType

	// Key is the identifier used for performer overrides and per-performer shares.
	// Persons use their id, groups "group:<id>", guests "guest:<name>".
	Key() string

	// Label is a human-readable description used in logs and formulas.
	Label() string

	isPayee()
}

// NamedPayee is a Person or Group with a platform id.
type NamedPayee struct {
	Kind PayeeType
	ID   string
}

// GuestPayee is a roster entry with no platform identity.
type GuestPayee struct {
	Name string
}

// Person returns a named payee for a person id.
func Person(id string) NamedPayee { return NamedPayee{Kind: PayeePerson, ID: id} }

// Group returns a named payee for a group id.
func Group(id string) NamedPayee { return NamedPayee{Kind: PayeeGroup, ID: id} }

// Guest returns a guest payee.
func Guest(name string) GuestPayee { return GuestPayee{Name: name} }

func (p NamedPayee) Type() PayeeType { return p.Kind }

func (p NamedPayee) Key() string {
	if p.Kind == PayeeGroup {
		return "group:" + p.ID
	}
	return p.ID
}

func (p NamedPayee) Label() string { return fmt.Sprintf("%s %s", p.Kind, p.ID) }

func (NamedPayee) isPayee() {}

func (GuestPayee) Type() PayeeType { return PayeeGuest }

func (p GuestPayee) Key() string { return "guest:" + p.Name }

func (p GuestPayee) Label() string { return fmt.Sprintf("Guest %q", p.Name) }

func (GuestPayee) isPayee() {}

// IsGuest reports whether p is a guest payee.
func IsGuest(p Payee) bool {
	_, ok := p.(GuestPayee)
	return ok
}

// ValidatePayee checks that a payee carries the identifying data for its kind.
func ValidatePayee(p Payee) error {
	switch v := p.(type) {
	case NamedPayee:
		if v.Kind != PayeePerson && v.Kind != PayeeGroup {
			return fmt.Errorf("invalid payee type %q", v.Kind)
		}
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("%s payee requires an id", v.Kind)
		}
		if v.Kind == PayeePerson && hasReservedPrefix(v.ID) {
			return fmt.Errorf("person id %q uses a reserved key prefix", v.ID)
		}
	case GuestPayee:
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("guest payee requires a name")
		}
	case nil:
		return fmt.Errorf("payee is required")
	default:
		return fmt.Errorf("unsupported payee %T", p)
	}
	return nil
}

// PayeeColumns flattens a payee into the (payee_type, payee_id, guest_name)
// storage triple. Exactly one of id and guestName is non-empty.
func PayeeColumns(p Payee) (payeeType PayeeType, id string, guestName string) {
	switch v := p.(type) {
	case NamedPayee:
		return v.Kind, v.ID, ""
	case GuestPayee:
		return PayeeGuest, "", v.Name
	}
	return "", "", ""
}

// PayeeFromColumns is the inverse of PayeeColumns.
func PayeeFromColumns(payeeType PayeeType, id, guestName string) (Payee, error) {
	switch payeeType {
	case PayeePerson, PayeeGroup:
		if id == "" || guestName != "" {
			return nil, fmt.Errorf("named payee %s must have an id and no guest name", payeeType)
		}
		return checked(NamedPayee{Kind: payeeType, ID: id})
	case PayeeGuest:
		if guestName == "" || id != "" {
			return nil, fmt.Errorf("guest payee must have a name and no id")
		}
		return checked(GuestPayee{Name: guestName})
	}
	return nil, fmt.Errorf("unknown payee type %q", payeeType)
}

func checked(p Payee) (Payee, error) {
	if err := ValidatePayee(p); err != nil {
		return nil, err
	}
	return p, nil
}

// hasReservedPrefix reports whether a person id would collide with the
// override key of a group or a guest.
func hasReservedPrefix(id string) bool {
	return strings.HasPrefix(id, "group:") || strings.HasPrefix(id, "guest:")
}

// payeeJSON is the wire form of a payee.
type payeeJSON struct {
	Type      PayeeType `json:"payee_type"`
	ID        string    `json:"payee_id,omitempty"`
	GuestName string    `json:"guest_name,omitempty"`
}

// MarshalPayee encodes a payee as {"payee_type", "payee_id"|"guest_name"}.
func MarshalPayee(p Payee) ([]byte, error) {
	t, id, name := PayeeColumns(p)
	return json.Marshal(payeeJSON{Type: t, ID: id, GuestName: name})
}

// UnmarshalPayee decodes the form produced by MarshalPayee.
func UnmarshalPayee(data []byte) (Payee, error) {
	var raw payeeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return PayeeFromColumns(raw.Type, raw.ID, raw.GuestName)
}
