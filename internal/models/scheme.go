package models

// PayoutScheme is a named, versioned rules document owned by a production.
type PayoutScheme struct {
	// ID is the unique identifier for the scheme (UUID format).
	ID string

	// ProductionID scopes the scheme; Name is unique within a production.
	ProductionID string
	Name         string

	// Rules is the JSON rules document. It is validated before it is stored.
	Rules []byte

	// IsDefault marks the production's default scheme. At most one per production.
	IsDefault bool

	// Version increments every time Rules changes.
	Version int

	CreatedAt int64
	UpdatedAt int64
}
