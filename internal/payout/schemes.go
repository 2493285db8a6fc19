package payout

import (
	"context"
	"errors"
	"strings"

	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/storage"
)

// Schemes manages a production's payout schemes.
type Schemes struct {
	deps
}

// NewSchemes creates a Schemes backed by store.
func NewSchemes(store storage.Store, opts ...Option) *Schemes {
	return &Schemes{deps: newDeps(store, opts)}
}

// canonicalRules validates a rules document and returns its canonical encoding.
func canonicalRules(doc []byte) ([]byte, error) {
	r, err := parseRules(doc)
	if err != nil {
		return nil, err
	}
	return r.MarshalJSON()
}

// Create validates and stores a new scheme at version 1.
func (s *Schemes) Create(ctx context.Context, scheme *models.PayoutScheme) error {
	scheme.Name = strings.TrimSpace(scheme.Name)
	if scheme.ProductionID == "" || scheme.Name == "" {
		return errors.New("scheme needs a production and a name")
	}
	doc, err := canonicalRules(scheme.Rules)
	if err != nil {
		return err
	}
	scheme.Rules = doc
	scheme.Version = 1

	err = s.store.WithTx(ctx, func(q storage.Queries) error {
		return q.CreateScheme(ctx, scheme)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Payout scheme created", "scheme_id", scheme.ID, "production_id", scheme.ProductionID,
		"name", scheme.Name, "default", scheme.IsDefault)
	return nil
}

// UpdateRules replaces a scheme's rules and bumps its version. Payouts
// already calculated keep the version they were calculated with.
func (s *Schemes) UpdateRules(ctx context.Context, schemeID string, doc []byte) (*models.PayoutScheme, error) {
	canonical, err := canonicalRules(doc)
	if err != nil {
		return nil, err
	}
	scheme, err := s.store.UpdateSchemeRules(ctx, schemeID, canonical)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Payout scheme updated", "scheme_id", scheme.ID, "version", scheme.Version)
	return scheme, nil
}

// SetDefault makes schemeID the production's only default scheme.
func (s *Schemes) SetDefault(ctx context.Context, productionID, schemeID string) error {
	if err := s.store.SetDefaultScheme(ctx, productionID, schemeID); err != nil {
		return err
	}
	s.logger.Info("Default payout scheme changed", "production_id", productionID, "scheme_id", schemeID)
	return nil
}

// Delete removes a scheme. It fails with storage.ErrInUse while a show or a
// payout references the scheme, or while it is the production default.
func (s *Schemes) Delete(ctx context.Context, schemeID string) error {
	err := s.store.WithTx(ctx, func(q storage.Queries) error {
		return q.DeleteScheme(ctx, schemeID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Payout scheme deleted", "scheme_id", schemeID)
	return nil
}

func (s *Schemes) Get(ctx context.Context, schemeID string) (*models.PayoutScheme, error) {
	return s.store.GetScheme(ctx, schemeID)
}

func (s *Schemes) List(ctx context.Context, productionID string) ([]*models.PayoutScheme, error) {
	return s.store.ListSchemes(ctx, productionID)
}
