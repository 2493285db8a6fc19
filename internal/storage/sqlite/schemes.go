package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/storage"
)

const selectScheme = `
SELECT s.id, s.production_id, s.name, s.rules, s.version, s.created_at, s.updated_at,
       d.scheme_id IS NOT NULL
FROM payout_schemes s
LEFT JOIN production_default_schemes d ON d.production_id = s.production_id AND d.scheme_id = s.id`

func scanScheme(row interface{ Scan(...any) error }) (*models.PayoutScheme, error) {
	scheme := &models.PayoutScheme{}
	var (
		rules     string
		isDefault int
	)
	if err := row.Scan(&scheme.ID, &scheme.ProductionID, &scheme.Name, &rules, &scheme.Version,
		&scheme.CreatedAt, &scheme.UpdatedAt, &isDefault); err != nil {
		return nil, err
	}
	scheme.Rules = []byte(rules)
	scheme.IsDefault = isDefault != 0
	return scheme, nil
}

// CreateScheme persists a new payout scheme. A scheme created with IsDefault
// becomes the production default.
func (s *queries) CreateScheme(ctx context.Context, scheme *models.PayoutScheme) error {
	if scheme.ID == "" {
		scheme.ID = uuid.New().String()
	}
	ts := now()
	if scheme.CreatedAt == 0 {
		scheme.CreatedAt = ts
	}
	scheme.UpdatedAt = ts
	if scheme.Version == 0 {
		scheme.Version = 1
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payout_schemes (id, production_id, name, rules, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scheme.ID, scheme.ProductionID, scheme.Name, string(scheme.Rules), scheme.Version,
		scheme.CreatedAt, scheme.UpdatedAt,
	)
	if isUniqueError(err) {
		return fmt.Errorf("scheme %q already exists in production %s: %w", scheme.Name, scheme.ProductionID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert scheme: %w", err)
	}

	if scheme.IsDefault {
		return s.SetDefaultScheme(ctx, scheme.ProductionID, scheme.ID)
	}
	return nil
}

// GetScheme retrieves a scheme by ID.
func (s *queries) GetScheme(ctx context.Context, schemeID string) (*models.PayoutScheme, error) {
	scheme, err := scanScheme(s.q.QueryRowContext(ctx, selectScheme+" WHERE s.id = ?", schemeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payout scheme", schemeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheme: %w", err)
	}
	return scheme, nil
}

// GetDefaultScheme retrieves the production's default scheme.
func (s *queries) GetDefaultScheme(ctx context.Context, productionID string) (*models.PayoutScheme, error) {
	scheme, err := scanScheme(s.q.QueryRowContext(ctx,
		selectScheme+" WHERE s.production_id = ? AND d.scheme_id IS NOT NULL", productionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("default scheme for production", productionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default scheme: %w", err)
	}
	return scheme, nil
}

// ListSchemes returns the production's schemes ordered by name.
func (s *queries) ListSchemes(ctx context.Context, productionID string) ([]*models.PayoutScheme, error) {
	rows, err := s.q.QueryContext(ctx, selectScheme+" WHERE s.production_id = ? ORDER BY s.name", productionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemes: %w", err)
	}
	defer rows.Close()

	var schemes []*models.PayoutScheme
	for rows.Next() {
		scheme, err := scanScheme(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheme: %w", err)
		}
		schemes = append(schemes, scheme)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schemes: %w", err)
	}
	return schemes, nil
}

// UpdateSchemeRules replaces the rules document and bumps the version.
func (s *queries) UpdateSchemeRules(ctx context.Context, schemeID string, rules []byte) (*models.PayoutScheme, error) {
	res, err := s.q.ExecContext(ctx,
		"UPDATE payout_schemes SET rules = ?, version = version + 1, updated_at = ? WHERE id = ?",
		string(rules), now(), schemeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update scheme rules: %w", err)
	}
	if err := expectOne(res, "payout scheme", schemeID); err != nil {
		return nil, err
	}
	return s.GetScheme(ctx, schemeID)
}

// SetDefaultScheme points the production's default at schemeID in a single
// statement. There is never a moment with zero or two defaults.
func (s *queries) SetDefaultScheme(ctx context.Context, productionID, schemeID string) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO production_default_schemes (production_id, scheme_id)
		 SELECT production_id, id FROM payout_schemes WHERE id = ? AND production_id = ?
		 ON CONFLICT(production_id) DO UPDATE SET scheme_id = excluded.scheme_id`,
		schemeID, productionID,
	)
	if err != nil {
		return fmt.Errorf("failed to set default scheme: %w", err)
	}
	return expectOne(res, "payout scheme", schemeID)
}

// DeleteScheme removes a scheme that no show or payout references and that
// is not its production's default. Switch the default first.
func (s *queries) DeleteScheme(ctx context.Context, schemeID string) error {
	var refs int
	err := s.q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM shows WHERE payout_scheme_id = ?)
		      + (SELECT COUNT(*) FROM show_payouts WHERE scheme_id = ?)`,
		schemeID, schemeID,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to count scheme references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("payout scheme %s is referenced %d times: %w", schemeID, refs, storage.ErrInUse)
	}

	var defaults int
	err = s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM production_default_schemes WHERE scheme_id = ?", schemeID,
	).Scan(&defaults)
	if err != nil {
		return fmt.Errorf("failed to check default scheme: %w", err)
	}
	if defaults > 0 {
		return fmt.Errorf("payout scheme %s is its production's default: %w", schemeID, storage.ErrInUse)
	}

	res, err := s.q.ExecContext(ctx, "DELETE FROM payout_schemes WHERE id = ?", schemeID)
	if isForeignKeyError(err) {
		return fmt.Errorf("payout scheme %s: %w", schemeID, storage.ErrInUse)
	}
	if err != nil {
		return fmt.Errorf("failed to delete scheme: %w", err)
	}
	return expectOne(res, "payout scheme", schemeID)
}
