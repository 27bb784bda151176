package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/medtrack/medtrack-api/internal/models"
)

// UnitConversionRepository manages the stored unit conversion table.
type UnitConversionRepository struct {
	db *sqlx.DB
}

// NewUnitConversionRepository constructs the repository.
func NewUnitConversionRepository(db *sqlx.DB) *UnitConversionRepository {
	return &UnitConversionRepository{db: db}
}

const conversionColumns = `id, from_unit, to_unit, multiplier, enabled, created_at, updated_at`

// Find returns the enabled conversion for the exact ordered pair.
func (r *UnitConversionRepository) Find(ctx context.Context, fromUnit, toUnit string) (*models.UnitConversion, error) {
	const query = `SELECT ` + conversionColumns + ` FROM unit_conversions
WHERE from_unit = $1 AND to_unit = $2 AND enabled`
	var conv models.UnitConversion
	if err := r.db.GetContext(ctx, &conv, query, fromUnit, toUnit); err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns every stored conversion.
func (r *UnitConversionRepository) List(ctx context.Context) ([]models.UnitConversion, error) {
	const query = `SELECT ` + conversionColumns + ` FROM unit_conversions ORDER BY from_unit ASC, to_unit ASC`
	var conversions []models.UnitConversion
	if err := r.db.SelectContext(ctx, &conversions, query); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return conversions, nil
}

// Upsert creates or replaces the conversion for the ordered pair, keeping at
// most one stored row per (from_unit, to_unit).
func (r *UnitConversionRepository) Upsert(ctx context.Context, conv *models.UnitConversion) error {
	const query = `INSERT INTO unit_conversions (` + conversionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (from_unit, to_unit)
DO UPDATE SET multiplier = EXCLUDED.multiplier, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query,
		conv.ID, conv.FromUnit, conv.ToUnit, conv.Multiplier, conv.Enabled, conv.CreatedAt, conv.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert conversion: %w", err)
	}
	return nil
}

// Delete removes the conversion for the ordered pair.
func (r *UnitConversionRepository) Delete(ctx context.Context, fromUnit, toUnit string) error {
	const query = `DELETE FROM unit_conversions WHERE from_unit = $1 AND to_unit = $2`
	if _, err := r.db.ExecContext(ctx, query, fromUnit, toUnit); err != nil {
		return fmt.Errorf("delete conversion: %w", err)
	}
	return nil
}
