package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

// baseScale is the fractional precision carried by base-unit arithmetic.
const baseScale = 6

type conversionStore interface {
	Find(ctx context.Context, fromUnit, toUnit string) (*models.UnitConversion, error)
	List(ctx context.Context) ([]models.UnitConversion, error)
	Upsert(ctx context.Context, conv *models.UnitConversion) error
	Delete(ctx context.Context, fromUnit, toUnit string) error
}

// UnitConverter resolves multiplicative ratios between named units. Lookups
// are single-hop: a direct stored conversion, or the stored reverse pair
// inverted. Chains across intermediate units are not resolved.
type UnitConverter struct {
	repo   conversionStore
	logger *zap.Logger
}

// NewUnitConverter constructs a UnitConverter.
func NewUnitConverter(repo conversionStore, logger *zap.Logger) *UnitConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitConverter{repo: repo, logger: logger}
}

// Convert translates a quantity from one unit to another. Identity when the
// units match; otherwise the stored ratio is applied, dividing when only the
// reverse pair exists.
func (s *UnitConverter) Convert(ctx context.Context, quantity decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	if fromUnit == toUnit {
		return quantity, nil
	}

	direct, err := s.repo.Find(ctx, fromUnit, toUnit)
	if err == nil {
		return quantity.Mul(direct.Multiplier), nil
	}
	if err != sql.ErrNoRows {
		return decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversion")
	}

	reverse, err := s.repo.Find(ctx, toUnit, fromUnit)
	if err == nil {
		if reverse.Multiplier.IsZero() {
			return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "conversion multiplier is zero")
		}
		return quantity.DivRound(reverse.Multiplier, baseScale), nil
	}
	if err != sql.ErrNoRows {
		return decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversion")
	}

	return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "no conversion path between units")
}

// CanConvert reports whether Convert would succeed for the unit pair.
func (s *UnitConverter) CanConvert(ctx context.Context, fromUnit, toUnit string) (bool, error) {
	if fromUnit == toUnit {
		return true, nil
	}
	if _, err := s.repo.Find(ctx, fromUnit, toUnit); err == nil {
		return true, nil
	} else if err != sql.ErrNoRows {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversion")
	}
	if _, err := s.repo.Find(ctx, toUnit, fromUnit); err == nil {
		return true, nil
	} else if err != sql.ErrNoRows {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversion")
	}
	return false, nil
}

// ListConversions returns every stored conversion, enabled or not.
func (s *UnitConverter) ListConversions(ctx context.Context) ([]models.UnitConversion, error) {
	conversions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversions")
	}
	return conversions, nil
}

// UpsertConversion creates or replaces the stored ratio for an ordered unit
// pair. The reverse pair is never written; Convert derives it by inversion.
func (s *UnitConverter) UpsertConversion(ctx context.Context, req dto.UpsertConversionRequest) (*models.UnitConversion, error) {
	if req.FromUnit == req.ToUnit {
		return nil, appErrors.Clone(appErrors.ErrValidation, "units must differ")
	}
	if !req.Multiplier.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "multiplier must be positive")
	}

	now := time.Now().UTC()
	conv := &models.UnitConversion{
		ID:         uuid.NewString(),
		FromUnit:   req.FromUnit,
		ToUnit:     req.ToUnit,
		Multiplier: req.Multiplier,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Enabled != nil {
		conv.Enabled = *req.Enabled
	}
	if err := s.repo.Upsert(ctx, conv); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store conversion")
	}
	return conv, nil
}

// DeleteConversion removes the stored ratio for an ordered unit pair.
func (s *UnitConverter) DeleteConversion(ctx context.Context, fromUnit, toUnit string) error {
	if err := s.repo.Delete(ctx, fromUnit, toUnit); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete conversion")
	}
	return nil
}
