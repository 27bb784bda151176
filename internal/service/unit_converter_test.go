package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type conversionStoreStub struct {
	rows     map[string]*models.UnitConversion
	upserted []*models.UnitConversion
	deleted  [][2]string
}

func (s *conversionStoreStub) Find(_ context.Context, fromUnit, toUnit string) (*models.UnitConversion, error) {
	if conv, ok := s.rows[fromUnit+"->"+toUnit]; ok {
		return conv, nil
	}
	return nil, sql.ErrNoRows
}

func (s *conversionStoreStub) List(_ context.Context) ([]models.UnitConversion, error) {
	var out []models.UnitConversion
	for _, conv := range s.rows {
		out = append(out, *conv)
	}
	return out, nil
}

func (s *conversionStoreStub) Upsert(_ context.Context, conv *models.UnitConversion) error {
	s.upserted = append(s.upserted, conv)
	return nil
}

func (s *conversionStoreStub) Delete(_ context.Context, fromUnit, toUnit string) error {
	s.deleted = append(s.deleted, [2]string{fromUnit, toUnit})
	return nil
}

func conversionRow(from, to, multiplier string) *models.UnitConversion {
	return &models.UnitConversion{
		FromUnit:   from,
		ToUnit:     to,
		Multiplier: decimal.RequireFromString(multiplier),
		Enabled:    true,
	}
}

func TestUnitConverterIdentity(t *testing.T) {
	converter := NewUnitConverter(&conversionStoreStub{}, nil)

	got, err := converter.Convert(context.Background(), decimal.RequireFromString("3.5"), "ml", "ml")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("3.5")))
}

func TestUnitConverterDirect(t *testing.T) {
	store := &conversionStoreStub{rows: map[string]*models.UnitConversion{
		"bottle->ml": conversionRow("bottle", "ml", "250"),
	}}
	converter := NewUnitConverter(store, nil)

	got, err := converter.Convert(context.Background(), decimal.NewFromInt(2), "bottle", "ml")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(500)))
}

func TestUnitConverterReverseInverts(t *testing.T) {
	store := &conversionStoreStub{rows: map[string]*models.UnitConversion{
		"bottle->ml": conversionRow("bottle", "ml", "250"),
	}}
	converter := NewUnitConverter(store, nil)

	got, err := converter.Convert(context.Background(), decimal.NewFromInt(500), "ml", "bottle")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(2)), "got %s", got)
}

func TestUnitConverterReverseRounds(t *testing.T) {
	store := &conversionStoreStub{rows: map[string]*models.UnitConversion{
		"tablet->mg": conversionRow("tablet", "mg", "3"),
	}}
	converter := NewUnitConverter(store, nil)

	got, err := converter.Convert(context.Background(), decimal.NewFromInt(1), "mg", "tablet")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("0.333333")), "got %s", got)
}

func TestUnitConverterNoPath(t *testing.T) {
	converter := NewUnitConverter(&conversionStoreStub{}, nil)

	_, err := converter.Convert(context.Background(), decimal.NewFromInt(1), "ml", "drop")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUnitConverterNoChaining(t *testing.T) {
	store := &conversionStoreStub{rows: map[string]*models.UnitConversion{
		"bottle->ml": conversionRow("bottle", "ml", "250"),
		"ml->drop":   conversionRow("ml", "drop", "20"),
	}}
	converter := NewUnitConverter(store, nil)

	_, err := converter.Convert(context.Background(), decimal.NewFromInt(1), "bottle", "drop")
	require.Error(t, err)
}

func TestUnitConverterCanConvert(t *testing.T) {
	store := &conversionStoreStub{rows: map[string]*models.UnitConversion{
		"bottle->ml": conversionRow("bottle", "ml", "250"),
	}}
	converter := NewUnitConverter(store, nil)

	ok, err := converter.CanConvert(context.Background(), "ml", "bottle")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = converter.CanConvert(context.Background(), "ml", "drop")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnitConverterUpsertValidation(t *testing.T) {
	store := &conversionStoreStub{}
	converter := NewUnitConverter(store, nil)

	_, err := converter.UpsertConversion(context.Background(), dto.UpsertConversionRequest{
		FromUnit: "ml", ToUnit: "ml", Multiplier: decimal.NewFromInt(1),
	})
	require.Error(t, err)

	_, err = converter.UpsertConversion(context.Background(), dto.UpsertConversionRequest{
		FromUnit: "bottle", ToUnit: "ml", Multiplier: decimal.Zero,
	})
	require.Error(t, err)

	conv, err := converter.UpsertConversion(context.Background(), dto.UpsertConversionRequest{
		FromUnit: "bottle", ToUnit: "ml", Multiplier: decimal.NewFromInt(250),
	})
	require.NoError(t, err)
	assert.True(t, conv.Enabled)
	require.Len(t, store.upserted, 1)
}
