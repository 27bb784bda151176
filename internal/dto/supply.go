package dto

import "github.com/shopspring/decimal"

// CreateSupplyRequest registers a new supply lot. Each restock creates a new
// lot as well; lots are never merged.
type CreateSupplyRequest struct {
	Name           string          `json:"name" validate:"required"`
	Category       string          `json:"category" validate:"required"`
	DisplayUnit    string          `json:"display_unit" validate:"required"`
	DisplayQty     decimal.Decimal `json:"display_quantity" validate:"required"`
	BaseUnit       string          `json:"base_unit" validate:"required"`
	BaseQty        decimal.Decimal `json:"base_quantity" validate:"required"`
	ExpirationDate string          `json:"expiration_date" validate:"required,datetime=2006-01-02"`
	Minimum        decimal.Decimal `json:"minimum"`
}

// ConsumeSupplyRequest depletes stock of a named supply across its lots.
type ConsumeSupplyRequest struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	Unit      string          `json:"unit"`
	Reference string          `json:"reference"`
}

// ConsumeSupplyResult reports the outcome of a depletion.
type ConsumeSupplyResult struct {
	SupplyName  string          `json:"supply_name"`
	Consumed    decimal.Decimal `json:"consumed"`
	SourceLotID string          `json:"source_lot_id"`
	LotsTouched int             `json:"lots_touched"`
}

// UpsertConversionRequest creates or updates the conversion for an ordered
// unit pair.
type UpsertConversionRequest struct {
	FromUnit   string          `json:"from_unit" validate:"required"`
	ToUnit     string          `json:"to_unit" validate:"required,nefield=FromUnit"`
	Multiplier decimal.Decimal `json:"multiplier" validate:"required"`
	Enabled    *bool           `json:"enabled"`
}

// ConvertQuery asks for a quantity conversion between two named units.
type ConvertQuery struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	FromUnit string          `json:"from_unit" validate:"required"`
	ToUnit   string          `json:"to_unit" validate:"required"`
}

// ConvertResult is the converted quantity.
type ConvertResult struct {
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}
