package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MedicalSupply is one physical lot of a named supply. Multiple lots share a
// name; each restock creates a new lot and lots are never merged. The display
// quantity is the unit of record for consumption requests, while the base
// quantity is the internal accounting representation; both must stay
// proportionally consistent through every depletion.
type MedicalSupply struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Category       string          `db:"category" json:"category"`
	DisplayUnit    string          `db:"display_unit" json:"display_unit"`
	DisplayQty     decimal.Decimal `db:"display_quantity" json:"display_quantity"`
	BaseUnit       string          `db:"base_unit" json:"base_unit"`
	BaseQty        decimal.Decimal `db:"base_quantity" json:"base_quantity"`
	ExpirationDate time.Time       `db:"expiration_date" json:"expiration_date"`
	Minimum        decimal.Decimal `db:"minimum" json:"minimum"`
	Enabled        bool            `db:"enabled" json:"enabled"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// BelowMinimum reports whether the lot's remaining display stock has reached
// its configured reorder threshold.
func (s *MedicalSupply) BelowMinimum() bool {
	return s.DisplayQty.LessThanOrEqual(s.Minimum)
}

// UnitConversion is a stored multiplicative ratio between two named units.
// At most one row exists per ordered pair; the reverse direction is resolved
// by inverting this row, never stored separately.
type UnitConversion struct {
	ID         string          `db:"id" json:"id"`
	FromUnit   string          `db:"from_unit" json:"from_unit"`
	ToUnit     string          `db:"to_unit" json:"to_unit"`
	Multiplier decimal.Decimal `db:"multiplier" json:"multiplier"`
	Enabled    bool            `db:"enabled" json:"enabled"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// SupplyUsage records one consumption against a named supply for audit. The
// source lot is the first lot touched when consumption spanned several.
type SupplyUsage struct {
	ID          string          `db:"id" json:"id"`
	SupplyName  string          `db:"supply_name" json:"supply_name"`
	SourceLotID string          `db:"source_lot_id" json:"source_lot_id"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit"`
	Reference   string          `db:"reference" json:"reference"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// SupplyFilter describes query params for listing supply lots.
type SupplyFilter struct {
	Name       string
	Category   string
	Enabled    *bool
	BelowStock bool
	Page       int
	PageSize   int
}
