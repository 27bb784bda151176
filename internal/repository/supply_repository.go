package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medtrack/medtrack-api/internal/models"
)

// SupplyRepository manages persistence for supply lots and usage records.
type SupplyRepository struct {
	db *sqlx.DB
}

// NewSupplyRepository constructs a SupplyRepository.
func NewSupplyRepository(db *sqlx.DB) *SupplyRepository {
	return &SupplyRepository{db: db}
}

const supplyColumns = `id, name, category, display_unit, display_quantity, base_unit, base_quantity, expiration_date, minimum, enabled, created_at, updated_at`

// Create inserts a new lot. Restocks create new lots too; existing lots are
// never merged.
func (r *SupplyRepository) Create(ctx context.Context, lot *models.MedicalSupply) error {
	const query = `INSERT INTO medical_supplies (` + supplyColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		lot.ID, lot.Name, lot.Category, lot.DisplayUnit, lot.DisplayQty,
		lot.BaseUnit, lot.BaseQty, lot.ExpirationDate, lot.Minimum, lot.Enabled,
		lot.CreatedAt, lot.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert supply lot: %w", err)
	}
	return nil
}

// FindByID fetches a single lot.
func (r *SupplyRepository) FindByID(ctx context.Context, id string) (*models.MedicalSupply, error) {
	const query = `SELECT ` + supplyColumns + ` FROM medical_supplies WHERE id = $1`
	var lot models.MedicalSupply
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		return nil, err
	}
	return &lot, nil
}

// List returns lots matching the filter.
func (r *SupplyRepository) List(ctx context.Context, filter models.SupplyFilter) ([]models.MedicalSupply, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Name != "" {
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		conditions = append(conditions, fmt.Sprintf("enabled = $%d", len(args)))
	}
	if filter.BelowStock {
		conditions = append(conditions, "display_quantity <= minimum")
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM medical_supplies WHERE %s ORDER BY name ASC, expiration_date ASC LIMIT %d OFFSET %d`,
		supplyColumns, where, size, (page-1)*size)
	var lots []models.MedicalSupply
	if err := r.db.SelectContext(ctx, &lots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list supply lots: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM medical_supplies WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count supply lots: %w", err)
	}
	return lots, total, nil
}

// SetEnabled toggles a lot in or out of the consumable pool.
func (r *SupplyRepository) SetEnabled(ctx context.Context, id string, enabled bool, updatedAt time.Time) error {
	const query = `UPDATE medical_supplies SET enabled = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, enabled, updatedAt, id)
	if err != nil {
		return fmt.Errorf("toggle supply lot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("toggle supply lot: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TotalAvailable sums display quantities across enabled lots of the name.
func (r *SupplyRepository) TotalAvailable(ctx context.Context, name string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(display_quantity), 0) FROM medical_supplies WHERE name = $1 AND enabled`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, name); err != nil {
		return decimal.Zero, fmt.Errorf("total available: %w", err)
	}
	return total, nil
}

// SupplyTx exposes the operations available inside one depletion transaction.
// Quantity updates for a lot always travel together through UpdateLotQuantities
// so the display and base representations cannot drift independently.
type SupplyTx interface {
	LotsByName(ctx context.Context, name string) ([]models.MedicalSupply, error)
	UpdateLotQuantities(ctx context.Context, id string, displayQty, baseQty decimal.Decimal, updatedAt time.Time) error
	InsertUsage(ctx context.Context, usage *models.SupplyUsage) error
}

type supplyTx struct {
	tx *sqlx.Tx
}

// LotsByName locks and returns the enabled lots of the name, soonest
// expiration first.
func (t *supplyTx) LotsByName(ctx context.Context, name string) ([]models.MedicalSupply, error) {
	const query = `SELECT ` + supplyColumns + ` FROM medical_supplies
WHERE name = $1 AND enabled
ORDER BY expiration_date ASC
FOR UPDATE`
	var lots []models.MedicalSupply
	if err := t.tx.SelectContext(ctx, &lots, query, name); err != nil {
		return nil, fmt.Errorf("lock lots: %w", err)
	}
	return lots, nil
}

func (t *supplyTx) UpdateLotQuantities(ctx context.Context, id string, displayQty, baseQty decimal.Decimal, updatedAt time.Time) error {
	const query = `UPDATE medical_supplies SET display_quantity = $1, base_quantity = $2, updated_at = $3 WHERE id = $4`
	if _, err := t.tx.ExecContext(ctx, query, displayQty, baseQty, updatedAt, id); err != nil {
		return fmt.Errorf("update lot quantities: %w", err)
	}
	return nil
}

func (t *supplyTx) InsertUsage(ctx context.Context, usage *models.SupplyUsage) error {
	const query = `INSERT INTO supply_usages (id, supply_name, source_lot_id, quantity, unit, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := t.tx.ExecContext(ctx, query,
		usage.ID, usage.SupplyName, usage.SourceLotID, usage.Quantity, usage.Unit, usage.Reference, usage.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// Deplete runs fn inside one transaction so a multi-lot walk either lands
// completely or not at all.
func (r *SupplyRepository) Deplete(ctx context.Context, fn func(tx SupplyTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin depletion: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&supplyTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit depletion: %w", err)
	}
	return nil
}
