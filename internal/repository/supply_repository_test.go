package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack-api/internal/models"
)

var supplyRowColumns = []string{
	"id", "name", "category", "display_unit", "display_quantity",
	"base_unit", "base_quantity", "expiration_date", "minimum", "enabled",
	"created_at", "updated_at",
}

func TestSupplyRepositoryDepleteCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSupplyRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	rows := sqlmock.NewRows(supplyRowColumns).
		AddRow("lot-1", "paracetamol", "medicine", "tablet", "10",
			"mg", "5000", now.AddDate(0, 6, 0), "3", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("paracetamol").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE medical_supplies SET display_quantity")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO supply_usages")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Deplete(context.Background(), func(tx SupplyTx) error {
		lots, err := tx.LotsByName(context.Background(), "paracetamol")
		if err != nil {
			return err
		}
		require.Len(t, lots, 1)
		require.True(t, lots[0].DisplayQty.Equal(decimal.NewFromInt(10)))

		if err := tx.UpdateLotQuantities(context.Background(), "lot-1",
			decimal.NewFromInt(8), decimal.NewFromInt(4000), now); err != nil {
			return err
		}
		return tx.InsertUsage(context.Background(), &models.SupplyUsage{
			ID:          "usage-1",
			SupplyName:  "paracetamol",
			SourceLotID: "lot-1",
			Quantity:    decimal.NewFromInt(2),
			Unit:        "tablet",
			CreatedAt:   now,
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplyRepositoryDepleteRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSupplyRepository(db)
	boom := errors.New("not enough stock")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.Deplete(context.Background(), func(SupplyTx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplyRepositorySetEnabledMissingLot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSupplyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE medical_supplies SET enabled")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetEnabled(context.Background(), "missing", false, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplyRepositoryTotalAvailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSupplyRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(display_quantity), 0)")).
		WithArgs("gauze").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("42.5"))

	total, err := repo.TotalAvailable(context.Background(), "gauze")
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromFloat(42.5)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplyRepositoryListBelowStock(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSupplyRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(supplyRowColumns).
		AddRow("lot-1", "gauze", "first-aid", "roll", "2",
			"cm", "200", now.AddDate(1, 0, 0), "5", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("display_quantity <= minimum")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	lots, total, err := repo.List(context.Background(), models.SupplyFilter{BelowStock: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, lots, 1)
	require.True(t, lots[0].BelowMinimum())
	require.NoError(t, mock.ExpectationsWereMet())
}
