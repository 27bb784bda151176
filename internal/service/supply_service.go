package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/internal/repository"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type supplyStore interface {
	Create(ctx context.Context, lot *models.MedicalSupply) error
	FindByID(ctx context.Context, id string) (*models.MedicalSupply, error)
	List(ctx context.Context, filter models.SupplyFilter) ([]models.MedicalSupply, int, error)
	SetEnabled(ctx context.Context, id string, enabled bool, updatedAt time.Time) error
	TotalAvailable(ctx context.Context, name string) (decimal.Decimal, error)
	Deplete(ctx context.Context, fn func(tx repository.SupplyTx) error) error
}

type quantityConverter interface {
	Convert(ctx context.Context, quantity decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error)
}

// SupplyService owns the supply ledger: lot registration and FEFO depletion
// of stock across lots, keeping the display and base unit representations
// proportionally consistent.
type SupplyService struct {
	repo      supplyStore
	converter quantityConverter
	notifier  Notifier
	// stockAlertRecipient receives low-stock notifications; empty disables them.
	stockAlertRecipient string
	validator           *validator.Validate
	logger              *zap.Logger
}

// NewSupplyService builds a SupplyService.
func NewSupplyService(repo supplyStore, converter quantityConverter, notifier Notifier, stockAlertRecipient string, validate *validator.Validate, logger *zap.Logger) *SupplyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplyService{
		repo:                repo,
		converter:           converter,
		notifier:            notifier,
		stockAlertRecipient: stockAlertRecipient,
		validator:           validate,
		logger:              logger,
	}
}

// CreateLot registers a new supply lot. Restocks go through here as well;
// every delivery is its own lot with its own expiration date.
func (s *SupplyService) CreateLot(ctx context.Context, req dto.CreateSupplyRequest) (*models.MedicalSupply, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supply payload")
	}
	if req.DisplayQty.IsNegative() || req.BaseQty.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quantities must not be negative")
	}
	expiration, err := time.Parse("2006-01-02", req.ExpirationDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid expiration date")
	}

	now := time.Now().UTC()
	lot := &models.MedicalSupply{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Category:       req.Category,
		DisplayUnit:    req.DisplayUnit,
		DisplayQty:     req.DisplayQty,
		BaseUnit:       req.BaseUnit,
		BaseQty:        req.BaseQty,
		ExpirationDate: expiration,
		Minimum:        req.Minimum,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create supply lot")
	}
	return lot, nil
}

// ListLots returns lots matching the filter.
func (s *SupplyService) ListLots(ctx context.Context, filter models.SupplyFilter) ([]models.MedicalSupply, int, error) {
	lots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supply lots")
	}
	return lots, total, nil
}

// SetLotEnabled toggles a lot in or out of the consumable pool.
func (s *SupplyService) SetLotEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.repo.SetEnabled(ctx, id, enabled, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "supply lot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle supply lot")
	}
	return nil
}

// TotalAvailable sums the display quantity across enabled lots of the name.
func (s *SupplyService) TotalAvailable(ctx context.Context, name string) (decimal.Decimal, error) {
	total, err := s.repo.TotalAvailable(ctx, name)
	if err != nil {
		return decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total stock")
	}
	return total, nil
}

// Consume depletes the requested quantity across the enabled lots of the
// named supply, soonest expiration first. The whole walk runs in one
// transaction: either every touched lot commits or none do. Availability is
// verified inside the transaction before any mutation, so a rejection leaves
// stock untouched.
func (s *SupplyService) Consume(ctx context.Context, req dto.ConsumeSupplyRequest) (*dto.ConsumeSupplyResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid consumption payload")
	}
	if !req.Quantity.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quantity must be positive")
	}

	now := time.Now().UTC()
	result := &dto.ConsumeSupplyResult{SupplyName: req.Name, Consumed: req.Quantity}
	var lowStock []models.MedicalSupply

	err := s.repo.Deplete(ctx, func(tx repository.SupplyTx) error {
		lots, err := tx.LotsByName(ctx, req.Name)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lots")
		}

		available := decimal.Zero
		for _, lot := range lots {
			inRequestUnit, err := s.toRequestUnit(ctx, lot.DisplayQty, lot.DisplayUnit, req.Unit)
			if err != nil {
				return err
			}
			available = available.Add(inRequestUnit)
		}
		if req.Quantity.GreaterThan(available) {
			return appErrors.ErrInsufficientStock
		}

		remaining := req.Quantity
		for i := range lots {
			if !remaining.IsPositive() {
				break
			}
			lot := &lots[i]

			remainingInLotUnit, err := s.fromRequestUnit(ctx, remaining, req.Unit, lot.DisplayUnit)
			if err != nil {
				return err
			}
			used := decimal.Min(remainingInLotUnit, lot.DisplayQty)
			if !used.IsPositive() {
				continue
			}

			displayBefore := lot.DisplayQty
			newDisplay := displayBefore.Sub(used)

			// Full drain subtracts the whole base remainder directly; it both
			// avoids dividing by the drained quantity and guarantees the lot
			// bottoms out at exactly zero in both representations.
			var baseToSubtract decimal.Decimal
			if newDisplay.IsZero() {
				baseToSubtract = lot.BaseQty
			} else {
				baseToSubtract = used.Mul(lot.BaseQty).DivRound(displayBefore, baseScale)
			}
			newBase := lot.BaseQty.Sub(baseToSubtract)

			if err := tx.UpdateLotQuantities(ctx, lot.ID, newDisplay, newBase, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deplete lot")
			}

			if result.SourceLotID == "" {
				result.SourceLotID = lot.ID
			}
			result.LotsTouched++

			lot.DisplayQty = newDisplay
			lot.BaseQty = newBase
			if lot.BelowMinimum() {
				lowStock = append(lowStock, *lot)
			}

			usedInRequestUnit, err := s.toRequestUnit(ctx, used, lot.DisplayUnit, req.Unit)
			if err != nil {
				return err
			}
			remaining = remaining.Sub(usedInRequestUnit)
		}

		usage := &models.SupplyUsage{
			ID:          uuid.NewString(),
			SupplyName:  req.Name,
			SourceLotID: result.SourceLotID,
			Quantity:    req.Quantity,
			Unit:        req.Unit,
			Reference:   req.Reference,
			CreatedAt:   now,
		}
		if err := tx.InsertUsage(ctx, usage); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record usage")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.alertLowStock(lowStock)
	return result, nil
}

// toRequestUnit converts a lot-unit quantity into the request unit. An empty
// request unit means the caller works in each lot's own display unit.
func (s *SupplyService) toRequestUnit(ctx context.Context, quantity decimal.Decimal, lotUnit, requestUnit string) (decimal.Decimal, error) {
	if requestUnit == "" || requestUnit == lotUnit {
		return quantity, nil
	}
	return s.converter.Convert(ctx, quantity, lotUnit, requestUnit)
}

func (s *SupplyService) fromRequestUnit(ctx context.Context, quantity decimal.Decimal, requestUnit, lotUnit string) (decimal.Decimal, error) {
	if requestUnit == "" || requestUnit == lotUnit {
		return quantity, nil
	}
	return s.converter.Convert(ctx, quantity, requestUnit, lotUnit)
}

func (s *SupplyService) alertLowStock(lots []models.MedicalSupply) {
	if s.notifier == nil || s.stockAlertRecipient == "" {
		return
	}
	for _, lot := range lots {
		s.notifier.Notify(s.stockAlertRecipient, models.LowStockPayload{
			SupplyName: lot.Name,
			LotID:      lot.ID,
			Remaining:  lot.DisplayQty.String(),
			Unit:       lot.DisplayUnit,
		})
	}
}
