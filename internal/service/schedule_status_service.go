package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type scheduleStore interface {
	FindDetail(ctx context.Context, id string) (*models.ScheduleDetail, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
	MarkStatus(ctx context.Context, id string, status models.ScheduleStatus, caretakerID *string, note string, administeredAt time.Time) (bool, error)
	UpdateNote(ctx context.Context, id, note string, updatedAt time.Time) error
}

// ScheduleStatusService records dose outcomes. A dose moves out of PENDING
// exactly once: either a caretaker marks it TAKEN or SKIPPED, or the overdue
// sweeper skips it. Both writers race through the same compare-and-swap
// update, so the first transition always wins.
type ScheduleStatusService struct {
	repo      scheduleStore
	validator *validator.Validate
	logger    *zap.Logger
	// now is swapped in tests to pin the clock.
	now func() time.Time
}

// NewScheduleStatusService builds a ScheduleStatusService.
func NewScheduleStatusService(repo scheduleStore, validate *validator.Validate, logger *zap.Logger) *ScheduleStatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleStatusService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get loads one schedule with its item and request context.
func (s *ScheduleStatusService) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return detail, nil
}

// List returns schedules matching the filter.
func (s *ScheduleStatusService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return items, nil
}

// UpdateStatus transitions one dose to TAKEN or SKIPPED. Only the caretaker
// who approved the parent request may act, only PENDING doses transition, and
// a dose cannot be recorded before its scheduled moment.
func (s *ScheduleStatusService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateScheduleStatusRequest) (*models.ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if detail.ApproverID == nil || *detail.ApproverID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the approving caretaker can record this dose")
	}
	if detail.Status != models.ScheduleStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "dose has already been recorded")
	}

	now := s.now()
	if scheduledMoment(detail.ScheduledDate, detail.ScheduledTime).After(now) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "dose cannot be recorded before its scheduled time")
	}

	status := models.ScheduleStatus(req.Status)
	ok, err := s.repo.MarkStatus(ctx, id, status, &claims.UserID, req.Note, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record dose")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "dose has already been recorded")
	}

	detail.Status = status
	detail.CaretakerID = &claims.UserID
	detail.AdministeredAt = &now
	if req.Note != "" {
		detail.CaretakerNote = req.Note
	}
	detail.UpdatedAt = now
	return detail, nil
}

// UpdateNote replaces the caretaker note on a dose the caller approved. The
// note stays editable after the dose is recorded.
func (s *ScheduleStatusService) UpdateNote(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateScheduleNoteRequest) (*models.ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.ApproverID == nil || *detail.ApproverID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the approving caretaker can annotate this dose")
	}

	now := s.now()
	if err := s.repo.UpdateNote(ctx, id, req.Note, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}

	detail.CaretakerNote = req.Note
	detail.UpdatedAt = now
	return detail, nil
}

// scheduledMoment combines the schedule's date and "HH:MM" slot into one
// instant in the date's location.
func scheduledMoment(date time.Time, slot string) time.Time {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}
