package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/internal/repository"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type medicationRequestStore interface {
	Create(ctx context.Context, req *models.MedicationRequest, schedules []models.MedicationSchedule) error
	FindByID(ctx context.Context, id string) (*models.MedicationRequest, error)
	List(ctx context.Context, filter models.MedicationRequestFilter) ([]models.MedicationRequest, int, error)
	Approve(ctx context.Context, id, caretakerID, note string, now time.Time) error
	Reject(ctx context.Context, id, caretakerID, note string, now time.Time) error
	ApplyUpdate(ctx context.Context, params repository.UpdateRequestParams) error
	Delete(ctx context.Context, id string) error
	ListPendingBefore(ctx context.Context, cutoffDate time.Time, limit int) ([]repository.ExpiryCandidate, error)
	Expire(ctx context.Context, id, note string, now time.Time) (bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	IsOwnedBy(ctx context.Context, studentID, guardianID string) (bool, error)
}

// expiredRequestNote is the system note stamped on auto-rejected requests.
const expiredRequestNote = "Automatically rejected: request was not reviewed in time"

// MedicationRequestService owns the request lifecycle: guardian submission
// and edits while PENDING, caretaker decisions, and automatic expiry of
// stale requests.
type MedicationRequestService struct {
	repo      medicationRequestStore
	students  studentReader
	generator *ScheduleGenerator
	notifier  Notifier
	// requestMaxAge is how long a request may stay PENDING before the expiry
	// job rejects it. Compared at date precision.
	requestMaxAge time.Duration
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewMedicationRequestService builds a MedicationRequestService.
func NewMedicationRequestService(repo medicationRequestStore, students studentReader, generator *ScheduleGenerator, notifier Notifier, requestMaxAge time.Duration, validate *validator.Validate, logger *zap.Logger) *MedicationRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestMaxAge <= 0 {
		requestMaxAge = 24 * time.Hour
	}
	return &MedicationRequestService{
		repo:          repo,
		students:      students,
		generator:     generator,
		notifier:      notifier,
		requestMaxAge: requestMaxAge,
		validator:     validate,
		logger:        logger,
	}
}

// Submit creates a request with its items and the pre-generated dose grid.
// The grid is written immediately so an approval never races schedule
// generation; rejection deletes it.
func (s *MedicationRequestService) Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitMedicationRequest) (*models.MedicationRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	owned, err := s.students.IsOwnedBy(ctx, req.StudentID, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify student")
	}
	if !owned {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student does not belong to this guardian")
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := &models.MedicationRequest{
		ID:          uuid.NewString(),
		StudentID:   req.StudentID,
		GuardianID:  claims.UserID,
		StartDate:   startDate,
		EndDate:     endDate,
		RequestDate: truncateToDay(now),
		Note:        req.Note,
		Status:      models.RequestStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var schedules []models.MedicationSchedule
	for _, payload := range req.Items {
		item := newItemFromPayload(request.ID, payload, now)
		generated, err := s.generator.Generate(&item, startDate, endDate)
		if err != nil {
			return nil, err
		}
		request.Items = append(request.Items, item)
		schedules = append(schedules, generated...)
	}

	if err := s.repo.Create(ctx, request, schedules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.logger.Info("medication request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", request.StudentID),
		zap.Int("schedules", len(schedules)))
	return request, nil
}

// Get fetches one request. Guardians only see their own.
func (s *MedicationRequestService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.MedicationRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "medication request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if claims.IsGuardian() && request.GuardianID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another guardian")
	}
	return request, nil
}

// List returns requests visible to the caller. Guardians are always scoped
// to their own requests regardless of the filter.
func (s *MedicationRequestService) List(ctx context.Context, claims *models.JWTClaims, filter models.MedicationRequestFilter) ([]models.MedicationRequest, int, error) {
	if claims.IsGuardian() {
		filter.GuardianID = claims.UserID
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, total, nil
}

// Approve records a caretaker approval. Only PENDING requests may be decided;
// the transition is terminal.
func (s *MedicationRequestService) Approve(ctx context.Context, claims *models.JWTClaims, id string, req dto.DecisionRequest) (*models.MedicationRequest, error) {
	request, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.Approve(ctx, id, claims.UserID, req.Note, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}

	request.Status = models.RequestStatusApproved
	request.Confirmed = true
	request.CaretakerID = &claims.UserID
	request.CaretakerNote = &req.Note
	request.UpdatedAt = now

	if s.notifier != nil {
		s.notifier.Notify(request.GuardianID, models.RequestApprovedPayload{
			RequestID:   request.ID,
			StudentName: s.studentName(ctx, request.StudentID),
			Note:        req.Note,
		})
	}
	return request, nil
}

// Reject records a caretaker rejection and removes the pre-generated dose
// grid.
func (s *MedicationRequestService) Reject(ctx context.Context, claims *models.JWTClaims, id string, req dto.DecisionRequest) (*models.MedicationRequest, error) {
	request, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.Reject(ctx, id, claims.UserID, req.Note, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}

	request.Status = models.RequestStatusRejected
	request.Confirmed = true
	request.CaretakerID = &claims.UserID
	request.CaretakerNote = &req.Note
	request.UpdatedAt = now

	if s.notifier != nil {
		s.notifier.Notify(request.GuardianID, models.RequestRejectedPayload{
			RequestID:   request.ID,
			StudentName: s.studentName(ctx, request.StudentID),
			Note:        req.Note,
		})
	}
	return request, nil
}

// Update rewrites a PENDING request owned by the caller. Items present in the
// payload with an ID are updated and their schedules regenerated, items
// without an ID are added, and existing items absent from the payload are
// removed together with their schedules.
func (s *MedicationRequestService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateMedicationRequest) (*models.MedicationRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "medication request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.GuardianID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another guardian")
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be edited")
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	existing := make(map[string]models.ItemRequest, len(request.Items))
	for _, item := range request.Items {
		existing[item.ID] = item
	}

	params := repository.UpdateRequestParams{Request: request}
	kept := make(map[string]struct{}, len(req.Items))
	var items []models.ItemRequest

	for _, payload := range req.Items {
		if payload.ID == "" {
			item := newItemFromPayload(request.ID, payload, now)
			params.InsertItems = append(params.InsertItems, item)
			items = append(items, item)
			continue
		}
		prior, ok := existing[payload.ID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "item does not belong to this request")
		}
		kept[payload.ID] = struct{}{}

		item := newItemFromPayload(request.ID, payload, now)
		item.ID = payload.ID
		item.CreatedAt = prior.CreatedAt
		params.UpdateItems = append(params.UpdateItems, item)
		items = append(items, item)
	}

	for itemID := range existing {
		if _, ok := kept[itemID]; !ok {
			params.DeleteItemIDs = append(params.DeleteItemIDs, itemID)
		}
	}

	for i := range items {
		generated, err := s.generator.Generate(&items[i], startDate, endDate)
		if err != nil {
			return nil, err
		}
		params.Schedules = append(params.Schedules, generated...)
	}

	request.StartDate = startDate
	request.EndDate = endDate
	request.Note = req.Note
	request.UpdatedAt = now
	request.Items = items

	if err := s.repo.ApplyUpdate(ctx, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	return request, nil
}

// Delete removes a PENDING request owned by the caller, cascading to its
// items and schedules.
func (s *MedicationRequestService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "medication request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.GuardianID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "request belongs to another guardian")
	}
	if request.Status != models.RequestStatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	return nil
}

// AutoExpire rejects every request left PENDING past the maximum age. Age is
// compared at date precision: a request submitted earlier the same day as the
// cutoff survives until the next day's run. Each expiry is its own
// compare-and-swap transaction, so a concurrent caretaker decision wins and
// the row is skipped. Returns the number of requests expired.
func (s *MedicationRequestService) AutoExpire(ctx context.Context, now time.Time) (int, error) {
	cutoffDate := truncateToDay(now.Add(-s.requestMaxAge))

	candidates, err := s.repo.ListPendingBefore(ctx, cutoffDate, 0)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stale requests")
	}

	expired := 0
	for _, candidate := range candidates {
		ok, err := s.repo.Expire(ctx, candidate.ID, expiredRequestNote, now)
		if err != nil {
			s.logger.Error("failed to expire request",
				zap.String("request_id", candidate.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		expired++

		if s.notifier != nil {
			s.notifier.Notify(candidate.GuardianID, models.RequestExpiredPayload{
				RequestID:   candidate.ID,
				StudentName: candidate.StudentName,
			})
		}
	}

	if expired > 0 {
		s.logger.Info("expired stale medication requests", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *MedicationRequestService) loadPending(ctx context.Context, id string) (*models.MedicationRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "medication request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been decided")
	}
	return request, nil
}

func (s *MedicationRequestService) studentName(ctx context.Context, studentID string) string {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return ""
	}
	return student.FullName
}

func newItemFromPayload(requestID string, payload dto.ItemPayload, now time.Time) models.ItemRequest {
	return models.ItemRequest{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Name:      payload.Name,
		Purpose:   payload.Purpose,
		Type:      payload.Type,
		Dosage:    payload.Dosage,
		Frequency: payload.Frequency,
		TimeSlots: pq.StringArray(payload.TimeSlots),
		Note:      payload.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	return startDate, endDate, nil
}
