package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack-api/internal/dto"
	"github.com/medtrack/medtrack-api/internal/models"
	"github.com/medtrack/medtrack-api/internal/repository"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type requestStoreStub struct {
	requests map[string]*models.MedicationRequest

	createdSchedules []models.MedicationSchedule
	approved         []string
	rejected         []string
	deleted          []string
	updated          *repository.UpdateRequestParams

	expiryCandidates []repository.ExpiryCandidate
	expireResults    map[string]bool
	expired          []string
}

func (s *requestStoreStub) Create(_ context.Context, req *models.MedicationRequest, schedules []models.MedicationSchedule) error {
	if s.requests == nil {
		s.requests = map[string]*models.MedicationRequest{}
	}
	s.requests[req.ID] = req
	s.createdSchedules = schedules
	return nil
}

func (s *requestStoreStub) FindByID(_ context.Context, id string) (*models.MedicationRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (s *requestStoreStub) List(_ context.Context, filter models.MedicationRequestFilter) ([]models.MedicationRequest, int, error) {
	var out []models.MedicationRequest
	for _, req := range s.requests {
		if filter.GuardianID != "" && req.GuardianID != filter.GuardianID {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (s *requestStoreStub) Approve(_ context.Context, id, _, _ string, _ time.Time) error {
	s.approved = append(s.approved, id)
	return nil
}

func (s *requestStoreStub) Reject(_ context.Context, id, _, _ string, _ time.Time) error {
	s.rejected = append(s.rejected, id)
	return nil
}

func (s *requestStoreStub) ApplyUpdate(_ context.Context, params repository.UpdateRequestParams) error {
	s.updated = &params
	return nil
}

func (s *requestStoreStub) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *requestStoreStub) ListPendingBefore(_ context.Context, _ time.Time, _ int) ([]repository.ExpiryCandidate, error) {
	return s.expiryCandidates, nil
}

func (s *requestStoreStub) Expire(_ context.Context, id, _ string, _ time.Time) (bool, error) {
	s.expired = append(s.expired, id)
	if s.expireResults == nil {
		return true, nil
	}
	return s.expireResults[id], nil
}

type studentReaderStub struct {
	students map[string]*models.Student
	owned    map[string]string
}

func (s *studentReaderStub) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (s *studentReaderStub) IsOwnedBy(_ context.Context, studentID, guardianID string) (bool, error) {
	return s.owned[studentID] == guardianID, nil
}

func guardianClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleGuardian}
}

func caretakerClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleCaretaker}
}

func newRequestService(store *requestStoreStub, students *studentReaderStub, notifier Notifier) *MedicationRequestService {
	return NewMedicationRequestService(store, students, NewScheduleGenerator(), notifier, 24*time.Hour, nil, nil)
}

func submitPayload() dto.SubmitMedicationRequest {
	return dto.SubmitMedicationRequest{
		StudentID: "student-1",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-04",
		Items: []dto.ItemPayload{
			{Name: "ibuprofen", Dosage: "200mg", Frequency: 2, TimeSlots: []string{"08:00", "20:00"}},
		},
	}
}

func TestMedicationRequestSubmit(t *testing.T) {
	store := &requestStoreStub{}
	students := &studentReaderStub{owned: map[string]string{"student-1": "guardian-1"}}
	svc := newRequestService(store, students, nil)

	request, err := svc.Submit(context.Background(), guardianClaims("guardian-1"), submitPayload())
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, "guardian-1", request.GuardianID)
	assert.False(t, request.Confirmed)
	require.Len(t, request.Items, 1)
	assert.Len(t, store.createdSchedules, 6, "2 slots across 3 days")

	// submission precision is date-only
	assert.Equal(t, request.RequestDate, truncateToDay(request.RequestDate))
}

func TestMedicationRequestSubmitForeignStudent(t *testing.T) {
	store := &requestStoreStub{}
	students := &studentReaderStub{owned: map[string]string{"student-1": "guardian-2"}}
	svc := newRequestService(store, students, nil)

	_, err := svc.Submit(context.Background(), guardianClaims("guardian-1"), submitPayload())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMedicationRequestApproveNotifiesGuardian(t *testing.T) {
	store := &requestStoreStub{requests: map[string]*models.MedicationRequest{
		"req-1": {ID: "req-1", StudentID: "student-1", GuardianID: "guardian-1", Status: models.RequestStatusPending},
	}}
	students := &studentReaderStub{students: map[string]*models.Student{
		"student-1": {ID: "student-1", FullName: "Alex Kim"},
	}}
	notifier := &notifierStub{}
	svc := newRequestService(store, students, notifier)

	request, err := svc.Approve(context.Background(), caretakerClaims("caretaker-1"), "req-1", dto.DecisionRequest{Note: "ok"})
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusApproved, request.Status)
	assert.True(t, request.Confirmed)
	require.NotNil(t, request.CaretakerID)
	assert.Equal(t, "caretaker-1", *request.CaretakerID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "guardian-1", notifier.sent[0].recipientID)
	payload, ok := notifier.sent[0].payload.(models.RequestApprovedPayload)
	require.True(t, ok)
	assert.Equal(t, "Alex Kim", payload.StudentName)
}

func TestMedicationRequestDecideNonPending(t *testing.T) {
	store := &requestStoreStub{requests: map[string]*models.MedicationRequest{
		"req-1": {ID: "req-1", GuardianID: "guardian-1", Status: models.RequestStatusApproved},
	}}
	svc := newRequestService(store, &studentReaderStub{}, nil)

	_, err := svc.Approve(context.Background(), caretakerClaims("caretaker-1"), "req-1", dto.DecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	_, err = svc.Reject(context.Background(), caretakerClaims("caretaker-1"), "req-1", dto.DecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestMedicationRequestDecideMissing(t *testing.T) {
	svc := newRequestService(&requestStoreStub{}, &studentReaderStub{}, nil)

	_, err := svc.Approve(context.Background(), caretakerClaims("caretaker-1"), "missing", dto.DecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMedicationRequestUpdateDiffsItems(t *testing.T) {
	store := &requestStoreStub{requests: map[string]*models.MedicationRequest{
		"req-1": {
			ID:         "req-1",
			GuardianID: "guardian-1",
			Status:     models.RequestStatusPending,
			Items: []models.ItemRequest{
				{ID: "item-keep", RequestID: "req-1", Name: "ibuprofen"},
				{ID: "item-drop", RequestID: "req-1", Name: "cough syrup"},
			},
		},
	}}
	svc := newRequestService(store, &studentReaderStub{}, nil)

	_, err := svc.Update(context.Background(), guardianClaims("guardian-1"), "req-1", dto.UpdateMedicationRequest{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
		Items: []dto.ItemPayload{
			{ID: "item-keep", Name: "ibuprofen", Dosage: "200mg", Frequency: 1, TimeSlots: []string{"08:00"}},
			{Name: "paracetamol", Dosage: "500mg", Frequency: 1, TimeSlots: []string{"12:00"}},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, store.updated)
	assert.Equal(t, []string{"item-drop"}, store.updated.DeleteItemIDs)
	require.Len(t, store.updated.UpdateItems, 1)
	assert.Equal(t, "item-keep", store.updated.UpdateItems[0].ID)
	require.Len(t, store.updated.InsertItems, 1)
	assert.Equal(t, "paracetamol", store.updated.InsertItems[0].Name)
	assert.Len(t, store.updated.Schedules, 4, "2 items, 1 slot, 2 days each")
}

func TestMedicationRequestUpdateForeignItem(t *testing.T) {
	store := &requestStoreStub{requests: map[string]*models.MedicationRequest{
		"req-1": {ID: "req-1", GuardianID: "guardian-1", Status: models.RequestStatusPending},
	}}
	svc := newRequestService(store, &studentReaderStub{}, nil)

	_, err := svc.Update(context.Background(), guardianClaims("guardian-1"), "req-1", dto.UpdateMedicationRequest{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
		Items: []dto.ItemPayload{
			{ID: "item-other", Name: "ibuprofen", Dosage: "200mg", Frequency: 1, TimeSlots: []string{"08:00"}},
		},
	})
	require.Error(t, err)
}

func TestMedicationRequestUpdateDecidedRequest(t *testing.T) {
	store := &requestStoreStub{requests: map[string]*models.MedicationRequest{
		"req-1": {ID: "req-1", GuardianID: "guardian-1", Status: models.RequestStatusRejected},
	}}
	svc := newRequestService(store, &studentReaderStub{}, nil)

	_, err := svc.Update(context.Background(), guardianClaims("guardian-1"), "req-1", dto.UpdateMedicationRequest{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
		Items: []dto.ItemPayload{
			{Name: "ibuprofen", Dosage: "200mg", Frequency: 1, TimeSlots: []string{"08:00"}},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestMedicationRequestGetScopedToOwner(t *testing.T) {
	store := &requestStoreStub{requests: map[string]*models.MedicationRequest{
		"req-1": {ID: "req-1", GuardianID: "guardian-1", Status: models.RequestStatusPending},
	}}
	svc := newRequestService(store, &studentReaderStub{}, nil)

	_, err := svc.Get(context.Background(), guardianClaims("guardian-2"), "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), caretakerClaims("caretaker-1"), "req-1")
	require.NoError(t, err, "caretakers see all requests")
}

func TestMedicationRequestAutoExpire(t *testing.T) {
	store := &requestStoreStub{
		expiryCandidates: []repository.ExpiryCandidate{
			{ID: "req-old", GuardianID: "guardian-1", StudentName: "Alex Kim"},
			{ID: "req-raced", GuardianID: "guardian-2", StudentName: "Sam Lee"},
		},
		expireResults: map[string]bool{"req-old": true, "req-raced": false},
	}
	notifier := &notifierStub{}
	svc := newRequestService(store, &studentReaderStub{}, notifier)

	expired, err := svc.AutoExpire(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1, expired, "a concurrently decided request is skipped")
	assert.Equal(t, []string{"req-old", "req-raced"}, store.expired)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "guardian-1", notifier.sent[0].recipientID)
	payload, ok := notifier.sent[0].payload.(models.RequestExpiredPayload)
	require.True(t, ok)
	assert.Equal(t, "req-old", payload.RequestID)
}
