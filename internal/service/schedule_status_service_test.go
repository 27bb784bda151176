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
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type scheduleStoreStub struct {
	details map[string]*models.ScheduleDetail

	markCalls []markCall
	markOK    bool
	noteCalls []string

	overdue     []models.ScheduleDetail
	overdueOnce bool
}

type markCall struct {
	id          string
	status      models.ScheduleStatus
	caretakerID *string
	note        string
}

func (s *scheduleStoreStub) FindDetail(_ context.Context, id string) (*models.ScheduleDetail, error) {
	detail, ok := s.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *detail
	return &clone, nil
}

func (s *scheduleStoreStub) List(_ context.Context, _ models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	var out []models.ScheduleDetail
	for _, d := range s.details {
		out = append(out, *d)
	}
	return out, nil
}

func (s *scheduleStoreStub) MarkStatus(_ context.Context, id string, status models.ScheduleStatus, caretakerID *string, note string, _ time.Time) (bool, error) {
	s.markCalls = append(s.markCalls, markCall{id: id, status: status, caretakerID: caretakerID, note: note})
	return s.markOK, nil
}

func (s *scheduleStoreStub) UpdateNote(_ context.Context, id, _ string, _ time.Time) error {
	s.noteCalls = append(s.noteCalls, id)
	return nil
}

func (s *scheduleStoreStub) ListOverdue(_ context.Context, _ time.Time, _ string, _ int) ([]models.ScheduleDetail, error) {
	if s.overdueOnce {
		return nil, nil
	}
	s.overdueOnce = true
	return s.overdue, nil
}

func strPtr(v string) *string { return &v }

func pendingDose(id string, approverID *string, date time.Time, slot string) *models.ScheduleDetail {
	return &models.ScheduleDetail{
		MedicationSchedule: models.MedicationSchedule{
			ID:            id,
			ItemID:        "item-1",
			ScheduledDate: date,
			ScheduledTime: slot,
			Status:        models.ScheduleStatusPending,
		},
		RequestID:   "req-1",
		StudentID:   "student-1",
		StudentName: "Alex Kim",
		ItemName:    "ibuprofen",
		ApproverID:  approverID,
	}
}

func newStatusService(store *scheduleStoreStub, now time.Time) *ScheduleStatusService {
	svc := NewScheduleStatusService(store, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestScheduleStatusUpdateRecordsTaken(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		markOK: true,
		details: map[string]*models.ScheduleDetail{
			"dose-1": pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	svc := newStatusService(store, now)

	detail, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleStatusRequest{
		Status: "TAKEN",
		Note:   "given with breakfast",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ScheduleStatusTaken, detail.Status)
	require.NotNil(t, detail.AdministeredAt)
	assert.Equal(t, now, *detail.AdministeredAt)
	assert.Equal(t, "given with breakfast", detail.CaretakerNote)

	require.Len(t, store.markCalls, 1)
	assert.Equal(t, models.ScheduleStatusTaken, store.markCalls[0].status)
	require.NotNil(t, store.markCalls[0].caretakerID)
	assert.Equal(t, "caretaker-1", *store.markCalls[0].caretakerID)
}

func TestScheduleStatusUpdateOnlyApprover(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		markOK: true,
		details: map[string]*models.ScheduleDetail{
			"dose-1": pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	svc := newStatusService(store, now)

	_, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-2"), "dose-1", dto.UpdateScheduleStatusRequest{Status: "TAKEN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.markCalls)
}

func TestScheduleStatusUpdateUnapprovedRequest(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		details: map[string]*models.ScheduleDetail{
			"dose-1": pendingDose("dose-1", nil, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	svc := newStatusService(store, now)

	_, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleStatusRequest{Status: "TAKEN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScheduleStatusUpdateFutureDose(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		details: map[string]*models.ScheduleDetail{
			"dose-1": pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	svc := newStatusService(store, now)

	_, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleStatusRequest{Status: "TAKEN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestScheduleStatusUpdateAlreadyRecorded(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	taken := pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00")
	taken.Status = models.ScheduleStatusTaken
	store := &scheduleStoreStub{details: map[string]*models.ScheduleDetail{"dose-1": taken}}
	svc := newStatusService(store, now)

	_, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleStatusRequest{Status: "SKIPPED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestScheduleStatusUpdateLosesRace(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		markOK: false,
		details: map[string]*models.ScheduleDetail{
			"dose-1": pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	svc := newStatusService(store, now)

	_, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleStatusRequest{Status: "TAKEN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestScheduleStatusUpdateRejectsUnknownStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := newStatusService(&scheduleStoreStub{}, now)

	_, err := svc.UpdateStatus(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleStatusRequest{Status: "PENDING"})
	require.Error(t, err, "doses never transition back to PENDING")
}

func TestScheduleStatusNoteEditableAfterRecording(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	taken := pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00")
	taken.Status = models.ScheduleStatusTaken
	store := &scheduleStoreStub{details: map[string]*models.ScheduleDetail{"dose-1": taken}}
	svc := newStatusService(store, now)

	detail, err := svc.UpdateNote(context.Background(), caretakerClaims("caretaker-1"), "dose-1", dto.UpdateScheduleNoteRequest{Note: "half dose only"})
	require.NoError(t, err)
	assert.Equal(t, "half dose only", detail.CaretakerNote)
	assert.Equal(t, []string{"dose-1"}, store.noteCalls)
}
