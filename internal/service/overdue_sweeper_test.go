package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack-api/internal/models"
)

func TestOverdueSweeperSkipsPastThreshold(t *testing.T) {
	store := &scheduleStoreStub{
		markOK: true,
		overdue: []models.ScheduleDetail{
			*pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
			*pendingDose("dose-2", strPtr("caretaker-1"), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "20:00"),
		},
	}
	notifier := &notifierStub{}
	sweeper := NewOverdueSweeper(store, notifier, 30*time.Minute, nil)

	skipped, err := sweeper.Sweep(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)

	require.Len(t, store.markCalls, 2)
	for _, call := range store.markCalls {
		assert.Equal(t, models.ScheduleStatusSkipped, call.status)
		assert.Nil(t, call.caretakerID, "system skips carry no caretaker identity")
		assert.NotEmpty(t, call.note)
	}

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "caretaker-1", notifier.sent[0].recipientID)
	payload, ok := notifier.sent[0].payload.(models.MissedDosePayload)
	require.True(t, ok)
	assert.Equal(t, "dose-1", payload.ScheduleID)
	assert.Equal(t, "08:00", payload.ScheduledTime)
}

func TestOverdueSweeperLosesRaceQuietly(t *testing.T) {
	store := &scheduleStoreStub{
		markOK: false,
		overdue: []models.ScheduleDetail{
			*pendingDose("dose-1", strPtr("caretaker-1"), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	notifier := &notifierStub{}
	sweeper := NewOverdueSweeper(store, notifier, 30*time.Minute, nil)

	skipped, err := sweeper.Sweep(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped, "a dose recorded concurrently is not counted")
	assert.Empty(t, notifier.sent)
}

func TestOverdueSweeperNoApproverNoNotification(t *testing.T) {
	store := &scheduleStoreStub{
		markOK: true,
		overdue: []models.ScheduleDetail{
			*pendingDose("dose-1", nil, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "08:00"),
		},
	}
	notifier := &notifierStub{}
	sweeper := NewOverdueSweeper(store, notifier, 30*time.Minute, nil)

	skipped, err := sweeper.Sweep(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Empty(t, notifier.sent)
}

func TestOverdueSweeperEmptyBacklog(t *testing.T) {
	store := &scheduleStoreStub{markOK: true}
	sweeper := NewOverdueSweeper(store, nil, 30*time.Minute, nil)

	skipped, err := sweeper.Sweep(context.Background(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, skipped)
}
