package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func TestScheduleGeneratorComputeSlotsRequiresSlots(t *testing.T) {
	g := NewScheduleGenerator()

	_, err := g.ComputeSlots(&models.ItemRequest{Name: "ibuprofen", Frequency: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleGeneratorComputeSlotsCountMustMatchFrequency(t *testing.T) {
	g := NewScheduleGenerator()

	_, err := g.ComputeSlots(&models.ItemRequest{
		Name:      "ibuprofen",
		Frequency: 3,
		TimeSlots: pq.StringArray{"08:00", "20:00"},
	})
	require.Error(t, err)
}

func TestScheduleGeneratorComputeSlotsNormalizesAndSorts(t *testing.T) {
	g := NewScheduleGenerator()

	slots, err := g.ComputeSlots(&models.ItemRequest{
		Name:      "ibuprofen",
		Frequency: 3,
		TimeSlots: pq.StringArray{"20:00", "8:00", "12:30"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "12:30", "20:00"}, slots)
}

func TestScheduleGeneratorComputeSlotsRejectsInvalid(t *testing.T) {
	g := NewScheduleGenerator()

	for _, slot := range []string{"25:00", "noon", "08:61"} {
		_, err := g.ComputeSlots(&models.ItemRequest{
			Name:      "ibuprofen",
			Frequency: 1,
			TimeSlots: pq.StringArray{slot},
		})
		require.Error(t, err, "slot %q should be rejected", slot)
	}
}

func TestScheduleGeneratorComputeSlotsRejectsDuplicates(t *testing.T) {
	g := NewScheduleGenerator()

	_, err := g.ComputeSlots(&models.ItemRequest{
		Name:      "ibuprofen",
		Frequency: 2,
		TimeSlots: pq.StringArray{"08:00", "8:00"},
	})
	require.Error(t, err)
}

func TestScheduleGeneratorGeneratesFrequencyTimesDays(t *testing.T) {
	g := NewScheduleGenerator()
	item := &models.ItemRequest{
		ID:        "item-1",
		Name:      "ibuprofen",
		Frequency: 2,
		TimeSlots: pq.StringArray{"08:00", "20:00"},
	}

	schedules, err := g.Generate(item, day(t, "2026-03-02"), day(t, "2026-03-04"))
	require.NoError(t, err)
	require.Len(t, schedules, 6, "2 slots across 3 inclusive days")

	for _, s := range schedules {
		assert.Equal(t, "item-1", s.ItemID)
		assert.Equal(t, models.ScheduleStatusPending, s.Status)
		assert.NotEmpty(t, s.ID)
	}
	assert.Equal(t, "08:00", schedules[0].ScheduledTime)
	assert.Equal(t, "20:00", schedules[1].ScheduledTime)
	assert.Equal(t, day(t, "2026-03-04"), schedules[4].ScheduledDate)
}

func TestScheduleGeneratorSingleDayRange(t *testing.T) {
	g := NewScheduleGenerator()
	item := &models.ItemRequest{
		ID:        "item-1",
		Frequency: 1,
		TimeSlots: pq.StringArray{"12:00"},
	}

	schedules, err := g.Generate(item, day(t, "2026-03-02"), day(t, "2026-03-02"))
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
}

func TestScheduleGeneratorRejectsInvertedRange(t *testing.T) {
	g := NewScheduleGenerator()
	item := &models.ItemRequest{
		ID:        "item-1",
		Frequency: 1,
		TimeSlots: pq.StringArray{"12:00"},
	}

	_, err := g.Generate(item, day(t, "2026-03-05"), day(t, "2026-03-02"))
	require.Error(t, err)
}
