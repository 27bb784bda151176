package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

// ScheduleGenerator expands an approved medication item into its discrete
// dose rows: one PENDING schedule per (day, time slot) across the request's
// date range, frequency slots per day.
type ScheduleGenerator struct{}

// NewScheduleGenerator constructs a ScheduleGenerator.
func NewScheduleGenerator() *ScheduleGenerator {
	return &ScheduleGenerator{}
}

// ComputeSlots validates and normalizes an item's time slots. Every slot must
// parse as a 24h clock time and the slot count must equal the item's
// frequency; defaults are never synthesized. The returned slots are
// zero-padded "HH:MM" in ascending order.
func (g *ScheduleGenerator) ComputeSlots(item *models.ItemRequest) ([]string, error) {
	if len(item.TimeSlots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time slots are required for each item")
	}
	if len(item.TimeSlots) != item.Frequency {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("item %q declares frequency %d but provides %d time slots", item.Name, item.Frequency, len(item.TimeSlots)))
	}

	slots := make([]string, 0, len(item.TimeSlots))
	seen := make(map[string]struct{}, len(item.TimeSlots))
	for _, raw := range item.TimeSlots {
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time slot %q, expected HH:MM", raw))
		}
		slot := t.Format("15:04")
		if _, dup := seen[slot]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate time slot %q", slot))
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots, nil
}

// Generate produces the full dose grid for one item over [startDate, endDate]
// inclusive: frequency rows per day, every row PENDING. Dates are compared at
// day precision.
func (g *ScheduleGenerator) Generate(item *models.ItemRequest, startDate, endDate time.Time) ([]models.MedicationSchedule, error) {
	slots, err := g.ComputeSlots(item)
	if err != nil {
		return nil, err
	}

	start := truncateToDay(startDate)
	end := truncateToDay(endDate)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	now := time.Now().UTC()
	var schedules []models.MedicationSchedule
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, slot := range slots {
			schedules = append(schedules, models.MedicationSchedule{
				ID:            uuid.NewString(),
				ItemID:        item.ID,
				ScheduledDate: day,
				ScheduledTime: slot,
				Status:        models.ScheduleStatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
	}
	return schedules, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
