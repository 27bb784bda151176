package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type overdueScheduleStore interface {
	ListOverdue(ctx context.Context, date time.Time, timeCutoff string, limit int) ([]models.ScheduleDetail, error)
	MarkStatus(ctx context.Context, id string, status models.ScheduleStatus, caretakerID *string, note string, administeredAt time.Time) (bool, error)
}

// missedDoseNote is the system note stamped on auto-skipped doses.
const missedDoseNote = "Automatically skipped: dose was not administered in time"

const sweepBatchSize = 500

// OverdueSweeper skips doses left PENDING past the grace threshold. It shares
// the compare-and-swap transition with caretaker updates, so a dose recorded
// between listing and marking is simply skipped over.
type OverdueSweeper struct {
	repo      overdueScheduleStore
	notifier  Notifier
	threshold time.Duration
	logger    *zap.Logger
}

// NewOverdueSweeper builds an OverdueSweeper. The threshold is the grace
// period after a dose's scheduled moment before it counts as missed.
func NewOverdueSweeper(repo overdueScheduleStore, notifier Notifier, threshold time.Duration, logger *zap.Logger) *OverdueSweeper {
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweeper{
		repo:      repo,
		notifier:  notifier,
		threshold: threshold,
		logger:    logger,
	}
}

// Sweep marks every dose whose scheduled moment is more than the threshold in
// the past as SKIPPED, with no caretaker identity and a system note. Returns
// the number of doses skipped. Per-dose failures are logged and do not abort
// the sweep.
func (s *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	// Splitting the cutoff instant into its date and clock parts lets one
	// predicate cover both earlier days and earlier slots today, including
	// sweeps shortly after midnight reaching back into yesterday.
	cutoff := now.Add(-s.threshold)
	cutoffDate := truncateToDay(cutoff)
	cutoffTime := cutoff.Format("15:04")

	skipped := 0
	for {
		overdue, err := s.repo.ListOverdue(ctx, cutoffDate, cutoffTime, sweepBatchSize)
		if err != nil {
			return skipped, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue doses")
		}
		if len(overdue) == 0 {
			break
		}

		progressed := 0
		for _, dose := range overdue {
			ok, err := s.repo.MarkStatus(ctx, dose.ID, models.ScheduleStatusSkipped, nil, missedDoseNote, now)
			if err != nil {
				s.logger.Error("failed to skip overdue dose",
					zap.String("schedule_id", dose.ID), zap.Error(err))
				continue
			}
			progressed++
			if !ok {
				continue
			}
			skipped++

			if s.notifier != nil && dose.ApproverID != nil {
				s.notifier.Notify(*dose.ApproverID, models.MissedDosePayload{
					ScheduleID:    dose.ID,
					StudentName:   dose.StudentName,
					ItemName:      dose.ItemName,
					ScheduledDate: dose.ScheduledDate.Format("2006-01-02"),
					ScheduledTime: dose.ScheduledTime,
				})
			}
		}

		// If every row in the batch errored, looping again would spin on the
		// same rows.
		if progressed == 0 {
			break
		}
		if len(overdue) < sweepBatchSize {
			break
		}
	}

	if skipped > 0 {
		s.logger.Info("skipped overdue doses", zap.Int("count", skipped))
	}
	return skipped, nil
}
