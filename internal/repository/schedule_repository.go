package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medtrack/medtrack-api/internal/models"
)

// ScheduleRepository manages persistence for dose schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleDetailColumns = `
	ms.id, ms.item_id, ms.scheduled_date, ms.scheduled_time, ms.status,
	ms.caretaker_id, ms.administered_at, ms.caretaker_note, ms.created_at, ms.updated_at,
	ir.request_id, ir.name AS item_name, ir.dosage,
	mr.student_id, st.full_name AS student_name, mr.caretaker_id AS approver_id`

const scheduleDetailJoins = `
FROM medication_schedules ms
JOIN item_requests ir ON ir.id = ms.item_id
JOIN medication_requests mr ON mr.id = ir.request_id
JOIN students st ON st.id = mr.student_id`

// insertSchedules bulk-inserts schedule rows using the provided executor so
// the same statement serves both standalone inserts and multi-entity
// transactions owned by the request repository.
func insertSchedules(ctx context.Context, ext sqlx.ExtContext, schedules []models.MedicationSchedule) error {
	if len(schedules) == 0 {
		return nil
	}

	values := strings.Builder{}
	args := make([]interface{}, 0, len(schedules)*6)
	for i, s := range schedules {
		if i > 0 {
			values.WriteString(", ")
		}
		base := len(args)
		fmt.Fprintf(&values, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, s.ID, s.ItemID, s.ScheduledDate, s.ScheduledTime, s.Status, s.CreatedAt)
	}

	query := fmt.Sprintf(`INSERT INTO medication_schedules (id, item_id, scheduled_date, scheduled_time, status, created_at)
VALUES %s`, values.String())
	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert schedules: %w", err)
	}
	return nil
}

// BulkInsert persists the generated schedule rows.
func (r *ScheduleRepository) BulkInsert(ctx context.Context, schedules []models.MedicationSchedule) error {
	return insertSchedules(ctx, r.db, schedules)
}

// FindDetail loads a schedule joined with its item, request, and the
// caretaker who approved the parent request.
func (r *ScheduleRepository) FindDetail(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE ms.id = $1`, scheduleDetailColumns, scheduleDetailJoins)
	var detail models.ScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns schedule details matching the filter, ordered by dose time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("mr.student_id = $%d", len(args)))
	}
	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		conditions = append(conditions, fmt.Sprintf("ms.item_id = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("ms.scheduled_date = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("ms.status = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY ms.scheduled_date ASC, ms.scheduled_time ASC`,
		scheduleDetailColumns, scheduleDetailJoins, strings.Join(conditions, " AND "))

	var items []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return items, nil
}

// ListOverdue returns pending doses strictly earlier than (date, timeCutoff):
// any earlier calendar date, or the same date with a slot before the cutoff.
func (r *ScheduleRepository) ListOverdue(ctx context.Context, date time.Time, timeCutoff string, limit int) ([]models.ScheduleDetail, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s %s
WHERE ms.status = $1
	AND (ms.scheduled_date < $2 OR (ms.scheduled_date = $2 AND ms.scheduled_time < $3))
ORDER BY ms.scheduled_date ASC, ms.scheduled_time ASC
LIMIT %d`, scheduleDetailColumns, scheduleDetailJoins, limit)

	var items []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &items, query, models.ScheduleStatusPending, date, timeCutoff); err != nil {
		return nil, fmt.Errorf("list overdue schedules: %w", err)
	}
	return items, nil
}

// MarkStatus transitions a schedule out of PENDING. The predicate makes the
// transition compare-and-swap: a concurrent writer that already left PENDING
// wins and this call reports false. An empty note preserves the stored one.
func (r *ScheduleRepository) MarkStatus(ctx context.Context, id string, status models.ScheduleStatus, caretakerID *string, note string, administeredAt time.Time) (bool, error) {
	const query = `UPDATE medication_schedules
SET status = $1,
	caretaker_id = $2,
	administered_at = $3,
	caretaker_note = CASE WHEN $4 <> '' THEN $4 ELSE caretaker_note END,
	updated_at = $3
WHERE id = $5 AND status = $6`

	result, err := r.db.ExecContext(ctx, query, status, caretakerID, administeredAt, note, id, models.ScheduleStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark schedule status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark schedule status: %w", err)
	}
	return affected == 1, nil
}

// UpdateNote replaces the caretaker note without touching status.
func (r *ScheduleRepository) UpdateNote(ctx context.Context, id, note string, updatedAt time.Time) error {
	const query = `UPDATE medication_schedules SET caretaker_note = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, note, updatedAt, id); err != nil {
		return fmt.Errorf("update schedule note: %w", err)
	}
	return nil
}
