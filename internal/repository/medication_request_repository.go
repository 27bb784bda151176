package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medtrack/medtrack-api/internal/models"
)

// MedicationRequestRepository manages persistence for medication requests,
// their items, and the schedule cascades tied to lifecycle transitions.
type MedicationRequestRepository struct {
	db *sqlx.DB
}

// NewMedicationRequestRepository constructs the repository.
func NewMedicationRequestRepository(db *sqlx.DB) *MedicationRequestRepository {
	return &MedicationRequestRepository{db: db}
}

const requestColumns = `id, student_id, guardian_id, start_date, end_date, request_date, note, status, confirmed, caretaker_id, caretaker_note, created_at, updated_at`

const itemColumns = `id, request_id, name, purpose, type, dosage, frequency, time_slots, note, created_at, updated_at`

// deleteSchedulesForRequest removes every schedule of every item of the request.
const deleteSchedulesForRequest = `DELETE FROM medication_schedules
WHERE item_id IN (SELECT id FROM item_requests WHERE request_id = $1)`

// Create persists the request, its items, and the pre-generated schedules as
// one transaction.
func (r *MedicationRequestRepository) Create(ctx context.Context, req *models.MedicationRequest, schedules []models.MedicationSchedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRequest = `INSERT INTO medication_requests (` + requestColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err = tx.ExecContext(ctx, insertRequest,
		req.ID, req.StudentID, req.GuardianID, req.StartDate, req.EndDate, req.RequestDate,
		req.Note, req.Status, req.Confirmed, req.CaretakerID, req.CaretakerNote,
		req.CreatedAt, req.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for i := range req.Items {
		if err = insertItem(ctx, tx, &req.Items[i]); err != nil {
			return err
		}
	}

	if err = insertSchedules(ctx, tx, schedules); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, ext sqlx.ExtContext, item *models.ItemRequest) error {
	const query = `INSERT INTO item_requests (` + itemColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := ext.ExecContext(ctx, query,
		item.ID, item.RequestID, item.Name, item.Purpose, item.Type, item.Dosage,
		item.Frequency, item.TimeSlots, item.Note, item.CreatedAt, item.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// FindByID fetches the request with its items.
func (r *MedicationRequestRepository) FindByID(ctx context.Context, id string) (*models.MedicationRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM medication_requests WHERE id = $1`
	var req models.MedicationRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}

	const itemQuery = `SELECT ` + itemColumns + ` FROM item_requests WHERE request_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &req.Items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("load request items: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter with a total count.
func (r *MedicationRequestRepository) List(ctx context.Context, filter models.MedicationRequestFilter) ([]models.MedicationRequest, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.GuardianID != "" {
		args = append(args, filter.GuardianID)
		conditions = append(conditions, fmt.Sprintf("guardian_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM medication_requests WHERE %s ORDER BY request_date DESC, created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, where, size, (page-1)*size)
	var requests []models.MedicationRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM medication_requests WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// Approve records the caretaker decision, leaving generated schedules intact.
func (r *MedicationRequestRepository) Approve(ctx context.Context, id, caretakerID, note string, now time.Time) error {
	const query = `UPDATE medication_requests
SET status = $1, confirmed = TRUE, caretaker_id = $2, caretaker_note = $3, updated_at = $4
WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, models.RequestStatusApproved, caretakerID, note, now, id); err != nil {
		return fmt.Errorf("approve request: %w", err)
	}
	return nil
}

// Reject records the decision and deletes every schedule of every item in the
// same transaction.
func (r *MedicationRequestRepository) Reject(ctx context.Context, id, caretakerID, note string, now time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE medication_requests
SET status = $1, confirmed = TRUE, caretaker_id = $2, caretaker_note = $3, updated_at = $4
WHERE id = $5`
	if _, err = tx.ExecContext(ctx, update, models.RequestStatusRejected, caretakerID, note, now, id); err != nil {
		return fmt.Errorf("reject request: %w", err)
	}

	if _, err = tx.ExecContext(ctx, deleteSchedulesForRequest, id); err != nil {
		return fmt.Errorf("delete schedules on reject: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reject request: %w", err)
	}
	return nil
}

// UpdateRequestParams carries the full item diff applied in one transaction.
type UpdateRequestParams struct {
	Request       *models.MedicationRequest
	DeleteItemIDs []string
	UpdateItems   []models.ItemRequest
	InsertItems   []models.ItemRequest
	// Schedules are the regenerated rows for every updated and inserted item;
	// prior schedules of those items are removed first.
	Schedules []models.MedicationSchedule
}

// ApplyUpdate rewrites a PENDING request: request fields, removed items with
// their schedules, updated items with regenerated schedules, and new items.
func (r *MedicationRequestRepository) ApplyUpdate(ctx context.Context, params UpdateRequestParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req := params.Request
	const update = `UPDATE medication_requests SET start_date = $1, end_date = $2, note = $3, updated_at = $4 WHERE id = $5`
	if _, err = tx.ExecContext(ctx, update, req.StartDate, req.EndDate, req.Note, req.UpdatedAt, req.ID); err != nil {
		return fmt.Errorf("update request: %w", err)
	}

	for _, itemID := range params.DeleteItemIDs {
		if _, err = tx.ExecContext(ctx, `DELETE FROM medication_schedules WHERE item_id = $1`, itemID); err != nil {
			return fmt.Errorf("delete schedules for removed item: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM item_requests WHERE id = $1`, itemID); err != nil {
			return fmt.Errorf("delete removed item: %w", err)
		}
	}

	for i := range params.UpdateItems {
		item := &params.UpdateItems[i]
		const itemUpdate = `UPDATE item_requests
SET name = $1, purpose = $2, type = $3, dosage = $4, frequency = $5, time_slots = $6, note = $7, updated_at = $8
WHERE id = $9`
		if _, err = tx.ExecContext(ctx, itemUpdate,
			item.Name, item.Purpose, item.Type, item.Dosage, item.Frequency, item.TimeSlots, item.Note, item.UpdatedAt, item.ID,
		); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM medication_schedules WHERE item_id = $1`, item.ID); err != nil {
			return fmt.Errorf("delete schedules for updated item: %w", err)
		}
	}

	for i := range params.InsertItems {
		if err = insertItem(ctx, tx, &params.InsertItems[i]); err != nil {
			return err
		}
	}

	if err = insertSchedules(ctx, tx, params.Schedules); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update request: %w", err)
	}
	return nil
}

// Delete removes the request with its items and schedules.
func (r *MedicationRequestRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteSchedulesForRequest, id); err != nil {
		return fmt.Errorf("delete schedules on delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM item_requests WHERE request_id = $1`, id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM medication_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete request: %w", err)
	}
	return nil
}

// ExpiryCandidate is a stale pending request selected for auto-rejection.
type ExpiryCandidate struct {
	ID          string `db:"id"`
	GuardianID  string `db:"guardian_id"`
	StudentName string `db:"student_name"`
}

// ListPendingBefore returns pending requests whose submission date is
// strictly older than the cutoff date. Requests submitted exactly on the
// cutoff day are deliberately excluded; submission precision is date-only.
func (r *MedicationRequestRepository) ListPendingBefore(ctx context.Context, cutoffDate time.Time, limit int) ([]ExpiryCandidate, error) {
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`SELECT mr.id, mr.guardian_id, st.full_name AS student_name
FROM medication_requests mr
JOIN students st ON st.id = mr.student_id
WHERE mr.status = $1 AND mr.request_date < $2
ORDER BY mr.request_date ASC
LIMIT %d`, limit)

	var candidates []ExpiryCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, models.RequestStatusPending, cutoffDate); err != nil {
		return nil, fmt.Errorf("list pending before cutoff: %w", err)
	}
	return candidates, nil
}

// Expire force-rejects one stale request with a system note, deleting its
// schedules in the same transaction. The status predicate keeps the
// transition compare-and-swap against a concurrent caretaker decision.
func (r *MedicationRequestRepository) Expire(ctx context.Context, id, note string, now time.Time) (expired bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin expire request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE medication_requests
SET status = $1, confirmed = TRUE, caretaker_note = $2, updated_at = $3
WHERE id = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, update, models.RequestStatusRejected, note, now, id, models.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("expire request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire request: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	if _, err = tx.ExecContext(ctx, deleteSchedulesForRequest, id); err != nil {
		return false, fmt.Errorf("delete schedules on expire: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit expire request: %w", err)
	}
	return true, nil
}
