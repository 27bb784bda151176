package models

import "time"

// ScheduleStatus tracks the per-dose state machine. PENDING is the only
// non-terminal state; TAKEN and SKIPPED are final.
type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "PENDING"
	ScheduleStatusTaken   ScheduleStatus = "TAKEN"
	ScheduleStatusSkipped ScheduleStatus = "SKIPPED"
)

// MedicationSchedule is one discrete dose event: a single clock-time instance
// of administering one item on one day. ScheduledTime is a zero-padded
// "HH:MM" string so lexicographic order matches temporal order.
type MedicationSchedule struct {
	ID             string         `db:"id" json:"id"`
	ItemID         string         `db:"item_id" json:"item_id"`
	ScheduledDate  time.Time      `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime  string         `db:"scheduled_time" json:"scheduled_time"`
	Status         ScheduleStatus `db:"status" json:"status"`
	CaretakerID    *string        `db:"caretaker_id" json:"caretaker_id,omitempty"`
	AdministeredAt *time.Time     `db:"administered_at" json:"administered_at,omitempty"`
	CaretakerNote  string         `db:"caretaker_note" json:"caretaker_note"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail joins a schedule with its item and parent request context,
// including the caretaker who approved the request (the only identity allowed
// to act on the dose).
type ScheduleDetail struct {
	MedicationSchedule
	RequestID   string  `db:"request_id" json:"request_id"`
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	ItemName    string  `db:"item_name" json:"item_name"`
	Dosage      string  `db:"dosage" json:"dosage"`
	ApproverID  *string `db:"approver_id" json:"approver_id,omitempty"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	StudentID string
	ItemID    string
	Date      *time.Time
	Status    *ScheduleStatus
}
