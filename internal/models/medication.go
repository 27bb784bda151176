package models

import (
	"time"

	"github.com/lib/pq"
)

// RequestStatus tracks the approval workflow of a medication request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// MedicationRequest is a guardian's request to administer medication to a
// student over a date range. Only PENDING requests are mutable by the
// guardian; status transitions are owned by caretakers or the expiry job.
type MedicationRequest struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	GuardianID    string        `db:"guardian_id" json:"guardian_id"`
	StartDate     time.Time     `db:"start_date" json:"start_date"`
	EndDate       time.Time     `db:"end_date" json:"end_date"`
	RequestDate   time.Time     `db:"request_date" json:"request_date"`
	Note          string        `db:"note" json:"note"`
	Status        RequestStatus `db:"status" json:"status"`
	Confirmed     bool          `db:"confirmed" json:"confirmed"`
	CaretakerID   *string       `db:"caretaker_id" json:"caretaker_id,omitempty"`
	CaretakerNote *string       `db:"caretaker_note" json:"caretaker_note,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`

	Items []ItemRequest `db:"-" json:"items,omitempty"`
}

// ItemRequest is one medication item within a request. TimeSlots is the
// ordered list of clock times ("HH:MM") at which a dose is due each day; its
// length must equal Frequency.
type ItemRequest struct {
	ID        string         `db:"id" json:"id"`
	RequestID string         `db:"request_id" json:"request_id"`
	Name      string         `db:"name" json:"name"`
	Purpose   string         `db:"purpose" json:"purpose"`
	Type      string         `db:"type" json:"type"`
	Dosage    string         `db:"dosage" json:"dosage"`
	Frequency int            `db:"frequency" json:"frequency"`
	TimeSlots pq.StringArray `db:"time_slots" json:"time_slots"`
	Note      string         `db:"note" json:"note"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// MedicationRequestFilter describes query params for listing requests.
type MedicationRequestFilter struct {
	StudentID  string
	GuardianID string
	Status     *RequestStatus
	Page       int
	PageSize   int
}
