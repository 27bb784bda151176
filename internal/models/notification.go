package models

import "time"

// NotificationKind identifies the reason a notification was emitted.
type NotificationKind string

const (
	NotificationMedicationMissed NotificationKind = "MEDICATION_MISSED"
	NotificationRequestApproved  NotificationKind = "REQUEST_APPROVED"
	NotificationRequestRejected  NotificationKind = "REQUEST_REJECTED"
	NotificationRequestExpired   NotificationKind = "REQUEST_EXPIRED"
	NotificationSupplyLowStock   NotificationKind = "SUPPLY_LOW_STOCK"
)

// NotificationPayload is the tagged variant carried by a notification. Each
// variant owns its kind-specific fields; the notifier dispatches on Kind()
// exactly once when persisting.
type NotificationPayload interface {
	Kind() NotificationKind
}

// MissedDosePayload announces a dose auto-skipped by the overdue sweeper.
type MissedDosePayload struct {
	ScheduleID    string `json:"schedule_id"`
	StudentName   string `json:"student_name"`
	ItemName      string `json:"item_name"`
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
}

func (MissedDosePayload) Kind() NotificationKind { return NotificationMedicationMissed }

// RequestApprovedPayload announces a caretaker approving a request.
type RequestApprovedPayload struct {
	RequestID   string `json:"request_id"`
	StudentName string `json:"student_name"`
	Note        string `json:"note,omitempty"`
}

func (RequestApprovedPayload) Kind() NotificationKind { return NotificationRequestApproved }

// RequestRejectedPayload announces a caretaker rejecting a request.
type RequestRejectedPayload struct {
	RequestID   string `json:"request_id"`
	StudentName string `json:"student_name"`
	Note        string `json:"note,omitempty"`
}

func (RequestRejectedPayload) Kind() NotificationKind { return NotificationRequestRejected }

// RequestExpiredPayload announces an automatic expiry of a stale request.
type RequestExpiredPayload struct {
	RequestID   string `json:"request_id"`
	StudentName string `json:"student_name"`
}

func (RequestExpiredPayload) Kind() NotificationKind { return NotificationRequestExpired }

// LowStockPayload announces a supply lot dropping to its reorder threshold.
type LowStockPayload struct {
	SupplyName string `json:"supply_name"`
	LotID      string `json:"lot_id"`
	Remaining  string `json:"remaining"`
	Unit       string `json:"unit"`
}

func (LowStockPayload) Kind() NotificationKind { return NotificationSupplyLowStock }

// Notification is a persisted notification row awaiting delivery or display.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Payload     []byte           `db:"payload" json:"payload"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
