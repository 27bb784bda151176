package dto

// UpdateScheduleStatusRequest marks a pending dose as taken or skipped.
type UpdateScheduleStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=TAKEN SKIPPED"`
	Note   string `json:"note"`
}

// UpdateScheduleNoteRequest replaces the caretaker note without touching
// the dose status.
type UpdateScheduleNoteRequest struct {
	Note string `json:"note" validate:"required"`
}
