package dto

// ItemPayload describes one medication item in a submit or update request.
// ID is empty for new items; on update, a non-empty ID matches an existing
// item which will have its schedules regenerated.
type ItemPayload struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name" validate:"required"`
	Purpose   string   `json:"purpose"`
	Type      string   `json:"type"`
	Dosage    string   `json:"dosage" validate:"required"`
	Frequency int      `json:"frequency" validate:"required,min=1"`
	TimeSlots []string `json:"time_slots" validate:"required,min=1"`
	Note      string   `json:"note"`
}

// SubmitMedicationRequest is the guardian-facing payload creating a request.
type SubmitMedicationRequest struct {
	StudentID string        `json:"student_id" validate:"required"`
	StartDate string        `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string        `json:"end_date" validate:"required,datetime=2006-01-02"`
	Note      string        `json:"note"`
	Items     []ItemPayload `json:"items" validate:"required,min=1,dive"`
}

// UpdateMedicationRequest replaces the mutable fields of a PENDING request.
// Existing items absent from Items are deleted together with their schedules.
type UpdateMedicationRequest struct {
	StartDate string        `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string        `json:"end_date" validate:"required,datetime=2006-01-02"`
	Note      string        `json:"note"`
	Items     []ItemPayload `json:"items" validate:"required,min=1,dive"`
}

// DecisionRequest carries the caretaker's note for approve/reject actions.
type DecisionRequest struct {
	Note string `json:"note"`
}
