package models

import "time"

// Student represents an enrolled student linked to the guardian who may
// submit medication requests on their behalf.
type Student struct {
	ID         string     `db:"id" json:"id"`
	GuardianID string     `db:"guardian_id" json:"guardian_id"`
	FullName   string     `db:"full_name" json:"full_name"`
	Grade      string     `db:"grade" json:"grade"`
	ClassName  string     `db:"class_name" json:"class_name"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
