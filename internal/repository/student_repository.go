package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/medtrack/medtrack-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, guardian_id, full_name, grade, class_name, birth_date, active, created_at, updated_at
FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// IsOwnedBy reports whether the student belongs to the given guardian.
func (r *StudentRepository) IsOwnedBy(ctx context.Context, studentID, guardianID string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE id = $1 AND guardian_id = $2 AND active LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, guardianID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student ownership: %w", err)
	}
	return true, nil
}

// ListByGuardian returns all active students owned by the guardian.
func (r *StudentRepository) ListByGuardian(ctx context.Context, guardianID string) ([]models.Student, error) {
	const query = `SELECT id, guardian_id, full_name, grade, class_name, birth_date, active, created_at, updated_at
FROM students WHERE guardian_id = $1 AND active ORDER BY full_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, guardianID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
