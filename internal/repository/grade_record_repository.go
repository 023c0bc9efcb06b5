package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolalink/escola-api/internal/models"
)

// GradeRecordRepository manages final grade persistence.
type GradeRecordRepository struct {
	db *sqlx.DB
}

// NewGradeRecordRepository constructs repository.
func NewGradeRecordRepository(db *sqlx.DB) *GradeRecordRepository {
	return &GradeRecordRepository{db: db}
}

const gradeColumns = `id, student_id, class_id, subject_id, bimester, type, value, composition_snapshot, created_at, updated_at`

// FindByScope returns the grade record for one cell.
func (r *GradeRecordRepository) FindByScope(ctx context.Context, scope models.GradeScope) (*models.GradeRecord, error) {
	const query = `SELECT ` + gradeColumns + ` FROM grade_records
        WHERE student_id = $1 AND class_id = $2 AND subject_id = $3 AND bimester = $4 AND type = $5`
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, scope.StudentID, scope.ClassID, scope.SubjectID, scope.Bimester, scope.Type); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns grade records matching the filter.
func (r *GradeRecordRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRecord, error) {
	query := `SELECT ` + gradeColumns + ` FROM grade_records WHERE 1=1`
	args := []interface{}{}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Bimester != 0 {
		query += fmt.Sprintf(" AND bimester = $%d", len(args)+1)
		args = append(args, filter.Bimester)
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}
	query += " ORDER BY student_id, type"
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list grade records: %w", err)
	}
	return records, nil
}

// Upsert inserts or updates the record for its natural key. Composition saves
// replace the snapshot; manual saves clear it.
func (r *GradeRecordRepository) Upsert(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO grade_records (id, student_id, class_id, subject_id, bimester, type, value, composition_snapshot, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :subject_id, :bimester, :type, :value, :composition_snapshot, :created_at, :updated_at)
        ON CONFLICT (student_id, class_id, subject_id, bimester, type)
        DO UPDATE SET value = EXCLUDED.value, composition_snapshot = EXCLUDED.composition_snapshot, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert grade record: %w", err)
	}
	return nil
}
