package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolalink/escola-api/internal/models"
)

// EvaluationRepository manages rubric evaluation persistence.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = `id, student_id, rubric_id, component_id, class_id, subject_id, slot, bimester, year, level, evaluator_id, created_at, updated_at`

// ListByScope returns every evaluation in an assessment scope.
func (r *EvaluationRepository) ListByScope(ctx context.Context, scope models.EvaluationScope) ([]models.RubricEvaluation, error) {
	const query = `SELECT ` + evaluationColumns + ` FROM rubric_evaluations
        WHERE class_id = $1 AND subject_id = $2 AND slot = $3 AND bimester = $4 AND year = $5
        ORDER BY student_id, component_id, rubric_id`
	var evaluations []models.RubricEvaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, scope.ClassID, scope.SubjectID, scope.Slot, scope.Bimester, scope.Year); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

// FetchByStudent returns a student's evaluations for the scope, keyed by the
// composite (student, rubric, component) cell key.
func (r *EvaluationRepository) FetchByStudent(ctx context.Context, scope models.EvaluationScope, studentID string) (map[string]models.RubricEvaluation, error) {
	const query = `SELECT ` + evaluationColumns + ` FROM rubric_evaluations
        WHERE class_id = $1 AND subject_id = $2 AND slot = $3 AND bimester = $4 AND year = $5 AND student_id = $6`
	rows, err := r.db.QueryxContext(ctx, query, scope.ClassID, scope.SubjectID, scope.Slot, scope.Bimester, scope.Year, studentID)
	if err != nil {
		return nil, fmt.Errorf("fetch evaluations: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.RubricEvaluation)
	for rows.Next() {
		var evaluation models.RubricEvaluation
		if err := rows.StructScan(&evaluation); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		result[evaluation.Key()] = evaluation
	}
	return result, nil
}

// FetchByScope returns all evaluations of the scope keyed per student then cell key.
func (r *EvaluationRepository) FetchByScope(ctx context.Context, scope models.EvaluationScope) (map[string]map[string]models.RubricEvaluation, error) {
	evaluations, err := r.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	result := make(map[string]map[string]models.RubricEvaluation)
	for _, evaluation := range evaluations {
		cells, ok := result[evaluation.StudentID]
		if !ok {
			cells = make(map[string]models.RubricEvaluation)
			result[evaluation.StudentID] = cells
		}
		cells[evaluation.Key()] = evaluation
	}
	return result, nil
}

// Upsert inserts or updates the evaluation identified by its natural key
// (student, rubric, component, slot, bimester, year). Last write wins; the
// model carries no optimistic locking.
func (r *EvaluationRepository) Upsert(ctx context.Context, evaluation *models.RubricEvaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = now
	}
	evaluation.UpdatedAt = now
	const query = `INSERT INTO rubric_evaluations (id, student_id, rubric_id, component_id, class_id, subject_id, slot, bimester, year, level, evaluator_id, created_at, updated_at)
        VALUES (:id, :student_id, :rubric_id, :component_id, :class_id, :subject_id, :slot, :bimester, :year, :level, :evaluator_id, :created_at, :updated_at)
        ON CONFLICT (student_id, rubric_id, component_id, slot, bimester, year)
        DO UPDATE SET level = EXCLUDED.level, evaluator_id = EXCLUDED.evaluator_id, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("upsert evaluation: %w", err)
	}
	return nil
}
