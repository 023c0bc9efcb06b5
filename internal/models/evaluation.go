package models

import (
	"strings"
	"time"
)

// RubricEvaluation is a single assigned performance level for one
// (student, rubric, component) cell inside an assessment scope.
type RubricEvaluation struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	RubricID    string         `db:"rubric_id" json:"rubric_id"`
	ComponentID string         `db:"component_id" json:"component_id"`
	ClassID     string         `db:"class_id" json:"class_id"`
	SubjectID   string         `db:"subject_id" json:"subject_id"`
	Slot        AssessmentSlot `db:"slot" json:"slot"`
	Bimester    int            `db:"bimester" json:"bimester"`
	Year        int            `db:"year" json:"year"`
	Level       RubricLevel    `db:"level" json:"level"`
	EvaluatorID string         `db:"evaluator_id" json:"evaluator_id"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Key returns the staging/lookup key for the evaluation's cell.
func (e *RubricEvaluation) Key() string {
	return EvaluationKey(e.StudentID, e.RubricID, e.ComponentID)
}

// EvaluationKey builds the composite key identifying one evaluation cell
// within an assessment scope.
func EvaluationKey(studentID, rubricID, componentID string) string {
	return strings.Join([]string{studentID, rubricID, componentID}, "|")
}

// EvaluationScope narrows evaluations to one assessment cell grid.
type EvaluationScope struct {
	ClassID   string         `json:"class_id"`
	SubjectID string         `json:"subject_id"`
	Slot      AssessmentSlot `json:"slot"`
	Bimester  int            `json:"bimester"`
	Year      int            `json:"year"`
}

// PendingLevel is one staged, not yet persisted level selection.
type PendingLevel struct {
	StudentID   string      `json:"student_id"`
	RubricID    string      `json:"rubric_id"`
	ComponentID string      `json:"component_id"`
	Level       RubricLevel `json:"level"`
}

// Key returns the pending entry's composite key.
func (p PendingLevel) Key() string {
	return EvaluationKey(p.StudentID, p.RubricID, p.ComponentID)
}

// BatchFailure records one failed entry of a sequential bulk write.
type BatchFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// BatchResult summarises a sequential, non-atomic bulk write. Earlier writes
// stay committed when later ones fail; callers retry only the failed subset.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed,omitempty"`
}

// Ok reports whether every entry was written.
func (r *BatchResult) Ok() bool {
	return len(r.Failed) == 0
}
