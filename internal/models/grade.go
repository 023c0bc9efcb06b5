package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ComponentSnapshot is a denormalized copy of one component with its computed
// value, taken when a composition-mode grade is saved. Snapshots are matched
// back to live templates by component name, so template edits after the save
// degrade gracefully instead of breaking restoration.
type ComponentSnapshot struct {
	Name                string   `json:"name"`
	MaxValue            float64  `json:"max_value"`
	RequiredRubricCount int      `json:"required_rubric_count"`
	RubricIDs           []string `json:"rubric_ids"`
	Value               *float64 `json:"value,omitempty"`
}

// SnapshotList stores component snapshots as a jsonb column.
type SnapshotList []ComponentSnapshot

// Value implements driver.Valuer.
func (s SnapshotList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SnapshotList) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported snapshot source %T", src)
	}
	return json.Unmarshal(raw, s)
}

// GradeRecord is the persisted final grade for one
// (student, class, subject, bimester, assessment type) cell.
type GradeRecord struct {
	ID        string         `db:"id" json:"id"`
	StudentID string         `db:"student_id" json:"student_id"`
	ClassID   string         `db:"class_id" json:"class_id"`
	SubjectID string         `db:"subject_id" json:"subject_id"`
	Bimester  int            `db:"bimester" json:"bimester"`
	Type      AssessmentSlot `db:"type" json:"type"`
	Value     float64        `db:"value" json:"value"`
	Snapshot  SnapshotList   `db:"composition_snapshot" json:"composition_snapshot,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// GradeScope keys one grade cell.
type GradeScope struct {
	StudentID string         `json:"student_id"`
	ClassID   string         `json:"class_id"`
	SubjectID string         `json:"subject_id"`
	Bimester  int            `json:"bimester"`
	Type      AssessmentSlot `json:"type"`
}

// GradeFilter narrows grade record listings.
type GradeFilter struct {
	ClassID   string
	SubjectID string
	StudentID string
	Bimester  int
	Type      AssessmentSlot
}

// StudentCellRow is one student's resolved cell in a class grade sheet.
type StudentCellRow struct {
	StudentID string            `json:"student_id"`
	Slot      AssessmentSlot    `json:"slot"`
	Mode      CellMode          `json:"mode"`
	Status    CompositionStatus `json:"status,omitempty"`
	Value     *float64          `json:"value,omitempty"`
}

// ClassGradeSheet aggregates resolved cells for one class/subject/bimester.
type ClassGradeSheet struct {
	ClassID   string           `json:"class_id"`
	SubjectID string           `json:"subject_id"`
	Bimester  int              `json:"bimester"`
	Year      int              `json:"year"`
	Rows      []StudentCellRow `json:"rows"`
}
