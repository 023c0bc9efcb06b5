package models

import (
	"time"

	"github.com/lib/pq"
)

// AssessmentSlot identifies which assessment of a bimester a value belongs to.
type AssessmentSlot string

const (
	SlotAV1 AssessmentSlot = "AV1"
	SlotAV2 AssessmentSlot = "AV2"
	SlotREC AssessmentSlot = "REC"
)

// Valid reports whether the slot is a known assessment slot.
func (s AssessmentSlot) Valid() bool {
	switch s {
	case SlotAV1, SlotAV2, SlotREC:
		return true
	}
	return false
}

// GradeCeiling is the grade scale ceiling; component maxima of a saved
// template must sum to exactly this value.
const GradeCeiling = 10.0

// Component maxValue bounds.
const (
	ComponentMaxValueFloor   = 0.5
	ComponentMaxValueCeiling = 10.0
)

// TemplateScope keys a composition template.
type TemplateScope struct {
	ClassID   string         `json:"class_id"`
	SubjectID string         `json:"subject_id"`
	Bimester  int            `json:"bimester"`
	Slot      AssessmentSlot `json:"slot"`
	Year      int            `json:"year"`
}

// CompositionComponent is one weighted slice of a bimester grade. Value is a
// working/display field: it is computed (composition mode) or typed directly
// (manual mode) and is never part of the durable template definition.
type CompositionComponent struct {
	ID                  string         `db:"id" json:"id"`
	TemplateID          string         `db:"template_id" json:"-"`
	Name                string         `db:"name" json:"name"`
	MaxValue            float64        `db:"max_value" json:"max_value"`
	RequiredRubricCount int            `db:"required_rubric_count" json:"required_rubric_count"`
	RubricIDs           pq.StringArray `db:"rubric_ids" json:"rubric_ids"`
	Position            int            `db:"position" json:"position"`
	Value               *float64       `db:"-" json:"value,omitempty"`
}

// CompositionTemplate defines how a bimester grade decomposes into weighted
// components for one (class, subject, bimester, slot, year) scope.
type CompositionTemplate struct {
	ID         string                 `db:"id" json:"id"`
	ClassID    string                 `db:"class_id" json:"class_id"`
	SubjectID  string                 `db:"subject_id" json:"subject_id"`
	Bimester   int                    `db:"bimester" json:"bimester"`
	Slot       AssessmentSlot         `db:"slot" json:"slot"`
	Year       int                    `db:"year" json:"year"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time              `db:"updated_at" json:"updated_at"`
	Components []CompositionComponent `json:"components"`
}

// Scope returns the template's natural key.
func (t *CompositionTemplate) Scope() TemplateScope {
	return TemplateScope{ClassID: t.ClassID, SubjectID: t.SubjectID, Bimester: t.Bimester, Slot: t.Slot, Year: t.Year}
}

// RubricContribution is one rubric's share of a component value.
type RubricContribution struct {
	RubricID   string       `json:"rubric_id"`
	RubricName string       `json:"rubric_name,omitempty"`
	Level      *RubricLevel `json:"level,omitempty"`
	Value      *float64     `json:"value,omitempty"`
	Dangling   bool         `json:"dangling,omitempty"`
}

// ComponentBreakdown explains how one component value was produced.
type ComponentBreakdown struct {
	ComponentID         string               `json:"component_id"`
	Name                string               `json:"name"`
	MaxValue            float64              `json:"max_value"`
	RequiredRubricCount int                  `json:"required_rubric_count"`
	Value               *float64             `json:"value,omitempty"`
	Rubrics             []RubricContribution `json:"rubrics"`
}

// CompositionStatus is the computed sub-status of a composition-mode cell.
type CompositionStatus string

const (
	// StatusUnconfigured means no component has any resolvable rubric bound.
	StatusUnconfigured CompositionStatus = "unconfigured"
	// StatusIncomplete means rubrics are bound but at least one evaluation is missing.
	StatusIncomplete CompositionStatus = "incomplete"
	// StatusReady means every component value is determinable.
	StatusReady CompositionStatus = "ready"
)

// GradeBreakdown is the full audit view of one cell's computation.
type GradeBreakdown struct {
	StudentID  string               `json:"student_id"`
	Slot       AssessmentSlot       `json:"slot"`
	Status     CompositionStatus    `json:"status"`
	Final      *float64             `json:"final,omitempty"`
	Components []ComponentBreakdown `json:"components"`
}

// CellMode governs how a grade cell produces and displays its value.
type CellMode string

const (
	CellModeLocked      CellMode = "locked"
	CellModeManual      CellMode = "manual"
	CellModeComposition CellMode = "composition"
)

// Valid reports whether the mode is known.
func (m CellMode) Valid() bool {
	switch m {
	case CellModeLocked, CellModeManual, CellModeComposition:
		return true
	}
	return false
}

// CellState is the transient, UI-facing resolution of one (student, slot)
// cell. It is derived on demand and never persisted independently.
type CellState struct {
	StudentID  string                 `json:"student_id"`
	Slot       AssessmentSlot         `json:"slot"`
	Mode       CellMode               `json:"mode"`
	Status     CompositionStatus      `json:"status,omitempty"`
	Value      *float64               `json:"value,omitempty"`
	Components []CompositionComponent `json:"components,omitempty"`
	GradeID    string                 `json:"grade_id,omitempty"`
}
