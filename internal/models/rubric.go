package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RubricLevel is one of the five discrete performance levels, best to worst.
type RubricLevel string

const (
	LevelA RubricLevel = "A"
	LevelB RubricLevel = "B"
	LevelC RubricLevel = "C"
	LevelD RubricLevel = "D"
	LevelE RubricLevel = "E"
)

// RubricLevels lists the levels in rank order, best first.
var RubricLevels = []RubricLevel{LevelA, LevelB, LevelC, LevelD, LevelE}

// levelFractions maps each level to the share of a component's per-rubric
// maximum it earns. Fixed 20% steps, process-wide constant.
var levelFractions = map[RubricLevel]float64{
	LevelA: 1.0,
	LevelB: 0.8,
	LevelC: 0.6,
	LevelD: 0.4,
	LevelE: 0.2,
}

// Fraction returns the fraction of the per-rubric maximum the level earns.
func (l RubricLevel) Fraction() float64 {
	return levelFractions[l]
}

// Valid reports whether the level is one of the five known values.
func (l RubricLevel) Valid() bool {
	_, ok := levelFractions[l]
	return ok
}

// RubricScope controls who may edit a rubric.
type RubricScope string

const (
	// RubricScopeShared rubrics are editable by any evaluator.
	RubricScopeShared RubricScope = "shared"
	// RubricScopeIndividual rubrics are editable only by their owner.
	RubricScopeIndividual RubricScope = "individual"
)

// RubricLevelDescriptor pairs a performance level with its textual descriptor.
type RubricLevelDescriptor struct {
	Level       RubricLevel `json:"level"`
	Description string      `json:"description"`
}

// LevelDescriptorList stores level descriptors as a jsonb column.
type LevelDescriptorList []RubricLevelDescriptor

// Value implements driver.Valuer.
func (l LevelDescriptorList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *LevelDescriptorList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported level descriptor source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// Rubric is a named evaluation criterion with fixed performance levels.
type Rubric struct {
	ID          string              `db:"id" json:"id"`
	Name        string              `db:"name" json:"name"`
	Description *string             `db:"description" json:"description,omitempty"`
	Levels      LevelDescriptorList `db:"levels" json:"levels"`
	Active      bool                `db:"active" json:"active"`
	Position    int                 `db:"position" json:"position"`
	Scope       RubricScope         `db:"scope" json:"scope"`
	OwnerID     *string             `db:"owner_id" json:"owner_id,omitempty"`
	OwnerName   *string             `db:"owner_name" json:"owner_name,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// EditableBy reports whether the given evaluator may mutate the rubric.
func (r *Rubric) EditableBy(evaluatorID string) bool {
	if r.Scope == RubricScopeShared {
		return true
	}
	return r.OwnerID != nil && *r.OwnerID == evaluatorID
}

// RubricFilter narrows catalog listings.
type RubricFilter struct {
	Scope   RubricScope
	OwnerID string
	Active  *bool
}

// RubricRef is the result of joining a rubric id to the catalog. Templates and
// evaluations reference rubrics by id without referential integrity, so a
// reference may dangle after deletion; callers must handle that case
// explicitly instead of treating it as configured.
type RubricRef struct {
	RubricID string  `json:"rubric_id"`
	Rubric   *Rubric `json:"rubric,omitempty"`
	Dangling bool    `json:"dangling"`
}
