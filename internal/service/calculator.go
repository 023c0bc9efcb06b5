package service

import (
	"math"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
)

// The calculator is a pure function layer: given a template's components, a
// student's evaluations keyed by (student, rubric, component) and the rubric
// catalog, it derives component values and the aggregate grade. Missing data
// is modeled as nil and propagated, never raised as an error.

// round2 rounds to two decimals, half away from zero. Component values keep
// two decimals while the aggregate keeps one; the asymmetry preserves legacy
// display behavior.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func floatPtr(v float64) *float64 {
	return &v
}

// templateSumValid checks the sum invariant with the same tolerance the save
// path enforces.
func templateSumValid(components []models.CompositionComponent) bool {
	total := 0.0
	for _, component := range components {
		total += component.MaxValue
	}
	return total > models.GradeCeiling-0.001 && total < models.GradeCeiling+0.001
}

// componentConfigured reports whether the component has at least one rubric
// reference that resolves in the catalog. A component whose references all
// dangle behaves as if it had none.
func componentConfigured(component models.CompositionComponent, rubrics map[string]models.Rubric) bool {
	for _, rubricID := range component.RubricIDs {
		if rubric, ok := rubrics[rubricID]; ok && rubric.Active {
			return true
		}
	}
	return false
}

// ComputeComponentValue derives one component's value and per-rubric
// breakdown for a student. The per-rubric share divides by the configured
// required count, not by how many rubrics are actually selected; selecting
// fewer rubrics than required caps the attainable value.
func ComputeComponentValue(component models.CompositionComponent, studentID string, evaluations map[string]models.RubricEvaluation, rubrics map[string]models.Rubric) models.ComponentBreakdown {
	breakdown := models.ComponentBreakdown{
		ComponentID:         component.ID,
		Name:                component.Name,
		MaxValue:            component.MaxValue,
		RequiredRubricCount: component.RequiredRubricCount,
		Rubrics:             []models.RubricContribution{},
	}
	if len(component.RubricIDs) == 0 {
		return breakdown
	}

	required := component.RequiredRubricCount
	if required < 1 {
		required = 1
	}
	perRubricMax := component.MaxValue / float64(required)

	sum := 0.0
	allEvaluated := true
	anyResolved := false
	for _, rubricID := range component.RubricIDs {
		contribution := models.RubricContribution{RubricID: rubricID}
		rubric, ok := rubrics[rubricID]
		if !ok || !rubric.Active {
			contribution.Dangling = true
			breakdown.Rubrics = append(breakdown.Rubrics, contribution)
			continue
		}
		anyResolved = true
		contribution.RubricName = rubric.Name

		evaluation, ok := evaluations[models.EvaluationKey(studentID, rubricID, component.ID)]
		if !ok {
			allEvaluated = false
			breakdown.Rubrics = append(breakdown.Rubrics, contribution)
			continue
		}
		level := evaluation.Level
		value := round2(perRubricMax * level.Fraction())
		contribution.Level = &level
		contribution.Value = floatPtr(value)
		sum += value
		breakdown.Rubrics = append(breakdown.Rubrics, contribution)
	}

	if anyResolved && allEvaluated {
		breakdown.Value = floatPtr(round2(sum))
	}
	return breakdown
}

// ComputeFinalGrade aggregates every component value into the bimester grade.
// It returns nil while any component value is undeterminable, and
// ErrInvalidTemplate when the component maxima do not sum to the grade
// ceiling; such a template should never have been persisted.
func ComputeFinalGrade(components []models.CompositionComponent, studentID string, evaluations map[string]models.RubricEvaluation, rubrics map[string]models.Rubric) (*float64, error) {
	if len(components) == 0 {
		return nil, nil
	}
	if !templateSumValid(components) {
		return nil, appErrors.ErrInvalidTemplate
	}
	sum := 0.0
	for _, component := range components {
		breakdown := ComputeComponentValue(component, studentID, evaluations, rubrics)
		if breakdown.Value == nil {
			return nil, nil
		}
		sum += *breakdown.Value
	}
	return floatPtr(round1(sum)), nil
}

// ResolveCompositionStatus derives the cell sub-status from per-component
// breakdowns. A template with no resolvable configuration anywhere, or with
// any component still lacking rubrics, is unconfigured; a fully configured
// template with missing evaluations is incomplete; a determinable grade is
// ready.
func ResolveCompositionStatus(components []models.CompositionComponent, rubrics map[string]models.Rubric, final *float64) models.CompositionStatus {
	if final != nil {
		return models.StatusReady
	}
	if len(components) == 0 {
		return models.StatusUnconfigured
	}
	for _, component := range components {
		if !componentConfigured(component, rubrics) {
			return models.StatusUnconfigured
		}
	}
	return models.StatusIncomplete
}

// GenerateBreakdown produces the full audit view of one cell's computation.
// It is derived purely from its inputs; an invalid template still yields the
// per-component breakdowns, with the error returned alongside so the caller
// can log the integrity violation while the grade short-circuits to nil.
func GenerateBreakdown(components []models.CompositionComponent, studentID string, slot models.AssessmentSlot, evaluations map[string]models.RubricEvaluation, rubrics map[string]models.Rubric) (models.GradeBreakdown, error) {
	breakdown := models.GradeBreakdown{
		StudentID:  studentID,
		Slot:       slot,
		Components: make([]models.ComponentBreakdown, 0, len(components)),
	}
	for _, component := range components {
		breakdown.Components = append(breakdown.Components, ComputeComponentValue(component, studentID, evaluations, rubrics))
	}

	final, err := ComputeFinalGrade(components, studentID, evaluations, rubrics)
	breakdown.Final = final
	breakdown.Status = ResolveCompositionStatus(components, rubrics, final)
	return breakdown, err
}
