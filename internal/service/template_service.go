package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
)

type templateRepository interface {
	FindByScope(ctx context.Context, scope models.TemplateScope) (*models.CompositionTemplate, error)
	Upsert(ctx context.Context, template *models.CompositionTemplate) error
}

// ComponentRequest captures one component definition within a template payload.
type ComponentRequest struct {
	Name                string   `json:"name" validate:"required"`
	MaxValue            float64  `json:"max_value" validate:"required"`
	RequiredRubricCount int      `json:"required_rubric_count" validate:"required,min=1,max=3"`
	RubricIDs           []string `json:"rubric_ids"`
}

// SaveTemplateRequest upserts the template for one assessment scope.
type SaveTemplateRequest struct {
	ClassID    string                `json:"class_id" validate:"required"`
	SubjectID  string                `json:"subject_id" validate:"required"`
	Bimester   int                   `json:"bimester" validate:"required,min=1,max=4"`
	Slot       models.AssessmentSlot `json:"slot" validate:"required,oneof=AV1 AV2 REC"`
	Year       int                   `json:"year" validate:"required"`
	Components []ComponentRequest    `json:"components" validate:"required,dive"`
}

// Scope returns the template key addressed by the request.
func (r SaveTemplateRequest) Scope() models.TemplateScope {
	return models.TemplateScope{ClassID: r.ClassID, SubjectID: r.SubjectID, Bimester: r.Bimester, Slot: r.Slot, Year: r.Year}
}

// ToggleRubricRequest adds or removes a rubric on one template component.
type ToggleRubricRequest struct {
	ClassID     string                `json:"class_id" validate:"required"`
	SubjectID   string                `json:"subject_id" validate:"required"`
	Bimester    int                   `json:"bimester" validate:"required,min=1,max=4"`
	Slot        models.AssessmentSlot `json:"slot" validate:"required,oneof=AV1 AV2 REC"`
	Year        int                   `json:"year" validate:"required"`
	ComponentID string                `json:"component_id" validate:"required"`
	RubricID    string                `json:"rubric_id" validate:"required"`
}

// TemplateService manages composition template definitions.
type TemplateService struct {
	repo      templateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs TemplateService.
func NewTemplateService(repo templateRepository, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, validator: validate, logger: logger}
}

// Get returns the template for a scope.
func (s *TemplateService) Get(ctx context.Context, scope models.TemplateScope) (*models.CompositionTemplate, error) {
	template, err := s.repo.FindByScope(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "composition template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load composition template")
	}
	return template, nil
}

// SaveTemplate validates and upserts the template for its scope. Validation
// fails fast: no write is attempted when the component maxima violate the
// sum invariant or bounds.
func (s *TemplateService) SaveTemplate(ctx context.Context, evaluator models.Evaluator, req SaveTemplateRequest) (*models.CompositionTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	if err := validateComponents(req.Components); err != nil {
		return nil, err
	}

	components := make([]models.CompositionComponent, len(req.Components))
	for i, component := range req.Components {
		components[i] = models.CompositionComponent{
			Name:                component.Name,
			MaxValue:            component.MaxValue,
			RequiredRubricCount: component.RequiredRubricCount,
			RubricIDs:           pq.StringArray(append([]string{}, component.RubricIDs...)),
		}
	}
	template := &models.CompositionTemplate{
		ClassID:    req.ClassID,
		SubjectID:  req.SubjectID,
		Bimester:   req.Bimester,
		Slot:       req.Slot,
		Year:       req.Year,
		Components: components,
	}
	if err := s.repo.Upsert(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save composition template")
	}
	s.logger.Info("composition template saved",
		zap.String("class_id", req.ClassID),
		zap.String("subject_id", req.SubjectID),
		zap.Int("bimester", req.Bimester),
		zap.String("slot", string(req.Slot)),
		zap.String("evaluator_id", evaluator.ID),
	)
	return template, nil
}

// ToggleRubricForComponent adds or removes a rubric from a component's
// selection, refusing an add past the component's required count. The change
// persists immediately as an upsert of the owning template. This is the one
// read-modify-write path in the engine; concurrent edits of the same template
// can lose updates, accepted under the single-operator-per-class assumption.
func (s *TemplateService) ToggleRubricForComponent(ctx context.Context, evaluator models.Evaluator, req ToggleRubricRequest) (*models.CompositionTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid toggle payload")
	}
	scope := models.TemplateScope{ClassID: req.ClassID, SubjectID: req.SubjectID, Bimester: req.Bimester, Slot: req.Slot, Year: req.Year}
	template, err := s.repo.FindByScope(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "composition template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load composition template")
	}

	componentIdx := -1
	for i := range template.Components {
		if template.Components[i].ID == req.ComponentID {
			componentIdx = i
			break
		}
	}
	if componentIdx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "component not part of template")
	}

	component := &template.Components[componentIdx]
	removed := false
	for i, rubricID := range component.RubricIDs {
		if rubricID == req.RubricID {
			component.RubricIDs = append(component.RubricIDs[:i], component.RubricIDs[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		if len(component.RubricIDs) >= component.RequiredRubricCount {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component already has %d rubrics selected", component.RequiredRubricCount))
		}
		component.RubricIDs = append(component.RubricIDs, req.RubricID)
	}

	if err := s.repo.Upsert(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save composition template")
	}
	s.logger.Info("rubric toggled",
		zap.String("component_id", req.ComponentID),
		zap.String("rubric_id", req.RubricID),
		zap.Bool("removed", removed),
		zap.String("evaluator_id", evaluator.ID),
	)
	return template, nil
}

func validateComponents(components []ComponentRequest) error {
	if len(components) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "components required")
	}
	total := 0.0
	for _, component := range components {
		if component.MaxValue < models.ComponentMaxValueFloor || component.MaxValue > models.ComponentMaxValueCeiling {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component %q max value must be between %.1f and %.0f", component.Name, models.ComponentMaxValueFloor, models.ComponentMaxValueCeiling))
		}
		total += component.MaxValue
	}
	if total < models.GradeCeiling-0.001 || total > models.GradeCeiling+0.001 {
		return appErrors.Clone(appErrors.ErrValidation, "component max values must sum to 10")
	}
	return nil
}
