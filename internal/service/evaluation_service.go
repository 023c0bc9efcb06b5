package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
)

type evaluationRepository interface {
	FetchByStudent(ctx context.Context, scope models.EvaluationScope, studentID string) (map[string]models.RubricEvaluation, error)
	FetchByScope(ctx context.Context, scope models.EvaluationScope) (map[string]map[string]models.RubricEvaluation, error)
	Upsert(ctx context.Context, evaluation *models.RubricEvaluation) error
}

// PendingEvaluations stages level selections in memory until an explicit
// flush, keyed by the composite (student, rubric, component) cell key.
type PendingEvaluations map[string]models.PendingLevel

// NewPendingEvaluations returns an empty staging map.
func NewPendingEvaluations() PendingEvaluations {
	return make(PendingEvaluations)
}

// Toggle stages the selection, replacing a different staged level for the
// same cell. Reselecting the already-staged level clears the entry, so
// toggling twice is an undo. Returns whether the cell is staged afterwards.
func (p PendingEvaluations) Toggle(entry models.PendingLevel) bool {
	key := entry.Key()
	if existing, ok := p[key]; ok && existing.Level == entry.Level {
		delete(p, key)
		return false
	}
	p[key] = entry
	return true
}

// Entries returns the staged selections in deterministic key order.
func (p PendingEvaluations) Entries() []models.PendingLevel {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	entries := make([]models.PendingLevel, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, p[key])
	}
	return entries
}

// PendingLevelRequest is one staged selection within a flush payload.
type PendingLevelRequest struct {
	StudentID   string             `json:"student_id" validate:"required"`
	RubricID    string             `json:"rubric_id" validate:"required"`
	ComponentID string             `json:"component_id" validate:"required"`
	Level       models.RubricLevel `json:"level" validate:"required,oneof=A B C D E"`
}

// FlushEvaluationsRequest persists staged selections for one assessment scope.
type FlushEvaluationsRequest struct {
	ClassID   string                `json:"class_id" validate:"required"`
	SubjectID string                `json:"subject_id" validate:"required"`
	Bimester  int                   `json:"bimester" validate:"required,min=1,max=4"`
	Slot      models.AssessmentSlot `json:"slot" validate:"required,oneof=AV1 AV2 REC"`
	Year      int                   `json:"year" validate:"required"`
	Entries   []PendingLevelRequest `json:"entries" validate:"required,dive"`
}

// Scope returns the assessment scope addressed by the request.
func (r FlushEvaluationsRequest) Scope() models.EvaluationScope {
	return models.EvaluationScope{ClassID: r.ClassID, SubjectID: r.SubjectID, Slot: r.Slot, Bimester: r.Bimester, Year: r.Year}
}

// EvaluationService persists rubric level assignments.
type EvaluationService struct {
	repo      evaluationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService constructs EvaluationService.
func NewEvaluationService(repo evaluationRepository, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{repo: repo, validator: validate, logger: logger}
}

// ListByStudent returns a student's evaluations for the scope keyed by cell.
func (s *EvaluationService) ListByStudent(ctx context.Context, scope models.EvaluationScope, studentID string) (map[string]models.RubricEvaluation, error) {
	evaluations, err := s.repo.FetchByStudent(ctx, scope, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluations")
	}
	return evaluations, nil
}

// FlushPending writes staged selections one evaluation at a time and reports
// per-entry outcomes. Writes are sequential and non-atomic: entries that
// succeed stay committed when later ones fail, and the caller retries only
// the failed subset. Duplicate entries for the same cell fold with toggle
// semantics before anything is written, so a select-then-reselect pair is a
// no-op on flush.
func (s *EvaluationService) FlushPending(ctx context.Context, evaluator models.Evaluator, req FlushEvaluationsRequest) (*models.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flush payload")
	}

	pending := NewPendingEvaluations()
	for _, entry := range req.Entries {
		pending.Toggle(models.PendingLevel{
			StudentID:   entry.StudentID,
			RubricID:    entry.RubricID,
			ComponentID: entry.ComponentID,
			Level:       entry.Level,
		})
	}

	scope := req.Scope()
	result := &models.BatchResult{Succeeded: []string{}}
	for _, entry := range pending.Entries() {
		evaluation := &models.RubricEvaluation{
			StudentID:   entry.StudentID,
			RubricID:    entry.RubricID,
			ComponentID: entry.ComponentID,
			ClassID:     scope.ClassID,
			SubjectID:   scope.SubjectID,
			Slot:        scope.Slot,
			Bimester:    scope.Bimester,
			Year:        scope.Year,
			Level:       entry.Level,
			EvaluatorID: evaluator.ID,
		}
		if err := s.repo.Upsert(ctx, evaluation); err != nil {
			result.Failed = append(result.Failed, models.BatchFailure{Key: entry.Key(), Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, entry.Key())
	}

	if !result.Ok() {
		s.logger.Warn("evaluation flush completed with failures",
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failed)),
			zap.String("evaluator_id", evaluator.ID),
		)
	}
	return result, nil
}
