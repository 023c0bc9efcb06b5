package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
)

type rubricRepository interface {
	List(ctx context.Context, filter models.RubricFilter) ([]models.Rubric, error)
	FindByID(ctx context.Context, id string) (*models.Rubric, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Rubric, error)
	Create(ctx context.Context, rubric *models.Rubric) error
	Update(ctx context.Context, rubric *models.Rubric) error
	SetActive(ctx context.Context, id string, active bool) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCacheKey = "rubrics:catalog"

// RubricLevelRequest pairs a level with its descriptor in rubric payloads.
type RubricLevelRequest struct {
	Level       models.RubricLevel `json:"level" validate:"required,oneof=A B C D E"`
	Description string             `json:"description"`
}

// CreateRubricRequest captures a new catalog entry.
type CreateRubricRequest struct {
	Name        string               `json:"name" validate:"required"`
	Description *string              `json:"description"`
	Levels      []RubricLevelRequest `json:"levels" validate:"required,dive"`
	Position    int                  `json:"position"`
	Scope       models.RubricScope   `json:"scope" validate:"required,oneof=shared individual"`
}

// UpdateRubricRequest modifies an existing catalog entry.
type UpdateRubricRequest struct {
	Name        string               `json:"name" validate:"required"`
	Description *string              `json:"description"`
	Levels      []RubricLevelRequest `json:"levels" validate:"required,dive"`
	Position    int                  `json:"position"`
}

// RubricService manages the rubric catalog.
type RubricService struct {
	repo         rubricRepository
	cache        catalogCache
	cacheTTL     time.Duration
	cacheEnabled bool
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRubricService constructs RubricService.
func NewRubricService(repo rubricRepository, cache catalogCache, cacheTTL time.Duration, cacheEnabled bool, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RubricService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RubricService{repo: repo, cache: cache, cacheTTL: cacheTTL, cacheEnabled: cacheEnabled, metrics: metrics, validator: validate, logger: logger}
}

// List returns catalog entries for the filter. The unfiltered catalog is
// served read-through from cache when caching is enabled.
func (s *RubricService) List(ctx context.Context, filter models.RubricFilter) ([]models.Rubric, error) {
	cacheable := s.cacheEnabled && s.cache != nil && filter == (models.RubricFilter{})
	if cacheable {
		start := time.Now()
		var cached []models.Rubric
		err := s.cache.Get(ctx, catalogCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("rubric catalog cache read failed", zap.Error(err))
		}
	}

	rubrics, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rubrics")
	}
	if cacheable {
		start := time.Now()
		if err := s.cache.Set(ctx, catalogCacheKey, rubrics, s.cacheTTL); err != nil {
			s.logger.Warn("rubric catalog cache write failed", zap.Error(err))
		} else {
			s.metrics.ObserveCacheWrite(time.Since(start))
		}
	}
	return rubrics, nil
}

// Get returns one rubric by id.
func (s *RubricService) Get(ctx context.Context, id string) (*models.Rubric, error) {
	rubric, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rubric not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric")
	}
	return rubric, nil
}

// Create inserts a catalog entry. Individual-scope rubrics are stamped with
// the creating evaluator as owner.
func (s *RubricService) Create(ctx context.Context, evaluator models.Evaluator, req CreateRubricRequest) (*models.Rubric, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rubric payload")
	}
	levels, err := normalizeLevels(req.Levels)
	if err != nil {
		return nil, err
	}
	rubric := &models.Rubric{
		Name:        req.Name,
		Description: req.Description,
		Levels:      levels,
		Active:      true,
		Position:    req.Position,
		Scope:       req.Scope,
	}
	if req.Scope == models.RubricScopeIndividual {
		ownerID := evaluator.ID
		ownerName := evaluator.FullName
		rubric.OwnerID = &ownerID
		rubric.OwnerName = &ownerName
	}
	if err := s.repo.Create(ctx, rubric); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rubric")
	}
	s.invalidateCatalog(ctx)
	return rubric, nil
}

// Update mutates a catalog entry, enforcing individual ownership.
func (s *RubricService) Update(ctx context.Context, evaluator models.Evaluator, id string, req UpdateRubricRequest) (*models.Rubric, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rubric payload")
	}
	rubric, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rubric.EditableBy(evaluator.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "rubric belongs to another evaluator")
	}
	levels, err := normalizeLevels(req.Levels)
	if err != nil {
		return nil, err
	}
	rubric.Name = req.Name
	rubric.Description = req.Description
	rubric.Levels = levels
	rubric.Position = req.Position
	if err := s.repo.Update(ctx, rubric); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rubric")
	}
	s.invalidateCatalog(ctx)
	return rubric, nil
}

// Deactivate soft-deletes a rubric. Template and evaluation references stay
// in place and resolve as dangling from then on.
func (s *RubricService) Deactivate(ctx context.Context, evaluator models.Evaluator, id string) error {
	rubric, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !rubric.EditableBy(evaluator.ID) {
		return appErrors.Clone(appErrors.ErrForbidden, "rubric belongs to another evaluator")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate rubric")
	}
	s.invalidateCatalog(ctx)
	return nil
}

// ResolveRubrics joins rubric ids to the catalog, tagging each reference as
// resolved or dangling so callers handle deletion-orphaned ids explicitly.
func (s *RubricService) ResolveRubrics(ctx context.Context, ids []string) ([]models.RubricRef, map[string]models.Rubric, error) {
	catalog, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve rubrics")
	}
	refs := make([]models.RubricRef, 0, len(ids))
	for _, id := range ids {
		if rubric, ok := catalog[id]; ok && rubric.Active {
			r := rubric
			refs = append(refs, models.RubricRef{RubricID: id, Rubric: &r})
			continue
		}
		refs = append(refs, models.RubricRef{RubricID: id, Dangling: true})
	}
	return refs, catalog, nil
}

// CatalogForComponents loads the catalog subset referenced by template components.
func (s *RubricService) CatalogForComponents(ctx context.Context, components []models.CompositionComponent) (map[string]models.Rubric, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, component := range components {
		for _, rubricID := range component.RubricIDs {
			if _, ok := seen[rubricID]; ok {
				continue
			}
			seen[rubricID] = struct{}{}
			ids = append(ids, rubricID)
		}
	}
	catalog, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric catalog")
	}
	return catalog, nil
}

func (s *RubricService) invalidateCatalog(ctx context.Context) {
	if !s.cacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "rubrics:*"); err != nil {
		s.logger.Warn("rubric catalog cache invalidation failed", zap.Error(err))
	}
}

// normalizeLevels requires exactly one descriptor per performance level,
// returned in rank order.
func normalizeLevels(levels []RubricLevelRequest) (models.LevelDescriptorList, error) {
	byLevel := make(map[models.RubricLevel]RubricLevelRequest, len(levels))
	for _, level := range levels {
		if _, ok := byLevel[level.Level]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate rubric level")
		}
		byLevel[level.Level] = level
	}
	if len(byLevel) != len(models.RubricLevels) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rubric requires descriptors for all five levels")
	}
	normalized := make(models.LevelDescriptorList, 0, len(models.RubricLevels))
	for _, level := range models.RubricLevels {
		normalized = append(normalized, models.RubricLevelDescriptor{Level: level, Description: byLevel[level].Description})
	}
	return normalized, nil
}
