package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
)

type mockRubricRepo struct {
	rubrics map[string]*models.Rubric
	listed  int
}

func (m *mockRubricRepo) List(ctx context.Context, filter models.RubricFilter) ([]models.Rubric, error) {
	m.listed++
	var result []models.Rubric
	for _, rubric := range m.rubrics {
		if filter.Scope != "" && rubric.Scope != filter.Scope {
			continue
		}
		result = append(result, *rubric)
	}
	return result, nil
}

func (m *mockRubricRepo) FindByID(ctx context.Context, id string) (*models.Rubric, error) {
	if rubric, ok := m.rubrics[id]; ok {
		copied := *rubric
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRubricRepo) FindByIDs(ctx context.Context, ids []string) (map[string]models.Rubric, error) {
	result := make(map[string]models.Rubric)
	for _, id := range ids {
		if rubric, ok := m.rubrics[id]; ok {
			result[id] = *rubric
		}
	}
	return result, nil
}

func (m *mockRubricRepo) Create(ctx context.Context, rubric *models.Rubric) error {
	if m.rubrics == nil {
		m.rubrics = make(map[string]*models.Rubric)
	}
	if rubric.ID == "" {
		rubric.ID = "generated"
	}
	m.rubrics[rubric.ID] = rubric
	return nil
}

func (m *mockRubricRepo) Update(ctx context.Context, rubric *models.Rubric) error {
	m.rubrics[rubric.ID] = rubric
	return nil
}

func (m *mockRubricRepo) SetActive(ctx context.Context, id string, active bool) error {
	if rubric, ok := m.rubrics[id]; ok {
		rubric.Active = active
		return nil
	}
	return sql.ErrNoRows
}

type mockCatalogCache struct {
	sets       int
	deletes    int
	getPayload []models.Rubric
	hasPayload bool
}

func (m *mockCatalogCache) Get(ctx context.Context, key string, dest interface{}) error {
	if !m.hasPayload {
		return appErrors.ErrCacheMiss
	}
	rubrics, ok := dest.(*[]models.Rubric)
	if !ok {
		return errors.New("unexpected destination type")
	}
	*rubrics = m.getPayload
	return nil
}

func (m *mockCatalogCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *mockCatalogCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes++
	return nil
}

func allLevelRequests() []RubricLevelRequest {
	return []RubricLevelRequest{
		{Level: models.LevelA, Description: "Excelente"},
		{Level: models.LevelB, Description: "Bom"},
		{Level: models.LevelC, Description: "Regular"},
		{Level: models.LevelD, Description: "Insuficiente"},
		{Level: models.LevelE, Description: "Não demonstrado"},
	}
}

func newRubricServiceForTest(repo *mockRubricRepo, cache catalogCache, cacheEnabled bool) *RubricService {
	return NewRubricService(repo, cache, time.Minute, cacheEnabled, nil, nil, nil)
}

func TestCreateRubricSharedHasNoOwner(t *testing.T) {
	repo := &mockRubricRepo{}
	svc := newRubricServiceForTest(repo, nil, false)

	rubric, err := svc.Create(context.Background(), testEvaluator(), CreateRubricRequest{
		Name:   "Argumentação",
		Levels: allLevelRequests(),
		Scope:  models.RubricScopeShared,
	})
	require.NoError(t, err)
	assert.True(t, rubric.Active)
	assert.Nil(t, rubric.OwnerID)
	assert.Len(t, rubric.Levels, 5)
}

func TestCreateRubricIndividualStampsOwner(t *testing.T) {
	repo := &mockRubricRepo{}
	svc := newRubricServiceForTest(repo, nil, false)

	rubric, err := svc.Create(context.Background(), testEvaluator(), CreateRubricRequest{
		Name:   "Minha rubrica",
		Levels: allLevelRequests(),
		Scope:  models.RubricScopeIndividual,
	})
	require.NoError(t, err)
	require.NotNil(t, rubric.OwnerID)
	assert.Equal(t, "ev1", *rubric.OwnerID)
}

func TestCreateRubricRequiresAllLevels(t *testing.T) {
	svc := newRubricServiceForTest(&mockRubricRepo{}, nil, false)

	_, err := svc.Create(context.Background(), testEvaluator(), CreateRubricRequest{
		Name:   "Incompleta",
		Levels: allLevelRequests()[:3],
		Scope:  models.RubricScopeShared,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRubricRejectsDuplicateLevels(t *testing.T) {
	svc := newRubricServiceForTest(&mockRubricRepo{}, nil, false)

	levels := allLevelRequests()
	levels[1].Level = models.LevelA
	_, err := svc.Create(context.Background(), testEvaluator(), CreateRubricRequest{
		Name:   "Duplicada",
		Levels: levels,
		Scope:  models.RubricScopeShared,
	})
	require.Error(t, err)
}

func TestUpdateRubricForbiddenForNonOwner(t *testing.T) {
	owner := "someone-else"
	repo := &mockRubricRepo{rubrics: map[string]*models.Rubric{
		"r1": {ID: "r1", Name: "Alheia", Active: true, Scope: models.RubricScopeIndividual, OwnerID: &owner},
	}}
	svc := newRubricServiceForTest(repo, nil, false)

	_, err := svc.Update(context.Background(), testEvaluator(), "r1", UpdateRubricRequest{
		Name:   "Tentativa",
		Levels: allLevelRequests(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateRubricSharedEditableByAnyone(t *testing.T) {
	repo := &mockRubricRepo{rubrics: map[string]*models.Rubric{
		"r1": {ID: "r1", Name: "Compartilhada", Active: true, Scope: models.RubricScopeShared},
	}}
	svc := newRubricServiceForTest(repo, nil, false)

	rubric, err := svc.Update(context.Background(), testEvaluator(), "r1", UpdateRubricRequest{
		Name:   "Renomeada",
		Levels: allLevelRequests(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renomeada", rubric.Name)
}

func TestDeactivateRubricSoftDeletes(t *testing.T) {
	repo := &mockRubricRepo{rubrics: map[string]*models.Rubric{
		"r1": {ID: "r1", Name: "Antiga", Active: true, Scope: models.RubricScopeShared},
	}}
	svc := newRubricServiceForTest(repo, nil, false)

	require.NoError(t, svc.Deactivate(context.Background(), testEvaluator(), "r1"))
	assert.False(t, repo.rubrics["r1"].Active)
}

func TestResolveRubricsTagsDangling(t *testing.T) {
	repo := &mockRubricRepo{rubrics: map[string]*models.Rubric{
		"r1": {ID: "r1", Name: "Ativa", Active: true, Scope: models.RubricScopeShared},
		"r2": {ID: "r2", Name: "Inativa", Active: false, Scope: models.RubricScopeShared},
	}}
	svc := newRubricServiceForTest(repo, nil, false)

	refs, catalog, err := svc.ResolveRubrics(context.Background(), []string{"r1", "r2", "r-gone"})
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.False(t, refs[0].Dangling)
	require.NotNil(t, refs[0].Rubric)
	assert.True(t, refs[1].Dangling)
	assert.True(t, refs[2].Dangling)
	assert.Len(t, catalog, 2)
}

func TestListUsesCacheOnHit(t *testing.T) {
	repo := &mockRubricRepo{}
	cache := &mockCatalogCache{hasPayload: true, getPayload: []models.Rubric{{ID: "cached"}}}
	svc := newRubricServiceForTest(repo, cache, true)

	rubrics, err := svc.List(context.Background(), models.RubricFilter{})
	require.NoError(t, err)
	require.Len(t, rubrics, 1)
	assert.Equal(t, "cached", rubrics[0].ID)
	assert.Equal(t, 0, repo.listed)
}

func TestListFillsCacheOnMiss(t *testing.T) {
	repo := &mockRubricRepo{rubrics: map[string]*models.Rubric{
		"r1": {ID: "r1", Active: true, Scope: models.RubricScopeShared},
	}}
	cache := &mockCatalogCache{}
	svc := newRubricServiceForTest(repo, cache, true)

	rubrics, err := svc.List(context.Background(), models.RubricFilter{})
	require.NoError(t, err)
	assert.Len(t, rubrics, 1)
	assert.Equal(t, 1, repo.listed)
	assert.Equal(t, 1, cache.sets)
}

func TestListFilteredBypassesCache(t *testing.T) {
	repo := &mockRubricRepo{}
	cache := &mockCatalogCache{hasPayload: true, getPayload: []models.Rubric{{ID: "cached"}}}
	svc := newRubricServiceForTest(repo, cache, true)

	_, err := svc.List(context.Background(), models.RubricFilter{Scope: models.RubricScopeShared})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listed)
	assert.Equal(t, 0, cache.sets)
}

func TestMutationsInvalidateCatalogCache(t *testing.T) {
	repo := &mockRubricRepo{rubrics: map[string]*models.Rubric{
		"r1": {ID: "r1", Name: "Velha", Active: true, Scope: models.RubricScopeShared},
	}}
	cache := &mockCatalogCache{}
	svc := newRubricServiceForTest(repo, cache, true)

	_, err := svc.Create(context.Background(), testEvaluator(), CreateRubricRequest{
		Name:   "Nova",
		Levels: allLevelRequests(),
		Scope:  models.RubricScopeShared,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), testEvaluator(), "r1"))
	assert.Equal(t, 2, cache.deletes)
}

func TestGetRubricNotFound(t *testing.T) {
	svc := newRubricServiceForTest(&mockRubricRepo{}, nil, false)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
