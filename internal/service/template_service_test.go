package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
)

type mockTemplateRepo struct {
	stored  map[string]*models.CompositionTemplate
	upserts int
}

func templateScopeKey(scope models.TemplateScope) string {
	return scope.ClassID + scope.SubjectID + string(scope.Slot)
}

func (m *mockTemplateRepo) FindByScope(ctx context.Context, scope models.TemplateScope) (*models.CompositionTemplate, error) {
	if template, ok := m.stored[templateScopeKey(scope)]; ok {
		copied := *template
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTemplateRepo) Upsert(ctx context.Context, template *models.CompositionTemplate) error {
	if m.stored == nil {
		m.stored = make(map[string]*models.CompositionTemplate)
	}
	m.upserts++
	scope := models.TemplateScope{ClassID: template.ClassID, SubjectID: template.SubjectID, Bimester: template.Bimester, Slot: template.Slot, Year: template.Year}
	m.stored[templateScopeKey(scope)] = template
	return nil
}

func testEvaluator() models.Evaluator {
	return models.Evaluator{ID: "ev1", FullName: "Prof. Teste", Role: "teacher"}
}

func validSaveRequest() SaveTemplateRequest {
	return SaveTemplateRequest{
		ClassID:   "class1",
		SubjectID: "sub1",
		Bimester:  1,
		Slot:      models.SlotAV1,
		Year:      2026,
		Components: []ComponentRequest{
			{Name: "Prova", MaxValue: 5, RequiredRubricCount: 1, RubricIDs: []string{"r1"}},
			{Name: "Trabalho", MaxValue: 3, RequiredRubricCount: 1},
			{Name: "Participação", MaxValue: 2, RequiredRubricCount: 1},
		},
	}
}

func TestSaveTemplateSuccess(t *testing.T) {
	repo := &mockTemplateRepo{}
	svc := NewTemplateService(repo, nil, nil)

	template, err := svc.SaveTemplate(context.Background(), testEvaluator(), validSaveRequest())
	require.NoError(t, err)
	require.Len(t, template.Components, 3)
	assert.Equal(t, 1, repo.upserts)
}

func TestSaveTemplateSumViolationNoWrite(t *testing.T) {
	repo := &mockTemplateRepo{}
	svc := NewTemplateService(repo, nil, nil)

	req := validSaveRequest()
	req.Components[0].MaxValue = 4.5 // sums to 9.5

	_, err := svc.SaveTemplate(context.Background(), testEvaluator(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, 0, repo.upserts)
}

func TestSaveTemplateSumViolationKeepsStored(t *testing.T) {
	repo := &mockTemplateRepo{}
	svc := NewTemplateService(repo, nil, nil)

	saved, err := svc.SaveTemplate(context.Background(), testEvaluator(), validSaveRequest())
	require.NoError(t, err)

	bad := validSaveRequest()
	bad.Components[0].MaxValue = 4.5
	_, err = svc.SaveTemplate(context.Background(), testEvaluator(), bad)
	require.Error(t, err)

	current, err := svc.Get(context.Background(), saved.Scope())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, current.Components[0].MaxValue, 0.0001)
}

func TestSaveTemplateComponentBounds(t *testing.T) {
	repo := &mockTemplateRepo{}
	svc := NewTemplateService(repo, nil, nil)

	req := validSaveRequest()
	req.Components = []ComponentRequest{
		{Name: "Tudo", MaxValue: 10, RequiredRubricCount: 1},
	}
	_, err := svc.SaveTemplate(context.Background(), testEvaluator(), req)
	require.NoError(t, err)

	req.Components = []ComponentRequest{
		{Name: "Mínimo", MaxValue: 0.3, RequiredRubricCount: 1},
		{Name: "Resto", MaxValue: 9.7, RequiredRubricCount: 1},
	}
	_, err = svc.SaveTemplate(context.Background(), testEvaluator(), req)
	require.Error(t, err)
}

func TestSaveTemplateEmptyComponents(t *testing.T) {
	svc := NewTemplateService(&mockTemplateRepo{}, nil, nil)
	req := validSaveRequest()
	req.Components = nil
	_, err := svc.SaveTemplate(context.Background(), testEvaluator(), req)
	require.Error(t, err)
}

func toggleRequest(componentID, rubricID string) ToggleRubricRequest {
	return ToggleRubricRequest{
		ClassID:     "class1",
		SubjectID:   "sub1",
		Bimester:    1,
		Slot:        models.SlotAV1,
		Year:        2026,
		ComponentID: componentID,
		RubricID:    rubricID,
	}
}

func storedTemplate() *models.CompositionTemplate {
	return &models.CompositionTemplate{
		ID:        "tpl1",
		ClassID:   "class1",
		SubjectID: "sub1",
		Bimester:  1,
		Slot:      models.SlotAV1,
		Year:      2026,
		Components: []models.CompositionComponent{
			{ID: "c1", Name: "Prova", MaxValue: 5, RequiredRubricCount: 2, RubricIDs: pq.StringArray{"r1"}},
			{ID: "c2", Name: "Trabalho", MaxValue: 5, RequiredRubricCount: 1, RubricIDs: pq.StringArray{"r2"}},
		},
	}
}

func TestToggleRubricAdds(t *testing.T) {
	template := storedTemplate()
	repo := &mockTemplateRepo{stored: map[string]*models.CompositionTemplate{
		templateScopeKey(template.Scope()): template,
	}}
	svc := NewTemplateService(repo, nil, nil)

	updated, err := svc.ToggleRubricForComponent(context.Background(), testEvaluator(), toggleRequest("c1", "r9"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r9"}, []string(updated.Components[0].RubricIDs))
}

func TestToggleRubricRemoves(t *testing.T) {
	template := storedTemplate()
	repo := &mockTemplateRepo{stored: map[string]*models.CompositionTemplate{
		templateScopeKey(template.Scope()): template,
	}}
	svc := NewTemplateService(repo, nil, nil)

	updated, err := svc.ToggleRubricForComponent(context.Background(), testEvaluator(), toggleRequest("c1", "r1"))
	require.NoError(t, err)
	assert.Empty(t, updated.Components[0].RubricIDs)
}

func TestToggleRubricRefusesPastRequiredCount(t *testing.T) {
	template := storedTemplate()
	repo := &mockTemplateRepo{stored: map[string]*models.CompositionTemplate{
		templateScopeKey(template.Scope()): template,
	}}
	svc := NewTemplateService(repo, nil, nil)

	// c2 requires one rubric and already holds r2.
	_, err := svc.ToggleRubricForComponent(context.Background(), testEvaluator(), toggleRequest("c2", "r9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestToggleRubricUnknownComponent(t *testing.T) {
	template := storedTemplate()
	repo := &mockTemplateRepo{stored: map[string]*models.CompositionTemplate{
		templateScopeKey(template.Scope()): template,
	}}
	svc := NewTemplateService(repo, nil, nil)

	_, err := svc.ToggleRubricForComponent(context.Background(), testEvaluator(), toggleRequest("missing", "r1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetTemplateNotFound(t *testing.T) {
	svc := NewTemplateService(&mockTemplateRepo{}, nil, nil)
	_, err := svc.Get(context.Background(), models.TemplateScope{ClassID: "x", SubjectID: "y", Bimester: 1, Slot: models.SlotAV1, Year: 2026})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
