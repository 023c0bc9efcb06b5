package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/escola-api/internal/models"
)

func templateTestScope() models.TemplateScope {
	return models.TemplateScope{ClassID: "class1", SubjectID: "sub1", Bimester: 1, Slot: models.SlotAV1, Year: 2026}
}

func TestTemplateRepositoryFindByScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	templateRows := sqlmock.NewRows([]string{"id", "class_id", "subject_id", "bimester", "slot", "year", "created_at", "updated_at"}).
		AddRow("tpl1", "class1", "sub1", 1, "AV1", 2026, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE class_id = $1 AND subject_id = $2 AND bimester = $3 AND slot = $4 AND year = $5")).
		WithArgs("class1", "sub1", 1, models.SlotAV1, 2026).
		WillReturnRows(templateRows)

	componentRows := sqlmock.NewRows([]string{"id", "template_id", "name", "max_value", "required_rubric_count", "rubric_ids", "position"}).
		AddRow("c1", "tpl1", "Prova", 5.0, 2, "{r1,r2}", 0).
		AddRow("c2", "tpl1", "Trabalho", 5.0, 1, "{r3}", 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM composition_components WHERE template_id = $1 ORDER BY position")).
		WithArgs("tpl1").
		WillReturnRows(componentRows)

	template, err := repo.FindByScope(context.Background(), templateTestScope())
	require.NoError(t, err)
	require.Len(t, template.Components, 2)
	assert.Equal(t, "Prova", template.Components[0].Name)
	assert.Equal(t, []string{"r1", "r2"}, []string(template.Components[0].RubricIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryFindByScopeMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery("FROM composition_templates").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByScope(context.Background(), templateTestScope())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTemplateRepositoryUpsertInsertsNew(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM composition_templates")).
		WithArgs("class1", "sub1", 1, models.SlotAV1, 2026).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO composition_templates").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM composition_components WHERE template_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO composition_components").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO composition_components").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	template := &models.CompositionTemplate{
		ClassID:   "class1",
		SubjectID: "sub1",
		Bimester:  1,
		Slot:      models.SlotAV1,
		Year:      2026,
		Components: []models.CompositionComponent{
			{Name: "Prova", MaxValue: 5, RequiredRubricCount: 1, RubricIDs: pq.StringArray{"r1"}},
			{Name: "Trabalho", MaxValue: 5, RequiredRubricCount: 1},
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), template))
	assert.NotEmpty(t, template.ID)
	assert.Equal(t, 0, template.Components[0].Position)
	assert.Equal(t, 1, template.Components[1].Position)
	assert.Equal(t, template.ID, template.Components[0].TemplateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryUpsertReplacesComponents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM composition_templates")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tpl1"))
	mock.ExpectExec("UPDATE composition_templates SET updated_at").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM composition_components WHERE template_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO composition_components").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	template := &models.CompositionTemplate{
		ClassID:   "class1",
		SubjectID: "sub1",
		Bimester:  1,
		Slot:      models.SlotAV1,
		Year:      2026,
		Components: []models.CompositionComponent{
			{Name: "Única", MaxValue: 10, RequiredRubricCount: 1},
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), template))
	assert.Equal(t, "tpl1", template.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM composition_templates")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tpl1"))
	mock.ExpectExec("UPDATE composition_templates SET updated_at").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM composition_components WHERE template_id = $1")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	template := &models.CompositionTemplate{ClassID: "class1", SubjectID: "sub1", Bimester: 1, Slot: models.SlotAV1, Year: 2026}
	require.Error(t, repo.Upsert(context.Background(), template))
	assert.NoError(t, mock.ExpectationsWereMet())
}
