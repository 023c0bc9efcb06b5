package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/escola-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func rubricRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "levels", "active", "position", "scope", "owner_id", "owner_name", "created_at", "updated_at"})
}

func TestRubricRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	rows := rubricRows().
		AddRow("r1", "Argumentação", nil, []byte(`[]`), true, 0, "shared", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, levels, active, position, scope, owner_id, owner_name, created_at, updated_at FROM rubrics WHERE 1=1 ORDER BY scope, position, name")).
		WillReturnRows(rows)

	rubrics, err := repo.List(context.Background(), models.RubricFilter{})
	require.NoError(t, err)
	require.Len(t, rubrics, 1)
	assert.Equal(t, "r1", rubrics[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepositoryListOwnerIncludesShared(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND (scope = 'shared' OR owner_id = $1)")).
		WithArgs("ev1").
		WillReturnRows(rubricRows())

	_, err := repo.List(context.Background(), models.RubricFilter{OwnerID: "ev1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepositoryFindByIDsSkipsMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	rows := rubricRows().
		AddRow("r1", "Ativa", nil, []byte(`[]`), true, 0, "shared", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM rubrics WHERE id IN ($1,$2)")).
		WithArgs("r1", "r-gone").
		WillReturnRows(rows)

	catalog, err := repo.FindByIDs(context.Background(), []string{"r1", "r-gone"})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	_, ok := catalog["r-gone"]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepositoryFindByIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	catalog, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestRubricRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	mock.ExpectExec("INSERT INTO rubrics").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rubric := &models.Rubric{Name: "Nova", Active: true, Scope: models.RubricScopeShared}
	require.NoError(t, repo.Create(context.Background(), rubric))
	assert.NotEmpty(t, rubric.ID)
	assert.False(t, rubric.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRubricRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rubrics SET active = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("r1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SetActive(context.Background(), "r1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
