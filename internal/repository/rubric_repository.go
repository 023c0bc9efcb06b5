package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolalink/escola-api/internal/models"
)

// RubricRepository manages rubric catalog persistence.
type RubricRepository struct {
	db *sqlx.DB
}

// NewRubricRepository creates a new repository instance.
func NewRubricRepository(db *sqlx.DB) *RubricRepository {
	return &RubricRepository{db: db}
}

const rubricColumns = "id, name, description, levels, active, position, scope, owner_id, owner_name, created_at, updated_at"

// List returns rubrics matching the provided filters, shared first then by position.
func (r *RubricRepository) List(ctx context.Context, filter models.RubricFilter) ([]models.Rubric, error) {
	query := "SELECT " + rubricColumns + " FROM rubrics WHERE 1=1"
	args := []interface{}{}
	if filter.Scope != "" {
		query += fmt.Sprintf(" AND scope = $%d", len(args)+1)
		args = append(args, filter.Scope)
	}
	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND (scope = 'shared' OR owner_id = $%d)", len(args)+1)
		args = append(args, filter.OwnerID)
	}
	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	query += " ORDER BY scope, position, name"

	var rubrics []models.Rubric
	if err := r.db.SelectContext(ctx, &rubrics, query, args...); err != nil {
		return nil, fmt.Errorf("list rubrics: %w", err)
	}
	return rubrics, nil
}

// FindByID returns a rubric by ID.
func (r *RubricRepository) FindByID(ctx context.Context, id string) (*models.Rubric, error) {
	query := "SELECT " + rubricColumns + " FROM rubrics WHERE id = $1"
	var rubric models.Rubric
	if err := r.db.GetContext(ctx, &rubric, query, id); err != nil {
		return nil, err
	}
	return &rubric, nil
}

// FindByIDs returns the catalog subset for the requested ids, keyed by id.
// Missing ids are simply absent from the result; the caller decides how to
// treat the dangling reference.
func (r *RubricRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Rubric, error) {
	result := make(map[string]models.Rubric, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf("SELECT "+rubricColumns+" FROM rubrics WHERE id IN (%s)", strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch rubrics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rubric models.Rubric
		if err := rows.StructScan(&rubric); err != nil {
			return nil, fmt.Errorf("scan rubric: %w", err)
		}
		result[rubric.ID] = rubric
	}
	return result, nil
}

// Create inserts a new rubric.
func (r *RubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	if rubric.ID == "" {
		rubric.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rubric.CreatedAt.IsZero() {
		rubric.CreatedAt = now
	}
	rubric.UpdatedAt = now
	const query = `INSERT INTO rubrics (id, name, description, levels, active, position, scope, owner_id, owner_name, created_at, updated_at)
        VALUES (:id, :name, :description, :levels, :active, :position, :scope, :owner_id, :owner_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rubric); err != nil {
		return fmt.Errorf("insert rubric: %w", err)
	}
	return nil
}

// Update replaces a rubric's mutable fields.
func (r *RubricRepository) Update(ctx context.Context, rubric *models.Rubric) error {
	rubric.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rubrics SET name = :name, description = :description, levels = :levels,
        active = :active, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rubric); err != nil {
		return fmt.Errorf("update rubric: %w", err)
	}
	return nil
}

// SetActive toggles a rubric's active flag. References from templates and
// evaluations stay in place and dangle once the rubric is deactivated.
func (r *RubricRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE rubrics SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set rubric active: %w", err)
	}
	return nil
}
