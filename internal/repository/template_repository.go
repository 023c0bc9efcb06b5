package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolalink/escola-api/internal/models"
)

// TemplateRepository manages composition template persistence.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new repository instance.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindByScope retrieves the template for a (class, subject, bimester, slot, year) key.
func (r *TemplateRepository) FindByScope(ctx context.Context, scope models.TemplateScope) (*models.CompositionTemplate, error) {
	const query = `SELECT id, class_id, subject_id, bimester, slot, year, created_at, updated_at
        FROM composition_templates
        WHERE class_id = $1 AND subject_id = $2 AND bimester = $3 AND slot = $4 AND year = $5`
	var template models.CompositionTemplate
	if err := r.db.GetContext(ctx, &template, query, scope.ClassID, scope.SubjectID, scope.Bimester, scope.Slot, scope.Year); err != nil {
		return nil, err
	}
	components, err := r.loadComponents(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	template.Components = components
	return &template, nil
}

// Upsert stores the template for its scope, replacing the whole component
// list. One template object per key, no versioning or history.
func (r *TemplateRepository) Upsert(ctx context.Context, template *models.CompositionTemplate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.upsertTx(ctx, tx, template); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit composition template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) upsertTx(ctx context.Context, tx *sqlx.Tx, template *models.CompositionTemplate) error {
	const findQuery = `SELECT id FROM composition_templates
        WHERE class_id = $1 AND subject_id = $2 AND bimester = $3 AND slot = $4 AND year = $5`
	var existingID string
	err := tx.GetContext(ctx, &existingID, findQuery, template.ClassID, template.SubjectID, template.Bimester, template.Slot, template.Year)
	now := time.Now().UTC()
	switch {
	case err == nil:
		template.ID = existingID
		template.UpdatedAt = now
		const updateQuery = `UPDATE composition_templates SET updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, updateQuery, template); err != nil {
			return fmt.Errorf("update composition template: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		if template.ID == "" {
			template.ID = uuid.NewString()
		}
		template.CreatedAt = now
		template.UpdatedAt = now
		const insertQuery = `INSERT INTO composition_templates (id, class_id, subject_id, bimester, slot, year, created_at, updated_at)
            VALUES (:id, :class_id, :subject_id, :bimester, :slot, :year, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, template); err != nil {
			return fmt.Errorf("insert composition template: %w", err)
		}
	default:
		return fmt.Errorf("find composition template: %w", err)
	}
	return r.replaceComponentsTx(ctx, tx, template.ID, template.Components)
}

// replaceComponentsTx rewrites template components in a transaction.
func (r *TemplateRepository) replaceComponentsTx(ctx context.Context, tx *sqlx.Tx, templateID string, components []models.CompositionComponent) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM composition_components WHERE template_id = $1", templateID); err != nil {
		return fmt.Errorf("clear composition components: %w", err)
	}
	if len(components) == 0 {
		return nil
	}
	const insertComponent = `INSERT INTO composition_components (id, template_id, name, max_value, required_rubric_count, rubric_ids, position)
        VALUES (:id, :template_id, :name, :max_value, :required_rubric_count, :rubric_ids, :position)`
	for i := range components {
		if components[i].ID == "" {
			components[i].ID = uuid.NewString()
		}
		components[i].TemplateID = templateID
		components[i].Position = i
		if _, err := tx.NamedExecContext(ctx, insertComponent, components[i]); err != nil {
			return fmt.Errorf("insert composition component: %w", err)
		}
	}
	return nil
}

func (r *TemplateRepository) loadComponents(ctx context.Context, templateID string) ([]models.CompositionComponent, error) {
	const query = `SELECT id, template_id, name, max_value, required_rubric_count, rubric_ids, position
        FROM composition_components WHERE template_id = $1 ORDER BY position`
	var components []models.CompositionComponent
	if err := r.db.SelectContext(ctx, &components, query, templateID); err != nil {
		return nil, fmt.Errorf("load composition components: %w", err)
	}
	return components, nil
}
