package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escolalink/escola-api/internal/models"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
	"github.com/escolalink/escola-api/pkg/export"
)

type gradeRecordRepository interface {
	FindByScope(ctx context.Context, scope models.GradeScope) (*models.GradeRecord, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRecord, error)
	Upsert(ctx context.Context, record *models.GradeRecord) error
}

type templateReader interface {
	FindByScope(ctx context.Context, scope models.TemplateScope) (*models.CompositionTemplate, error)
}

type evaluationReader interface {
	FetchByStudent(ctx context.Context, scope models.EvaluationScope, studentID string) (map[string]models.RubricEvaluation, error)
	FetchByScope(ctx context.Context, scope models.EvaluationScope) (map[string]map[string]models.RubricEvaluation, error)
}

type rubricCatalogReader interface {
	CatalogForComponents(ctx context.Context, components []models.CompositionComponent) (map[string]models.Rubric, error)
}

// CellQuery addresses one grade cell.
type CellQuery struct {
	ClassID   string                `form:"class_id" json:"class_id" validate:"required"`
	SubjectID string                `form:"subject_id" json:"subject_id" validate:"required"`
	Bimester  int                   `form:"bimester" json:"bimester" validate:"required,min=1,max=4"`
	Slot      models.AssessmentSlot `form:"slot" json:"slot" validate:"required,oneof=AV1 AV2 REC"`
	Year      int                   `form:"year" json:"year" validate:"required"`
	StudentID string                `form:"student_id" json:"student_id" validate:"required"`
	Mode      models.CellMode       `form:"mode" json:"mode"`
}

func (q CellQuery) templateScope() models.TemplateScope {
	return models.TemplateScope{ClassID: q.ClassID, SubjectID: q.SubjectID, Bimester: q.Bimester, Slot: q.Slot, Year: q.Year}
}

func (q CellQuery) evaluationScope() models.EvaluationScope {
	return models.EvaluationScope{ClassID: q.ClassID, SubjectID: q.SubjectID, Slot: q.Slot, Bimester: q.Bimester, Year: q.Year}
}

func (q CellQuery) gradeScope() models.GradeScope {
	return models.GradeScope{StudentID: q.StudentID, ClassID: q.ClassID, SubjectID: q.SubjectID, Bimester: q.Bimester, Type: q.Slot}
}

// SaveGradeRequest persists one cell's final grade.
type SaveGradeRequest struct {
	ClassID   string                `json:"class_id" validate:"required"`
	SubjectID string                `json:"subject_id" validate:"required"`
	Bimester  int                   `json:"bimester" validate:"required,min=1,max=4"`
	Slot      models.AssessmentSlot `json:"slot" validate:"required,oneof=AV1 AV2 REC"`
	Year      int                   `json:"year" validate:"required"`
	StudentID string                `json:"student_id" validate:"required"`
	Mode      models.CellMode       `json:"mode" validate:"required,oneof=manual composition"`
	Value     *float64              `json:"value"`
}

// BulkSaveItem is one cell within a bulk class save.
type BulkSaveItem struct {
	StudentID string                `json:"student_id" validate:"required"`
	Slot      models.AssessmentSlot `json:"slot" validate:"required,oneof=AV1 AV2 REC"`
	Mode      models.CellMode       `json:"mode" validate:"required,oneof=manual composition"`
	Value     *float64              `json:"value"`
}

// BulkSaveRequest persists every dirty cell of a class grid.
type BulkSaveRequest struct {
	ClassID   string         `json:"class_id" validate:"required"`
	SubjectID string         `json:"subject_id" validate:"required"`
	Bimester  int            `json:"bimester" validate:"required,min=1,max=4"`
	Year      int            `json:"year" validate:"required"`
	Items     []BulkSaveItem `json:"items" validate:"required,dive"`
}

// SheetQuery addresses a class grade sheet.
type SheetQuery struct {
	ClassID   string `form:"class_id" json:"class_id" validate:"required"`
	SubjectID string `form:"subject_id" json:"subject_id" validate:"required"`
	Bimester  int    `form:"bimester" json:"bimester" validate:"required,min=1,max=4"`
	Year      int    `form:"year" json:"year" validate:"required"`
}

// GradeService orchestrates cell resolution and final grade persistence.
type GradeService struct {
	records     gradeRecordRepository
	templates   templateReader
	evaluations evaluationReader
	rubrics     rubricCatalogReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(records gradeRecordRepository, templates templateReader, evaluations evaluationReader, rubrics rubricCatalogReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		records:     records,
		templates:   templates,
		evaluations: evaluations,
		rubrics:     rubrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// ResolveCellState decides what the grid must show for one cell. A
// never-touched cell defaults to composition mode; locked is a deliberate
// operator override with nothing derivable, and manual only surfaces the
// persisted value. Composition mode computes the sub-status and re-attaches
// prior values from the saved snapshot by component name.
func (s *GradeService) ResolveCellState(ctx context.Context, query CellQuery) (*models.CellState, error) {
	if query.Mode == "" {
		query.Mode = models.CellModeComposition
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cell query")
	}
	if !query.Mode.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown cell mode %q", query.Mode))
	}

	state := &models.CellState{StudentID: query.StudentID, Slot: query.Slot, Mode: query.Mode}
	if query.Mode == models.CellModeLocked {
		return state, nil
	}

	record, err := s.findRecord(ctx, query.gradeScope())
	if err != nil {
		return nil, err
	}
	if record != nil {
		state.GradeID = record.ID
	}

	if query.Mode == models.CellModeManual {
		if record != nil {
			value := record.Value
			state.Value = &value
		}
		return state, nil
	}

	template, err := s.findTemplate(ctx, query.templateScope())
	if err != nil {
		return nil, err
	}
	if template == nil {
		state.Status = models.StatusUnconfigured
		state.Components = []models.CompositionComponent{}
		return state, nil
	}

	breakdown, err := s.computeBreakdown(ctx, template, query.StudentID, query.evaluationScope())
	if err != nil {
		return nil, err
	}

	components := template.Components
	if record != nil && len(record.Snapshot) > 0 {
		components = RestoreSnapshotValues(template.Components, record.Snapshot)
	}
	values := make(map[string]*float64, len(breakdown.Components))
	for _, component := range breakdown.Components {
		values[component.ComponentID] = component.Value
	}
	for i := range components {
		if value, ok := values[components[i].ID]; ok && value != nil {
			v := *value
			components[i].Value = &v
		}
	}

	state.Status = breakdown.Status
	state.Value = breakdown.Final
	state.Components = components
	return state, nil
}

// Breakdown returns the audit view explaining one cell's computation.
func (s *GradeService) Breakdown(ctx context.Context, query CellQuery) (*models.GradeBreakdown, error) {
	query.Mode = models.CellModeComposition
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cell query")
	}
	template, err := s.findTemplate(ctx, query.templateScope())
	if err != nil {
		return nil, err
	}
	if template == nil {
		return &models.GradeBreakdown{
			StudentID:  query.StudentID,
			Slot:       query.Slot,
			Status:     models.StatusUnconfigured,
			Components: []models.ComponentBreakdown{},
		}, nil
	}
	breakdown, err := s.computeBreakdown(ctx, template, query.StudentID, query.evaluationScope())
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

// SaveGrade persists one cell's final grade. Manual saves take the typed
// value and clear any snapshot; composition saves are server-authoritative,
// recomputing the value and snapshot from current state and refusing cells
// that are not ready.
func (s *GradeService) SaveGrade(ctx context.Context, evaluator models.Evaluator, req SaveGradeRequest) (*models.GradeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	record := &models.GradeRecord{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		Bimester:  req.Bimester,
		Type:      req.Slot,
	}

	switch req.Mode {
	case models.CellModeManual:
		if req.Value == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "value required for manual grade")
		}
		if *req.Value < 0 || *req.Value > models.GradeCeiling {
			return nil, appErrors.Clone(appErrors.ErrValidation, "grade must be between 0 and 10")
		}
		record.Value = *req.Value
		record.Snapshot = nil
	case models.CellModeComposition:
		template, err := s.findTemplate(ctx, models.TemplateScope{ClassID: req.ClassID, SubjectID: req.SubjectID, Bimester: req.Bimester, Slot: req.Slot, Year: req.Year})
		if err != nil {
			return nil, err
		}
		if template == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no composition template configured for cell")
		}
		scope := models.EvaluationScope{ClassID: req.ClassID, SubjectID: req.SubjectID, Slot: req.Slot, Bimester: req.Bimester, Year: req.Year}
		breakdown, err := s.computeBreakdown(ctx, template, req.StudentID, scope)
		if err != nil {
			return nil, err
		}
		if breakdown.Status != models.StatusReady || breakdown.Final == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("composition is %s, grade not determinable", breakdown.Status))
		}
		record.Value = *breakdown.Final
		record.Snapshot = SnapshotComponents(template.Components, breakdown.Components)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported save mode %q", req.Mode))
	}

	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	s.logger.Info("grade saved",
		zap.String("student_id", req.StudentID),
		zap.String("slot", string(req.Slot)),
		zap.String("mode", string(req.Mode)),
		zap.Float64("value", record.Value),
		zap.String("evaluator_id", evaluator.ID),
	)
	return record, nil
}

// BulkSaveClassGrades saves every submitted cell sequentially, one write at a
// time, and reports per-cell outcomes. There is no atomic multi-write: cells
// saved before a failure stay committed and the caller retries the failed
// subset.
func (s *GradeService) BulkSaveClassGrades(ctx context.Context, evaluator models.Evaluator, req BulkSaveRequest) (*models.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	result := &models.BatchResult{Succeeded: []string{}}
	for _, item := range req.Items {
		key := strings.Join([]string{item.StudentID, string(item.Slot)}, "|")
		_, err := s.SaveGrade(ctx, evaluator, SaveGradeRequest{
			ClassID:   req.ClassID,
			SubjectID: req.SubjectID,
			Bimester:  req.Bimester,
			Slot:      item.Slot,
			Year:      req.Year,
			StudentID: item.StudentID,
			Mode:      item.Mode,
			Value:     item.Value,
		})
		if err != nil {
			result.Failed = append(result.Failed, models.BatchFailure{Key: key, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, key)
	}
	if !result.Ok() {
		s.logger.Warn("bulk grade save completed with failures",
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failed)),
			zap.String("evaluator_id", evaluator.ID),
		)
	}
	return result, nil
}

// ClassGradeSheet assembles the resolved cells of every student that has any
// persisted grade or evaluation in the class scope.
func (s *GradeService) ClassGradeSheet(ctx context.Context, query SheetQuery) (*models.ClassGradeSheet, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sheet query")
	}

	records, err := s.records.List(ctx, models.GradeFilter{ClassID: query.ClassID, SubjectID: query.SubjectID, Bimester: query.Bimester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	recordsByCell := make(map[string]models.GradeRecord, len(records))
	students := make(map[string]struct{})
	for _, record := range records {
		recordsByCell[strings.Join([]string{record.StudentID, string(record.Type)}, "|")] = record
		students[record.StudentID] = struct{}{}
	}

	slots := []models.AssessmentSlot{models.SlotAV1, models.SlotAV2, models.SlotREC}
	templates := make(map[models.AssessmentSlot]*models.CompositionTemplate, len(slots))
	catalogs := make(map[models.AssessmentSlot]map[string]models.Rubric, len(slots))
	evaluationsBySlot := make(map[models.AssessmentSlot]map[string]map[string]models.RubricEvaluation, len(slots))
	for _, slot := range slots {
		template, err := s.findTemplate(ctx, models.TemplateScope{ClassID: query.ClassID, SubjectID: query.SubjectID, Bimester: query.Bimester, Slot: slot, Year: query.Year})
		if err != nil {
			return nil, err
		}
		templates[slot] = template
		if template != nil {
			catalog, err := s.rubrics.CatalogForComponents(ctx, template.Components)
			if err != nil {
				return nil, err
			}
			catalogs[slot] = catalog
		}

		scope := models.EvaluationScope{ClassID: query.ClassID, SubjectID: query.SubjectID, Slot: slot, Bimester: query.Bimester, Year: query.Year}
		evaluations, err := s.evaluations.FetchByScope(ctx, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluations")
		}
		evaluationsBySlot[slot] = evaluations
		for studentID := range evaluations {
			students[studentID] = struct{}{}
		}
	}

	studentIDs := make([]string, 0, len(students))
	for studentID := range students {
		studentIDs = append(studentIDs, studentID)
	}
	sort.Strings(studentIDs)

	sheet := &models.ClassGradeSheet{ClassID: query.ClassID, SubjectID: query.SubjectID, Bimester: query.Bimester, Year: query.Year, Rows: []models.StudentCellRow{}}
	for _, studentID := range studentIDs {
		for _, slot := range slots {
			row := models.StudentCellRow{StudentID: studentID, Slot: slot, Mode: models.CellModeComposition}
			if record, ok := recordsByCell[strings.Join([]string{studentID, string(slot)}, "|")]; ok && len(record.Snapshot) == 0 {
				// A persisted grade without a snapshot was typed manually.
				row.Mode = models.CellModeManual
				value := record.Value
				row.Value = &value
				sheet.Rows = append(sheet.Rows, row)
				continue
			}
			template := templates[slot]
			if template == nil {
				row.Status = models.StatusUnconfigured
				sheet.Rows = append(sheet.Rows, row)
				continue
			}
			evaluations := evaluationsBySlot[slot][studentID]
			if evaluations == nil {
				evaluations = map[string]models.RubricEvaluation{}
			}
			breakdown, calcErr := GenerateBreakdown(template.Components, studentID, slot, evaluations, catalogs[slot])
			if calcErr != nil {
				s.logger.Error("composition template violates sum invariant",
					zap.String("template_id", template.ID),
					zap.String("slot", string(slot)),
					zap.Error(calcErr),
				)
			}
			row.Status = breakdown.Status
			row.Value = breakdown.Final
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet, nil
}

// ExportGradeSheet renders the class grade sheet as CSV or PDF.
func (s *GradeService) ExportGradeSheet(ctx context.Context, query SheetQuery, format string) ([]byte, string, error) {
	sheet, err := s.ClassGradeSheet(ctx, query)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{Headers: []string{"Student", "Slot", "Mode", "Status", "Value"}}
	for _, row := range sheet.Rows {
		value := ""
		if row.Value != nil {
			value = fmt.Sprintf("%.1f", *row.Value)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": row.StudentID,
			"Slot":    string(row.Slot),
			"Mode":    string(row.Mode),
			"Status":  string(row.Status),
			"Value":   value,
		})
	}

	title := fmt.Sprintf("Grade sheet %s / %s / bimester %d", sheet.ClassID, sheet.SubjectID, sheet.Bimester)
	switch format {
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "grade-sheet.pdf", nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "grade-sheet.csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *GradeService) findRecord(ctx context.Context, scope models.GradeScope) (*models.GradeRecord, error) {
	record, err := s.records.FindByScope(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}
	return record, nil
}

func (s *GradeService) findTemplate(ctx context.Context, scope models.TemplateScope) (*models.CompositionTemplate, error) {
	template, err := s.templates.FindByScope(ctx, scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load composition template")
	}
	return template, nil
}

// computeBreakdown loads the catalog and the student's evaluations, then runs
// the pure calculator. An invalid template is logged as a data-integrity
// error and the grade short-circuits to nil inside the breakdown.
func (s *GradeService) computeBreakdown(ctx context.Context, template *models.CompositionTemplate, studentID string, scope models.EvaluationScope) (*models.GradeBreakdown, error) {
	catalog, err := s.rubrics.CatalogForComponents(ctx, template.Components)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.evaluations.FetchByStudent(ctx, scope, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluations")
	}
	breakdown, calcErr := GenerateBreakdown(template.Components, studentID, scope.Slot, evaluations, catalog)
	if calcErr != nil {
		s.logger.Error("composition template violates sum invariant",
			zap.String("template_id", template.ID),
			zap.Error(calcErr),
		)
	}
	return &breakdown, nil
}
