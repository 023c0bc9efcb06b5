package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escolalink/escola-api/internal/service"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
	"github.com/escolalink/escola-api/pkg/response"
)

// GradeHandler exposes grade cell and grade sheet endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Cell godoc
// @Summary Resolve the display state of one grade cell
// @Tags Grades
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string true "Subject ID"
// @Param bimester query int true "Bimester (1-4)"
// @Param slot query string true "Assessment slot (AV1, AV2, REC)"
// @Param year query int true "School year"
// @Param student_id query string true "Student ID"
// @Param mode query string false "Cell mode override (locked, manual, composition)"
// @Success 200 {object} response.Envelope
// @Router /grades/cell [get]
func (h *GradeHandler) Cell(c *gin.Context) {
	var query service.CellQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	state, err := h.grades.ResolveCellState(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Breakdown godoc
// @Summary Explain how one cell's grade is composed
// @Tags Grades
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string true "Subject ID"
// @Param bimester query int true "Bimester (1-4)"
// @Param slot query string true "Assessment slot (AV1, AV2, REC)"
// @Param year query int true "School year"
// @Param student_id query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grades/breakdown [get]
func (h *GradeHandler) Breakdown(c *gin.Context) {
	var query service.CellQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	breakdown, err := h.grades.Breakdown(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, breakdown, nil)
}

// Save godoc
// @Summary Save one cell's final grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.SaveGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Save(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.grades.SaveGrade(c.Request.Context(), evaluator, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkSave godoc
// @Summary Save every dirty cell of a class grid
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.BulkSaveRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) BulkSave(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BulkSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.grades.BulkSaveClassGrades(c.Request.Context(), evaluator, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if !result.Ok() {
		status = http.StatusMultiStatus
	}
	response.JSON(c, status, result, nil)
}

// Sheet godoc
// @Summary Assemble the resolved grade sheet of a class
// @Tags Grades
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string true "Subject ID"
// @Param bimester query int true "Bimester (1-4)"
// @Param year query int true "School year"
// @Success 200 {object} response.Envelope
// @Router /grades/sheet [get]
func (h *GradeHandler) Sheet(c *gin.Context) {
	var query service.SheetQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	sheet, err := h.grades.ClassGradeSheet(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// ExportSheet godoc
// @Summary Export the class grade sheet as CSV or PDF
// @Tags Grades
// @Produce octet-stream
// @Param class_id query string true "Class ID"
// @Param subject_id query string true "Subject ID"
// @Param bimester query int true "Bimester (1-4)"
// @Param year query int true "School year"
// @Param format query string false "Export format (csv or pdf, default csv)"
// @Success 200 {file} binary
// @Router /grades/sheet/export [get]
func (h *GradeHandler) ExportSheet(c *gin.Context) {
	var query service.SheetQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	payload, filename, err := h.grades.ExportGradeSheet(c.Request.Context(), query, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if c.Query("format") == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
