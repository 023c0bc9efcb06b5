package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/escolalink/escola-api/internal/models"
	"github.com/escolalink/escola-api/internal/service"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
	"github.com/escolalink/escola-api/pkg/response"
)

// EvaluationHandler exposes rubric evaluation endpoints.
type EvaluationHandler struct {
	evaluations *service.EvaluationService
}

// NewEvaluationHandler constructs handler.
func NewEvaluationHandler(evaluations *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

// ListByStudent godoc
// @Summary List a student's persisted evaluations in a cell scope
// @Tags Evaluations
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string true "Subject ID"
// @Param bimester query int true "Bimester (1-4)"
// @Param slot query string true "Assessment slot (AV1, AV2, REC)"
// @Param year query int true "School year"
// @Param student_id query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *EvaluationHandler) ListByStudent(c *gin.Context) {
	bimester, _ := strconv.Atoi(c.Query("bimester"))
	year, _ := strconv.Atoi(c.Query("year"))
	scope := models.EvaluationScope{
		ClassID:   c.Query("class_id"),
		SubjectID: c.Query("subject_id"),
		Slot:      models.AssessmentSlot(c.Query("slot")),
		Bimester:  bimester,
		Year:      year,
	}
	evaluations, err := h.evaluations.ListByStudent(c.Request.Context(), scope, c.Query("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, nil)
}

// Flush godoc
// @Summary Persist a batch of staged level selections
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body service.FlushEvaluationsRequest true "Staged selections"
// @Success 200 {object} response.Envelope
// @Router /evaluations/flush [post]
func (h *EvaluationHandler) Flush(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FlushEvaluationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.evaluations.FlushPending(c.Request.Context(), evaluator, req)
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
