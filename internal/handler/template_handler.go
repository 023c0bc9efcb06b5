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

// TemplateHandler exposes composition template endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler constructs handler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

func templateScopeFromQuery(c *gin.Context) models.TemplateScope {
	bimester, _ := strconv.Atoi(c.Query("bimester"))
	year, _ := strconv.Atoi(c.Query("year"))
	return models.TemplateScope{
		ClassID:   c.Query("class_id"),
		SubjectID: c.Query("subject_id"),
		Bimester:  bimester,
		Slot:      models.AssessmentSlot(c.Query("slot")),
		Year:      year,
	}
}

// Get godoc
// @Summary Get composition template for a cell scope
// @Tags Templates
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject_id query string true "Subject ID"
// @Param bimester query int true "Bimester (1-4)"
// @Param slot query string true "Assessment slot (AV1, AV2, REC)"
// @Param year query int true "School year"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	template, err := h.templates.Get(c.Request.Context(), templateScopeFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Save godoc
// @Summary Create or replace a composition template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body service.SaveTemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Router /templates [put]
func (h *TemplateHandler) Save(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.templates.SaveTemplate(c.Request.Context(), evaluator, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// ToggleRubric godoc
// @Summary Add or remove a rubric on a template component
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body service.ToggleRubricRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Router /templates/toggle-rubric [post]
func (h *TemplateHandler) ToggleRubric(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ToggleRubricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.templates.ToggleRubricForComponent(c.Request.Context(), evaluator, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}
