package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escolalink/escola-api/internal/models"
	"github.com/escolalink/escola-api/internal/service"
	appErrors "github.com/escolalink/escola-api/pkg/errors"
	"github.com/escolalink/escola-api/pkg/response"
)

// RubricHandler exposes rubric catalog endpoints.
type RubricHandler struct {
	rubrics *service.RubricService
}

// NewRubricHandler constructs handler.
func NewRubricHandler(rubrics *service.RubricService) *RubricHandler {
	return &RubricHandler{rubrics: rubrics}
}

// List godoc
// @Summary List rubrics
// @Tags Rubrics
// @Produce json
// @Param scope query string false "Filter by scope (shared or individual)"
// @Param mine query bool false "Include the caller's individual rubrics"
// @Success 200 {object} response.Envelope
// @Router /rubrics [get]
func (h *RubricHandler) List(c *gin.Context) {
	filter := models.RubricFilter{Scope: models.RubricScope(c.Query("scope"))}
	if c.Query("mine") == "true" {
		if evaluator, ok := evaluatorFromContext(c); ok {
			filter.OwnerID = evaluator.ID
		}
	}
	rubrics, err := h.rubrics.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rubrics, nil)
}

// Get godoc
// @Summary Get rubric by id
// @Tags Rubrics
// @Produce json
// @Param id path string true "Rubric ID"
// @Success 200 {object} response.Envelope
// @Router /rubrics/{id} [get]
func (h *RubricHandler) Get(c *gin.Context) {
	rubric, err := h.rubrics.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rubric, nil)
}

// Create godoc
// @Summary Create rubric
// @Tags Rubrics
// @Accept json
// @Produce json
// @Param payload body service.CreateRubricRequest true "Rubric payload"
// @Success 201 {object} response.Envelope
// @Router /rubrics [post]
func (h *RubricHandler) Create(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateRubricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rubric, err := h.rubrics.Create(c.Request.Context(), evaluator, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rubric)
}

// Update godoc
// @Summary Update rubric
// @Tags Rubrics
// @Accept json
// @Produce json
// @Param id path string true "Rubric ID"
// @Param payload body service.UpdateRubricRequest true "Rubric payload"
// @Success 200 {object} response.Envelope
// @Router /rubrics/{id} [put]
func (h *RubricHandler) Update(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateRubricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rubric, err := h.rubrics.Update(c.Request.Context(), evaluator, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rubric, nil)
}

// Deactivate godoc
// @Summary Deactivate rubric
// @Tags Rubrics
// @Produce json
// @Param id path string true "Rubric ID"
// @Success 204
// @Router /rubrics/{id} [delete]
func (h *RubricHandler) Deactivate(c *gin.Context) {
	evaluator, ok := evaluatorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.rubrics.Deactivate(c.Request.Context(), evaluator, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
