package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/escolalink/escola-api/internal/middleware"
	"github.com/escolalink/escola-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.EvaluatorClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.EvaluatorClaims)
	if !ok {
		return nil
	}
	return claims
}

// evaluatorFromContext returns the authenticated evaluator, or false when the
// request carries no usable claims.
func evaluatorFromContext(c *gin.Context) (models.Evaluator, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Evaluator{}, false
	}
	return claims.Evaluator(), true
}
