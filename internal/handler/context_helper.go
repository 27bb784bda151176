package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/medtrack/medtrack-api/internal/middleware"
	"github.com/medtrack/medtrack-api/internal/models"
)

// claimsFromContext returns the authenticated identity set by the JWT
// middleware, or nil on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
