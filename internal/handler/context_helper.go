package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/middleware"
	"github.com/campusops/accommodations-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext names who performed a change for audit columns. Falls
// back to "system" when a route runs without authentication.
func actorFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return "system"
	}
	return claims.UserID
}
