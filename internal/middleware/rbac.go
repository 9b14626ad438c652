package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/harmony-timetable-api/internal/models"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
	"github.com/noah-isme/harmony-timetable-api/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// Roles that may read timetables, generate proposals and manage stored versions.
var (
	ReadRoles     = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleScheduler, models.RoleViewer}
	GenerateRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleScheduler}
	ManageRoles   = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
)
