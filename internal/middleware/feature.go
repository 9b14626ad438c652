package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
	"github.com/noah-isme/harmony-timetable-api/pkg/response"
)

// FeatureGate rejects requests with 503 while the named feature is switched off.
func FeatureGate(enabled bool, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, feature+" is disabled"))
			c.Abort()
			return
		}
		c.Next()
	}
}
