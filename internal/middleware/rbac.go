package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/response"
)

// RequireRoles admits requests whose token carries one of roles. It must run
// after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not modify schedules"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireWriter admits the roles allowed to store, populate and delete.
func RequireWriter() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleOperator)
}

// Claims returns the verified token claims of the request.
func Claims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}
