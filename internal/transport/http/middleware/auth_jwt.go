package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/domain"
	resp "task-manager-api/internal/transport/http/response"
)

const KeyIdentity = "identity"

// AuthJWT resolves the bearer credential into an Identity. A non-empty
// requireRole rejects every other role with 403.
func AuthJWT(j *auth.JWTer, requireRole domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := j.Resolve(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.FromError(err))
			return
		}
		if requireRole != "" && id.Role != requireRole {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "admin access required"))
			return
		}
		c.Set(KeyIdentity, id)
		c.Next()
	}
}

func Identity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
