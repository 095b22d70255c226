package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
)

// RequireRole lets the request through only when the role claim stored by
// VerifyJWT is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(ctx *gin.Context) {
		role := ctx.GetString(ContextKeyRole)
		if !allowed[role] {
			response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("role %q may not access %s", role, ctx.FullPath())))
			return
		}

		ctx.Next()
	}
}
