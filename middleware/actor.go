package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"occupancy-backend/utils"
)

// Headers set by the auth gateway in front of this service.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"

	ActorIDKey   = "actorId"
	ActorRoleKey = "actorRole"
)

// PermissionChecker is satisfied by services.RoleService.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleName, perm string) (bool, error)
}

// Actor copies the gateway identity headers into the gin context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ActorIDKey, strings.TrimSpace(c.GetHeader(HeaderActorID)))
		c.Set(ActorRoleKey, strings.TrimSpace(c.GetHeader(HeaderActorRole)))
		c.Next()
	}
}

// RequirePermission lets the request through only if the actor's role has perm.
func RequirePermission(checker PermissionChecker, perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ActorRoleKey)
		if role == "" {
			role = strings.TrimSpace(c.GetHeader(HeaderActorRole))
		}
		if role == "" {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Missing actor role")
			return
		}

		ok, err := checker.HasPermission(c.Request.Context(), role, perm)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if !ok {
			utils.JSONError(c, http.StatusForbidden, utils.ErrCodeForbidden, "Role "+role+" may not "+perm)
			return
		}
		c.Next()
	}
}
