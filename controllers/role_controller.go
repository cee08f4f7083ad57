package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"occupancy-backend/services"
	"occupancy-backend/utils"
)

var defaultActionsByModule = map[string][]string{
	"inventory":           {"view", "create", "delete"},
	"bed":                 {"editStatus"},
	"room":                {"editStatus"},
	"tenant":              {"view", "create", "assign", "delete"},
	"switchRequest":       {"view", "create", "approve", "cancel"},
	"rolesAndPermissions": {"view"},
}

func buildDefaultPermissions() map[string]map[string]bool {
	permMap := map[string]map[string]bool{}
	for module, actions := range defaultActionsByModule {
		permMap[module] = map[string]bool{}
		for _, action := range actions {
			permMap[module][action] = false
		}
	}
	return permMap
}

type roleResponse struct {
	ID          uint                       `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Permissions map[string]map[string]bool `json:"permissions"`
}

type RoleController struct {
	RoleSvc *services.RoleService
}

func NewRoleController(svc *services.RoleService) *RoleController {
	return &RoleController{RoleSvc: svc}
}

// GET /api/roles
func (rc *RoleController) GetRoles(c *gin.Context) {
	roles, err := rc.RoleSvc.ListRoles(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	responses := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		permMap := buildDefaultPermissions()
		for _, perm := range role.Permissions {
			module, action, ok := strings.Cut(perm.Permission, ".")
			if !ok {
				continue
			}
			if _, exists := permMap[module]; !exists {
				permMap[module] = map[string]bool{}
			}
			permMap[module][action] = true
		}

		responses = append(responses, roleResponse{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			Permissions: permMap,
		})
	}

	utils.JSONSuccess(c, http.StatusOK, responses)
}
