package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"occupancy-backend/services"
	"occupancy-backend/utils"
)

type assignPayload struct {
	PropertyID string `json:"propertyId" binding:"required"`
	RoomID     string `json:"roomId" binding:"required"`
	BedID      string `json:"bedId" binding:"required"`
	Confirmed  bool   `json:"confirmed"`
}

type TenantController struct {
	TenantSvc *services.TenantService
}

func NewTenantController(svc *services.TenantService) *TenantController {
	return &TenantController{TenantSvc: svc}
}

// GET /api/tenants?propertyId=
func (tc *TenantController) GetTenants(c *gin.Context) {
	tenants, err := tc.TenantSvc.ListTenants(c.Request.Context(), c.Query("propertyId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, tenants)
}

func (tc *TenantController) GetTenantByID(c *gin.Context) {
	t, err := tc.TenantSvc.GetTenant(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, t)
}

func (tc *TenantController) CreateTenant(c *gin.Context) {
	var in services.CreateTenantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	t, err := tc.TenantSvc.CreateTenant(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, t)
}

func (tc *TenantController) DeleteTenant(c *gin.Context) {
	if err := tc.TenantSvc.DeleteTenant(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/tenants/:id/assignment
func (tc *TenantController) AssignTenant(c *gin.Context) {
	var payload assignPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	t, err := tc.TenantSvc.AssignTenant(c.Request.Context(), services.AssignInput{
		TenantID:   c.Param("id"),
		PropertyID: payload.PropertyID,
		RoomID:     payload.RoomID,
		BedID:      payload.BedID,
		Confirmed:  payload.Confirmed,
		Actor:      actorFrom(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, t)
}

// POST /api/tenants/:id/assignment/confirm
func (tc *TenantController) ConfirmOccupancy(c *gin.Context) {
	t, err := tc.TenantSvc.ConfirmOccupancy(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, t)
}

// DELETE /api/tenants/:id/assignment
func (tc *TenantController) ClearAssignment(c *gin.Context) {
	t, err := tc.TenantSvc.ClearAssignment(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, t)
}
