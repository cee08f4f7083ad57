package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"occupancy-backend/models"
	"occupancy-backend/services"
	"occupancy-backend/utils"
)

type createSwitchPayload struct {
	TenantID        string `json:"tenantId" binding:"required"`
	RequestedRoomID string `json:"requestedRoomId" binding:"required"`
	RequestedBedID  string `json:"requestedBedId" binding:"required"`
	Reason          string `json:"reason"`
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

type SwitchRequestController struct {
	SwitchSvc *services.SwitchRequestService
}

func NewSwitchRequestController(svc *services.SwitchRequestService) *SwitchRequestController {
	return &SwitchRequestController{SwitchSvc: svc}
}

// POST /api/switch-requests
func (sc *SwitchRequestController) CreateRequest(c *gin.Context) {
	var payload createSwitchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	req, err := sc.SwitchSvc.CreateRequest(c.Request.Context(), services.CreateSwitchInput{
		TenantID:        payload.TenantID,
		RequestedRoomID: payload.RequestedRoomID,
		RequestedBedID:  payload.RequestedBedID,
		Reason:          payload.Reason,
		Actor:           actorFrom(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, req)
}

// POST /api/switch-requests/:id/approve
func (sc *SwitchRequestController) Approve(c *gin.Context) {
	req, err := sc.SwitchSvc.Approve(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, req)
}

// POST /api/switch-requests/:id/reject
func (sc *SwitchRequestController) Reject(c *gin.Context) {
	var payload rejectPayload
	// an empty body is a missing reason, which the service reports
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondBindError(c, err)
			return
		}
	}

	req, err := sc.SwitchSvc.Reject(c.Request.Context(), c.Param("id"), payload.Reason, actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, req)
}

// POST /api/switch-requests/:id/cancel
func (sc *SwitchRequestController) Cancel(c *gin.Context) {
	req, err := sc.SwitchSvc.Cancel(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, req)
}

func (sc *SwitchRequestController) GetRequest(c *gin.Context) {
	req, err := sc.SwitchSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, req)
}

// GET /api/switch-requests?status=&propertyId=&tenantId=&from=&to=
func (sc *SwitchRequestController) ListRequests(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"), false)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"), true)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	list, err := sc.SwitchSvc.List(c.Request.Context(), services.SwitchRequestFilter{
		Status:     models.SwitchStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		PropertyID: strings.TrimSpace(c.Query("propertyId")),
		TenantID:   strings.TrimSpace(c.Query("tenantId")),
		From:       from,
		To:         to,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}
