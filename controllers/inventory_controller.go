package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"occupancy-backend/models"
	"occupancy-backend/services"
	"occupancy-backend/utils"
)

type setBedStatusPayload struct {
	Status         string `json:"status" binding:"required"`
	ExpectedStatus string `json:"expectedStatus" binding:"required"`
	TenantID       string `json:"tenantId"`
}

type setRoomStatusPayload struct {
	Status string `json:"status" binding:"required"`
}

type InventoryController struct {
	InventorySvc *services.InventoryService
}

func NewInventoryController(svc *services.InventoryService) *InventoryController {
	return &InventoryController{InventorySvc: svc}
}

// GET /api/properties/:propertyId/rooms/:roomId/beds/available
func (ic *InventoryController) GetAvailableBeds(c *gin.Context) {
	beds, err := ic.InventorySvc.GetAvailableBeds(c.Request.Context(), c.Param("propertyId"), c.Param("roomId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, beds)
}

// PUT /api/beds/:id/status
func (ic *InventoryController) SetBedStatus(c *gin.Context) {
	var payload setBedStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	bed, err := ic.InventorySvc.SetBedStatus(c.Request.Context(), services.SetBedStatusInput{
		BedID:          c.Param("id"),
		Status:         models.BedStatus(payload.Status),
		ExpectedStatus: models.BedStatus(payload.ExpectedStatus),
		TenantID:       payload.TenantID,
		Actor:          actorFrom(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, bed)
}

// PUT /api/rooms/:id/status
func (ic *InventoryController) SetRoomStatus(c *gin.Context) {
	var payload setRoomStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	room, err := ic.InventorySvc.SetRoomStatus(c.Request.Context(), c.Param("id"), models.RoomStatus(payload.Status), actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, room)
}

// ----------------------------------------------------
// Administration
// ----------------------------------------------------

func (ic *InventoryController) ListProperties(c *gin.Context) {
	list, err := ic.InventorySvc.ListProperties(c.Request.Context(), c.Query("ownerId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, list)
}

func (ic *InventoryController) CreateProperty(c *gin.Context) {
	var in services.CreatePropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	p, err := ic.InventorySvc.CreateProperty(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, p)
}

func (ic *InventoryController) ListRooms(c *gin.Context) {
	rooms, err := ic.InventorySvc.ListRooms(c.Request.Context(), c.Param("propertyId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rooms)
}

func (ic *InventoryController) CreateRoom(c *gin.Context) {
	var in services.CreateRoomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	in.PropertyID = c.Param("propertyId")

	room, err := ic.InventorySvc.CreateRoom(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, room)
}

func (ic *InventoryController) GetRoom(c *gin.Context) {
	room, err := ic.InventorySvc.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, room)
}

func (ic *InventoryController) DeleteRoom(c *gin.Context) {
	if err := ic.InventorySvc.DeleteRoom(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ic *InventoryController) CreateBed(c *gin.Context) {
	var in services.CreateBedInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	in.RoomID = c.Param("id")

	bed, err := ic.InventorySvc.CreateBed(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, bed)
}

func (ic *InventoryController) GetBed(c *gin.Context) {
	bed, err := ic.InventorySvc.GetBed(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, bed)
}

// GET /api/beds/:id/events
func (ic *InventoryController) GetBedEvents(c *gin.Context) {
	events, err := ic.InventorySvc.ListEvents(c.Request.Context(), models.EntityBed, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, events)
}
