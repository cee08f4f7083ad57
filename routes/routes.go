package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"occupancy-backend/controllers"
	"occupancy-backend/middleware"
)

// Handlers bundles the controllers the router mounts.
type Handlers struct {
	Inventory *controllers.InventoryController
	Tenants   *controllers.TenantController
	Switches  *controllers.SwitchRequestController
	Roles     *controllers.RoleController
}

// SetupRouter builds the engine: CORS, actor headers, request logging and
// the /api route table, each route guarded by a role permission.
func SetupRouter(h Handlers, perms middleware.PermissionChecker, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.HeaderActorID, middleware.HeaderActorRole},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Actor(), middleware.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	can := func(perm string) gin.HandlerFunc {
		return middleware.RequirePermission(perms, perm)
	}

	api := r.Group("/api")
	{
		properties := api.Group("/properties")
		{
			properties.GET("", can("inventory.view"), h.Inventory.ListProperties)
			properties.POST("", can("inventory.create"), h.Inventory.CreateProperty)
			properties.GET("/:propertyId/rooms", can("inventory.view"), h.Inventory.ListRooms)
			properties.POST("/:propertyId/rooms", can("inventory.create"), h.Inventory.CreateRoom)
			properties.GET("/:propertyId/rooms/:roomId/beds/available", can("inventory.view"), h.Inventory.GetAvailableBeds)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("/:id", can("inventory.view"), h.Inventory.GetRoom)
			rooms.DELETE("/:id", can("inventory.delete"), h.Inventory.DeleteRoom)
			rooms.PUT("/:id/status", can("room.editStatus"), h.Inventory.SetRoomStatus)
			rooms.POST("/:id/beds", can("inventory.create"), h.Inventory.CreateBed)
		}

		beds := api.Group("/beds")
		{
			beds.GET("/:id", can("inventory.view"), h.Inventory.GetBed)
			beds.GET("/:id/events", can("inventory.view"), h.Inventory.GetBedEvents)
			beds.PUT("/:id/status", can("bed.editStatus"), h.Inventory.SetBedStatus)
		}

		tenants := api.Group("/tenants")
		{
			tenants.GET("", can("tenant.view"), h.Tenants.GetTenants)
			tenants.POST("", can("tenant.create"), h.Tenants.CreateTenant)
			tenants.GET("/:id", can("tenant.view"), h.Tenants.GetTenantByID)
			tenants.DELETE("/:id", can("tenant.delete"), h.Tenants.DeleteTenant)
			tenants.POST("/:id/assignment", can("tenant.assign"), h.Tenants.AssignTenant)
			tenants.POST("/:id/assignment/confirm", can("tenant.assign"), h.Tenants.ConfirmOccupancy)
			tenants.DELETE("/:id/assignment", can("tenant.assign"), h.Tenants.ClearAssignment)
		}

		switches := api.Group("/switch-requests")
		{
			switches.GET("", can("switchRequest.view"), h.Switches.ListRequests)
			switches.POST("", can("switchRequest.create"), h.Switches.CreateRequest)
			switches.GET("/:id", can("switchRequest.view"), h.Switches.GetRequest)
			switches.POST("/:id/approve", can("switchRequest.approve"), h.Switches.Approve)
			switches.POST("/:id/reject", can("switchRequest.approve"), h.Switches.Reject)
			switches.POST("/:id/cancel", can("switchRequest.cancel"), h.Switches.Cancel)
		}

		api.GET("/roles", can("rolesAndPermissions.view"), h.Roles.GetRoles)
	}

	return r
}
