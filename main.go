package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"occupancy-backend/config"
	"occupancy-backend/controllers"
	"occupancy-backend/routes"
	"occupancy-backend/services"
	"occupancy-backend/utils"
)

func main() {
	// Load .env (optional)
	envErr := godotenv.Load()

	settings := config.Load()
	utils.InitLogger("occupancy-backend", settings.LogLevel)
	if envErr != nil {
		utils.Logger.Info(".env not found or couldn't load it; continuing with environment variables")
	}

	db, err := config.ConnectDatabase(settings)
	if err != nil {
		utils.Logger.Fatalf("database connect failed: %v", err)
	}
	utils.Logger.Info("database connection established and migrations applied")

	var events services.Publisher = services.NopPublisher{}
	rdb, err := config.ConnectRedis(settings)
	switch {
	case err != nil:
		utils.Logger.Warnf("redis unavailable, occupancy events will not be published: %v", err)
	case rdb != nil:
		defer rdb.Close()
		events = services.NewRedisPublisher(rdb, settings.RedisChannel)
		utils.Logger.Infof("publishing occupancy events to redis channel %s", settings.RedisChannel)
	}

	// Initialize services
	inventoryService := services.NewInventoryService(db, events)
	tenantService := services.NewTenantService(db, events)
	switchService := services.NewSwitchRequestService(db, events)
	roleService := services.NewRoleService(db)

	router := routes.SetupRouter(routes.Handlers{
		Inventory: controllers.NewInventoryController(inventoryService),
		Tenants:   controllers.NewTenantController(tenantService),
		Switches:  controllers.NewSwitchRequestController(switchService),
		Roles:     controllers.NewRoleController(roleService),
	}, roleService, settings.CORSOrigins)

	addr := ":" + settings.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.Logger.Infof("server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Fatalf("server forced to shutdown: %v", err)
	}

	utils.Logger.Info("server stopped gracefully")
}
