package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"occupancy-backend/models"
	"occupancy-backend/utils"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AllPermissions is every "<module>.<action>" the routes check.
var AllPermissions = []string{
	"inventory.view",
	"inventory.create",
	"inventory.delete",
	"bed.editStatus",
	"room.editStatus",
	"tenant.view",
	"tenant.create",
	"tenant.assign",
	"tenant.delete",
	"switchRequest.view",
	"switchRequest.create",
	"switchRequest.approve",
	"switchRequest.cancel",
	"rolesAndPermissions.view",
}

type roleSeed struct {
	Name        string
	Description string
	Permissions []string
}

var defaultRoles = []roleSeed{
	{"landlord", "Property owner with full access", AllPermissions},
	{"sub-owner", "Co-owner of a property", AllPermissions},
	{"property-manager", "Runs day-to-day occupancy of a property", []string{
		"inventory.view", "inventory.create", "bed.editStatus", "room.editStatus",
		"tenant.view", "tenant.create", "tenant.assign", "tenant.delete",
		"switchRequest.view", "switchRequest.create", "switchRequest.approve", "switchRequest.cancel",
	}},
	{"regional-manager", "Oversees several properties", []string{
		"inventory.view", "room.editStatus", "tenant.view",
		"switchRequest.view", "switchRequest.approve", "rolesAndPermissions.view",
	}},
	{"tenant", "Resident of a bed", []string{
		"inventory.view", "switchRequest.view", "switchRequest.create", "switchRequest.cancel",
	}},
	{"seller", "Markets available beds", []string{"inventory.view"}},
	{"worker", "Maintenance staff", []string{"inventory.view", "bed.editStatus", "room.editStatus"}},
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "UTC")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

// ResolveMySQLDSN prefers MYSQL_URL / DATABASE_URL and falls back to the
// DB_* variables.
func ResolveMySQLDSN() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := utils.EnvOrDefault("DB_USER", "root")
	pass := utils.EnvOrDefault("DB_PASS", "")
	host := utils.EnvOrDefault("DB_HOST", "127.0.0.1")
	port := utils.EnvOrDefault("DB_PORT", "3306")
	dbName := utils.EnvOrDefault("DB_NAME", "occupancy_db")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, pass, host, port, dbName,
	), nil
}

// NewGormLogger routes gorm's SQL logging through the shared logrus logger.
func NewGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		utils.Logger,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func ConnectDatabase(s Settings) (*gorm.DB, error) {
	dsn, err := ResolveMySQLDSN()
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if strings.EqualFold(s.LogLevel, "debug") || strings.EqualFold(s.LogLevel, "trace") {
		level = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:  NewGormLogger(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(utils.EnvInt("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(utils.EnvInt("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := SeedDatabase(db, s.SeedDemo); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the schema in parent -> child order.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Property{},
		&models.Room{},
		&models.Bed{},
		&models.Tenant{},
		&models.SwitchRequest{},
		&models.OccupancyEvent{},
		&models.Role{},
		&models.RolePermission{},
	)
}

// SeedDatabase makes sure the actor roles exist with at least their default
// permissions, and optionally loads a small demo property.
func SeedDatabase(db *gorm.DB, demo bool) error {
	for _, seed := range defaultRoles {
		var role models.Role
		err := db.Where("LOWER(name) = ?", strings.ToLower(seed.Name)).First(&role).Error
		if err != nil {
			role = models.Role{Name: seed.Name, Description: seed.Description}
			if err := db.Create(&role).Error; err != nil {
				return fmt.Errorf("create role %s: %w", seed.Name, err)
			}
		}

		var permCount int64
		db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&permCount)
		if permCount > 0 {
			continue
		}
		perms := make([]models.RolePermission, 0, len(seed.Permissions))
		for _, p := range seed.Permissions {
			perms = append(perms, models.RolePermission{RoleID: role.ID, Permission: p})
		}
		if err := db.Create(&perms).Error; err != nil {
			return fmt.Errorf("create permissions of role %s: %w", seed.Name, err)
		}
	}
	utils.Logger.Info("Roles ensured")

	if demo {
		return seedDemoInventory(db)
	}
	return nil
}

func seedDemoInventory(db *gorm.DB) error {
	var count int64
	db.Model(&models.Property{}).Count(&count)
	if count > 0 {
		utils.Logger.Info("Demo inventory skipped, properties already exist")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		prop := models.Property{ID: utils.NewID(), OwnerID: "demo-landlord", Name: "Demo House", Address: "1 Demo Street"}
		if err := tx.Create(&prop).Error; err != nil {
			return err
		}
		for r := 1; r <= 3; r++ {
			room := models.Room{
				ID:         utils.NewID(),
				PropertyID: prop.ID,
				Name:       fmt.Sprintf("Room %d", r),
				Capacity:   r + 1,
				Status:     models.RoomAvailable,
			}
			if err := tx.Create(&room).Error; err != nil {
				return err
			}
			for b := 0; b < room.Capacity; b++ {
				bed := models.Bed{
					ID:         utils.NewID(),
					RoomID:     room.ID,
					PropertyID: prop.ID,
					Label:      fmt.Sprintf("%d-%c", r, 'A'+b),
					Position:   b,
					Price:      float64(300 + 50*r),
					Status:     models.BedAvailable,
					RowVersion: 1,
				}
				if err := tx.Create(&bed).Error; err != nil {
					return err
				}
			}
		}
		utils.Logger.Infof("Demo inventory seeded (property %s)", prop.ID)
		return nil
	})
}
