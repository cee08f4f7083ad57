package services

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"occupancy-backend/config"
	"occupancy-backend/models"
)

// Fixture layout:
//
//	prop-1: room-1 (bed-1, bed-2), room-2 (bed-3, bed-4)
//	prop-2: room-9 (bed-9)
//	tenants t-1, t-2, t-3, all unassigned
const (
	propA = "prop-1"
	propB = "prop-2"
	room1 = "room-1"
	room2 = "room-2"
	room9 = "room-9"
	bed1  = "bed-1"
	bed2  = "bed-2"
	bed3  = "bed-3"
	bed4  = "bed-4"
	bed9  = "bed-9"
	t1    = "t-1"
	t2    = "t-2"
	t3    = "t-3"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OccupancyEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events []models.OccupancyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) Events() []models.OccupancyEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.OccupancyEvent(nil), p.events...)
}

type testEnv struct {
	db        *gorm.DB
	pub       *recordingPublisher
	inventory *InventoryService
	tenants   *TenantService
	switches  *SwitchRequestService
}

// newTestDB opens a private in-memory database. One connection means
// concurrent transactions run one after another, like row locks on a
// single bed would force them to.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	seedFixture(t, db)

	pub := &recordingPublisher{}
	return &testEnv{
		db:        db,
		pub:       pub,
		inventory: NewInventoryService(db, pub),
		tenants:   NewTenantService(db, pub),
		switches:  NewSwitchRequestService(db, pub),
	}
}

func seedFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	props := []models.Property{
		{ID: propA, OwnerID: "owner-1", Name: "Green House"},
		{ID: propB, OwnerID: "owner-2", Name: "Blue House"},
	}
	rooms := []models.Room{
		{ID: room1, PropertyID: propA, Name: "R1", Capacity: 2, Status: models.RoomAvailable},
		{ID: room2, PropertyID: propA, Name: "R2", Capacity: 2, Status: models.RoomAvailable},
		{ID: room9, PropertyID: propB, Name: "R9", Capacity: 1, Status: models.RoomAvailable},
	}
	beds := []models.Bed{
		{ID: bed1, RoomID: room1, PropertyID: propA, Label: "1A", Position: 0, Status: models.BedAvailable, RowVersion: 1},
		{ID: bed2, RoomID: room1, PropertyID: propA, Label: "1B", Position: 1, Status: models.BedAvailable, RowVersion: 1},
		{ID: bed3, RoomID: room2, PropertyID: propA, Label: "2A", Position: 0, Status: models.BedAvailable, RowVersion: 1},
		{ID: bed4, RoomID: room2, PropertyID: propA, Label: "2B", Position: 1, Status: models.BedAvailable, RowVersion: 1},
		{ID: bed9, RoomID: room9, PropertyID: propB, Label: "9A", Position: 0, Status: models.BedAvailable, RowVersion: 1},
	}
	tenants := []models.Tenant{
		{ID: t1, Name: "Alice"},
		{ID: t2, Name: "Bob"},
		{ID: t3, Name: "Carol"},
	}
	require.NoError(t, db.Create(&props).Error)
	require.NoError(t, db.Create(&rooms).Error)
	require.NoError(t, db.Create(&beds).Error)
	require.NoError(t, db.Create(&tenants).Error)
}

func (e *testEnv) bed(t *testing.T, id string) models.Bed {
	t.Helper()
	var b models.Bed
	require.NoError(t, e.db.Where("id = ?", id).First(&b).Error)
	return b
}

func (e *testEnv) room(t *testing.T, id string) models.Room {
	t.Helper()
	var r models.Room
	require.NoError(t, e.db.Where("id = ?", id).First(&r).Error)
	return r
}

func (e *testEnv) tenant(t *testing.T, id string) models.Tenant {
	t.Helper()
	var tn models.Tenant
	require.NoError(t, e.db.Unscoped().Where("id = ?", id).First(&tn).Error)
	return tn
}

func (e *testEnv) request(t *testing.T, id string) models.SwitchRequest {
	t.Helper()
	var r models.SwitchRequest
	require.NoError(t, e.db.Where("id = ?", id).First(&r).Error)
	return r
}

func (e *testEnv) assign(t *testing.T, tenantID, roomID, bedID string, confirmed bool) {
	t.Helper()
	_, err := e.tenants.AssignTenant(context.Background(), AssignInput{
		TenantID:   tenantID,
		PropertyID: propA,
		RoomID:     roomID,
		BedID:      bedID,
		Confirmed:  confirmed,
		Actor:      "manager-1",
	})
	require.NoError(t, err)
}

// assertOccupancyInvariants checks every bed against the tenants that
// reference it, and every room against its beds.
func (e *testEnv) assertOccupancyInvariants(t *testing.T) {
	t.Helper()

	var beds []models.Bed
	require.NoError(t, e.db.Find(&beds).Error)
	var tenants []models.Tenant
	require.NoError(t, e.db.Find(&tenants).Error)

	holders := map[string]int{}
	for _, tn := range tenants {
		if tn.Assigned() {
			holders[*tn.BedID]++
			require.NotNil(t, tn.RoomID, "tenant %s has a bed but no room", tn.ID)
			require.NotNil(t, tn.PropertyID, "tenant %s has a bed but no property", tn.ID)
		} else {
			require.Nil(t, tn.RoomID, "tenant %s has a room but no bed", tn.ID)
			require.Nil(t, tn.PropertyID, "tenant %s has a property but no bed", tn.ID)
		}
	}

	bedsByRoom := map[string][]models.Bed{}
	for _, b := range beds {
		bedsByRoom[b.RoomID] = append(bedsByRoom[b.RoomID], b)
		if b.Status.Assigned() {
			require.Equal(t, 1, holders[b.ID], "bed %s is %s", b.ID, b.Status)
		} else {
			require.Zero(t, holders[b.ID], "bed %s is %s", b.ID, b.Status)
		}
	}

	var rooms []models.Room
	require.NoError(t, e.db.Find(&rooms).Error)
	for _, r := range rooms {
		require.Equal(t, DeriveRoomStatus(r.Status, bedsByRoom[r.ID]), r.Status, "room %s", r.ID)
	}
}
