package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

func TestGetAvailableBeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	beds, err := env.inventory.GetAvailableBeds(ctx, propA, room1)
	require.NoError(t, err)
	require.Len(t, beds, 2)
	assert.Equal(t, bed1, beds[0].ID)
	assert.Equal(t, bed2, beds[1].ID)

	env.assign(t, t1, room1, bed1, true)
	env.assign(t, t2, room1, bed2, false)

	beds, err = env.inventory.GetAvailableBeds(ctx, propA, room1)
	require.NoError(t, err)
	assert.NotNil(t, beds)
	assert.Empty(t, beds)
}

func TestGetAvailableBeds_UnknownOrForeignRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.inventory.GetAvailableBeds(ctx, "nope", room1)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.inventory.GetAvailableBeds(ctx, propA, "nope")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.inventory.GetAvailableBeds(ctx, propB, room1)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSetBedStatus_MaintenanceOnFreeBed(t *testing.T) {
	env := newTestEnv(t)

	bed, err := env.inventory.SetBedStatus(context.Background(), SetBedStatusInput{
		BedID:          bed3,
		Status:         models.BedMaintenance,
		ExpectedStatus: models.BedAvailable,
		Actor:          "worker-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BedMaintenance, bed.Status)
	assert.EqualValues(t, 2, bed.RowVersion)

	stored := env.bed(t, bed3)
	assert.Equal(t, models.BedMaintenance, stored.Status)
	assert.Equal(t, models.RoomAvailable, env.room(t, room2).Status)
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_MaintenanceOnOccupiedBed(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, t1, room2, bed3, true)

	_, err := env.inventory.SetBedStatus(context.Background(), SetBedStatusInput{
		BedID:          bed3,
		Status:         models.BedMaintenance,
		ExpectedStatus: models.BedAvailable,
	})
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)

	assert.Equal(t, models.BedOccupied, env.bed(t, bed3).Status)
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_StalePrecondition(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, t1, room1, bed1, false)

	// Reserved -> Available is legal, but the caller read the bed as Occupied.
	_, err := env.inventory.SetBedStatus(context.Background(), SetBedStatusInput{
		BedID:          bed1,
		Status:         models.BedAvailable,
		ExpectedStatus: models.BedOccupied,
	})
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.Equal(t, models.BedReserved, env.bed(t, bed1).Status)
	assert.Equal(t, bed1, utils.Val(env.tenant(t, t1).BedID))
}

func TestSetBedStatus_SecondReserverGetsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reserve := func(tenantID string) error {
		_, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
			BedID: bed1, Status: models.BedReserved, ExpectedStatus: models.BedAvailable, TenantID: tenantID,
		})
		return err
	}
	require.NoError(t, reserve(t1))

	err := reserve(t2)
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.NotErrorIs(t, err, utils.ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, utils.ToAppError(err).StatusCode)

	assert.Equal(t, bed1, utils.Val(env.tenant(t, t1).BedID))
	tn2 := env.tenant(t, t2)
	assert.False(t, tn2.Assigned())
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_ConcurrentReserversOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tenants := []string{t1, t2, t3}
	errs := make([]error, len(tenants))
	var wg sync.WaitGroup
	for i, id := range tenants {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.inventory.SetBedStatus(ctx, SetBedStatusInput{
				BedID: bed3, Status: models.BedReserved, ExpectedStatus: models.BedAvailable, TenantID: id,
			})
		}(i, id)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, utils.ErrConflict)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, models.BedReserved, env.bed(t, bed3).Status)
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_ReserveNeedsTenant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID:          bed1,
		Status:         models.BedReserved,
		ExpectedStatus: models.BedAvailable,
	})
	assert.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, models.BedAvailable, env.bed(t, bed1).Status)

	bed, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID:          bed1,
		Status:         models.BedReserved,
		ExpectedStatus: models.BedAvailable,
		TenantID:       t1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BedReserved, bed.Status)
	assert.Equal(t, bed1, utils.Val(env.tenant(t, t1).BedID))
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_ConfirmChecksHolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.assign(t, t1, room1, bed1, false)

	_, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID:          bed1,
		Status:         models.BedOccupied,
		ExpectedStatus: models.BedReserved,
		TenantID:       t2,
	})
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)

	bed, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID:          bed1,
		Status:         models.BedOccupied,
		ExpectedStatus: models.BedReserved,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BedOccupied, bed.Status)
	assert.Equal(t, models.RoomOccupied, env.room(t, room1).Status)
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_ReleaseClearsHolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.assign(t, t1, room1, bed1, true)

	req, err := env.switches.CreateRequest(ctx, CreateSwitchInput{
		TenantID: t1, RequestedRoomID: room2, RequestedBedID: bed3,
	})
	require.NoError(t, err)

	_, err = env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID:          bed1,
		Status:         models.BedAvailable,
		ExpectedStatus: models.BedOccupied,
	})
	require.NoError(t, err)

	tn := env.tenant(t, t1)
	assert.False(t, tn.Assigned())
	assert.Equal(t, models.RoomAvailable, env.room(t, room1).Status)
	assert.Equal(t, models.SwitchCancelled, env.request(t, req.ID).Status)
	env.assertOccupancyInvariants(t)
}

func TestSetBedStatus_UnknownBedAndStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: "nope", Status: models.BedMaintenance, ExpectedStatus: models.BedAvailable,
	})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: bed1, Status: "Broken", ExpectedStatus: models.BedAvailable,
	})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestSetBedStatus_MaintenanceBlocksReserve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: bed2, Status: models.BedMaintenance, ExpectedStatus: models.BedAvailable,
	})
	require.NoError(t, err)

	// the caller still thinks the bed is free: a lost race, not a bad move
	_, err = env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: bed2, Status: models.BedReserved, ExpectedStatus: models.BedAvailable, TenantID: t1,
	})
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: bed2, Status: models.BedReserved, ExpectedStatus: models.BedMaintenance, TenantID: t1,
	})
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)
	tn1 := env.tenant(t, t1)
	assert.False(t, tn1.Assigned())

	// each accepted write bumps the row version
	_, err = env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: bed2, Status: models.BedAvailable, ExpectedStatus: models.BedMaintenance,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, env.bed(t, bed2).RowVersion)
}

func TestSetBedStatus_WritesEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.inventory.SetBedStatus(ctx, SetBedStatusInput{
		BedID: bed1, Status: models.BedOccupied, ExpectedStatus: models.BedAvailable, TenantID: t1, Actor: "manager-1",
	})
	require.NoError(t, err)

	events, err := env.inventory.ListEvents(ctx, models.EntityBed, bed1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventOccupyDirect), events[0].Event)
	assert.Equal(t, "Available", events[0].FromStatus)
	assert.Equal(t, "Occupied", events[0].ToStatus)
	assert.Equal(t, t1, events[0].TenantID)
	assert.Equal(t, "manager-1", events[0].Actor)

	published := env.pub.Events()
	require.Len(t, published, 2) // bed + room cascade
	assert.Equal(t, models.EntityBed, published[0].EntityType)
	assert.Equal(t, models.EntityRoom, published[1].EntityType)
	assert.Equal(t, "Occupied", published[1].ToStatus)
}

func TestSetBedStatus_FailedWriteIsNotPublished(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inventory.SetBedStatus(context.Background(), SetBedStatusInput{
		BedID: bed1, Status: models.BedReserved, ExpectedStatus: models.BedOccupied, TenantID: t1,
	})
	require.Error(t, err)
	assert.Empty(t, env.pub.Events())

	var count int64
	require.NoError(t, env.db.Model(&models.OccupancyEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSetRoomStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.assign(t, t1, room1, bed1, true)

	t.Run("derived value mismatch", func(t *testing.T) {
		_, err := env.inventory.SetRoomStatus(ctx, room1, models.RoomAvailable, "manager-1")
		assert.ErrorIs(t, err, utils.ErrInvalidTransition)
		assert.Equal(t, models.RoomOccupied, env.room(t, room1).Status)
	})

	t.Run("maintenance override", func(t *testing.T) {
		room, err := env.inventory.SetRoomStatus(ctx, room1, models.RoomMaintenance, "manager-1")
		require.NoError(t, err)
		assert.Equal(t, models.RoomMaintenance, room.Status)

		// bed changes do not lift the override
		_, err = env.tenants.ClearAssignment(ctx, t1, "manager-1")
		require.NoError(t, err)
		assert.Equal(t, models.RoomMaintenance, env.room(t, room1).Status)
	})

	t.Run("clearing override re-derives", func(t *testing.T) {
		_, err := env.inventory.SetRoomStatus(ctx, room1, models.RoomOccupied, "manager-1")
		assert.ErrorIs(t, err, utils.ErrInvalidTransition)
		assert.Equal(t, models.RoomMaintenance, env.room(t, room1).Status)

		room, err := env.inventory.SetRoomStatus(ctx, room1, models.RoomAvailable, "manager-1")
		require.NoError(t, err)
		assert.Equal(t, models.RoomAvailable, room.Status)
		env.assertOccupancyInvariants(t)
	})

	t.Run("unknown room and status", func(t *testing.T) {
		_, err := env.inventory.SetRoomStatus(ctx, "nope", models.RoomMaintenance, "")
		assert.ErrorIs(t, err, utils.ErrNotFound)

		_, err = env.inventory.SetRoomStatus(ctx, room1, "Closed", "")
		assert.ErrorIs(t, err, utils.ErrValidation)
	})
}

func TestCreateBed_RespectsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, err := env.inventory.CreateRoom(ctx, CreateRoomInput{PropertyID: propA, Name: "Attic", Capacity: 1})
	require.NoError(t, err)

	bed, err := env.inventory.CreateBed(ctx, CreateBedInput{RoomID: room.ID, Label: "A"}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.BedAvailable, bed.Status)
	assert.Equal(t, propA, bed.PropertyID)

	_, err = env.inventory.CreateBed(ctx, CreateBedInput{RoomID: room.ID, Label: "B"}, "owner-1")
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = env.inventory.CreateRoom(ctx, CreateRoomInput{PropertyID: propA, Name: "Closet", Capacity: 0})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = env.inventory.CreateRoom(ctx, CreateRoomInput{PropertyID: "nope", Name: "Ghost", Capacity: 1})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestGetRoomAndListRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, err := env.inventory.GetRoom(ctx, room2)
	require.NoError(t, err)
	require.Len(t, room.Beds, 2)
	assert.Equal(t, bed3, room.Beds[0].ID)

	rooms, err := env.inventory.ListRooms(ctx, propA)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	props, err := env.inventory.ListProperties(ctx, "owner-2")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, propB, props[0].ID)

	_, err = env.inventory.GetBed(ctx, "nope")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDeleteRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.assign(t, t1, room1, bed1, false)

	err := env.inventory.DeleteRoom(ctx, room1, "owner-1")
	assert.ErrorIs(t, err, utils.ErrConflict)

	require.NoError(t, env.inventory.DeleteRoom(ctx, room2, "owner-1"))
	_, err = env.inventory.GetRoom(ctx, room2)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = env.inventory.GetBed(ctx, bed3)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.inventory.CreateBed(ctx, CreateBedInput{RoomID: room2}, "owner-1")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDeleteRoom_CancelsRequestsForItsBeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.assign(t, t1, room1, bed1, true)

	req := env.openRequest(t, t1, room2, bed3)
	require.NoError(t, env.inventory.DeleteRoom(ctx, room2, "owner-1"))
	assert.Equal(t, models.SwitchCancelled, env.request(t, req.ID).Status)

	_, err := env.switches.Approve(ctx, req.ID, "manager-1")
	assert.ErrorIs(t, err, utils.ErrAlreadyResolved)
	assert.Equal(t, bed1, utils.Val(env.tenant(t, t1).BedID))
	assert.Equal(t, models.BedOccupied, env.bed(t, bed1).Status)
	env.assertOccupancyInvariants(t)
}

func TestDeleteRoom_RefusalKeepsRequestsOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.assign(t, t1, room1, bed1, true)
	env.assign(t, t2, room2, bed4, true)

	req := env.openRequest(t, t1, room2, bed3)
	err := env.inventory.DeleteRoom(ctx, room2, "owner-1")
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.Equal(t, models.SwitchPending, env.request(t, req.ID).Status)
}
