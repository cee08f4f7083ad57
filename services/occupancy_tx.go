package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

// occupancyTx is one atomic unit of work. Every bed, room, tenant and
// switch-request write of an operation goes through the same tx, and the
// events it records are published only after commit.
type occupancyTx struct {
	tx     *gorm.DB
	actor  string
	now    time.Time
	events []models.OccupancyEvent
}

// runInTx opens a transaction, runs fn and commits. A failed rollback is
// reported as ErrInconsistentState since the partial write may have stuck.
func runInTx(ctx context.Context, db *gorm.DB, pub Publisher, actor string, fn func(o *occupancyTx) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	o := &occupancyTx{tx: tx, actor: actor, now: time.Now().UTC()}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(o); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			utils.Logger.WithFields(logrus.Fields{
				"actor":       actor,
				"error":       err.Error(),
				"rollbackErr": rbErr.Error(),
			}).Error("rollback failed, occupancy data may be inconsistent")
			return fmt.Errorf("%w: rollback after %q failed: %v", utils.ErrInconsistentState, err.Error(), rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return classifyDBError(err, "commit")
	}

	publishEvents(ctx, pub, o.events)
	return nil
}

func (o *occupancyTx) lockBed(id string) (*models.Bed, error) {
	var bed models.Bed
	if err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bed).Error; err != nil {
		return nil, classifyDBError(err, "bed "+id)
	}
	return &bed, nil
}

func (o *occupancyTx) lockRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&room).Error; err != nil {
		return nil, classifyDBError(err, "room "+id)
	}
	return &room, nil
}

func (o *occupancyTx) lockTenant(id string) (*models.Tenant, error) {
	var t models.Tenant
	if err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error; err != nil {
		return nil, classifyDBError(err, "tenant "+id)
	}
	return &t, nil
}

func (o *occupancyTx) lockSwitchRequest(id string) (*models.SwitchRequest, error) {
	var req models.SwitchRequest
	if err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error; err != nil {
		return nil, classifyDBError(err, "switch request "+id)
	}
	return &req, nil
}

// Lock order for every operation: tenants, switch requests, beds sorted by
// id, rooms sorted by id.

// lockBeds locks beds in id order so two operations touching the same pair
// cannot deadlock each other.
func (o *occupancyTx) lockBeds(ids ...string) (map[string]*models.Bed, error) {
	sorted := append([]string(nil), ids...)
	slices.Sort(sorted)
	out := make(map[string]*models.Bed, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		bed, err := o.lockBed(id)
		if err != nil {
			return nil, err
		}
		out[id] = bed
	}
	return out, nil
}

// lockRooms locks rooms in id order ahead of the bed transitions that
// re-derive them.
func (o *occupancyTx) lockRooms(ids ...string) error {
	sorted := append([]string(nil), ids...)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, id := range sorted {
		if _, err := o.lockRoom(id); err != nil {
			return err
		}
	}
	return nil
}

func (o *occupancyTx) bedExists(id string) bool {
	var n int64
	if err := o.tx.Model(&models.Bed{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return true
	}
	return n > 0
}

// holderOf returns the tenant whose assignment references bedID, or nil.
func (o *occupancyTx) holderOf(bedID string) (*models.Tenant, error) {
	var t models.Tenant
	err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("bed_id = ?", bedID).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, classifyDBError(err, "holder of bed "+bedID)
	}
	if t.ID == "" {
		return nil, nil
	}
	return &t, nil
}

// applyBedTransition moves bed through ev with a compare-and-swap on the
// status and row version it was read with, then re-derives its room.
func (o *occupancyTx) applyBedTransition(bed *models.Bed, ev BedEvent, tenantID string) error {
	to, err := Transition(bed.Status, ev)
	if err != nil {
		return fmt.Errorf("bed %s: %w", bed.ID, err)
	}

	res := o.tx.Model(&models.Bed{}).
		Where("id = ? AND status = ? AND row_version = ?", bed.ID, bed.Status, bed.RowVersion).
		Updates(map[string]interface{}{
			"status":      to,
			"row_version": gorm.Expr("row_version + 1"),
		})
	if res.Error != nil {
		return classifyDBError(res.Error, "update bed "+bed.ID)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: bed %s changed since it was read", utils.ErrConflict, bed.ID)
	}

	from := bed.Status
	bed.Status = to
	bed.RowVersion++

	if err := o.record(models.OccupancyEvent{
		EntityType: models.EntityBed,
		EntityID:   bed.ID,
		PropertyID: bed.PropertyID,
		Event:      string(ev),
		FromStatus: string(from),
		ToStatus:   string(to),
		TenantID:   tenantID,
	}, nil); err != nil {
		return err
	}

	_, err = o.syncRoomStatus(bed.RoomID)
	return err
}

// syncRoomStatus re-derives and persists the room status from its beds.
func (o *occupancyTx) syncRoomStatus(roomID string) (*models.Room, error) {
	room, err := o.lockRoom(roomID)
	if err != nil {
		return nil, err
	}

	var beds []models.Bed
	if err := o.tx.Where("room_id = ?", roomID).Find(&beds).Error; err != nil {
		return nil, classifyDBError(err, "beds of room "+roomID)
	}

	derived := DeriveRoomStatus(room.Status, beds)
	if derived == room.Status {
		return room, nil
	}

	if err := o.tx.Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("status", derived).Error; err != nil {
		return nil, classifyDBError(err, "update room "+roomID)
	}

	from := room.Status
	room.Status = derived
	if err := o.record(models.OccupancyEvent{
		EntityType: models.EntityRoom,
		EntityID:   room.ID,
		PropertyID: room.PropertyID,
		Event:      "cascade",
		FromStatus: string(from),
		ToStatus:   string(derived),
	}, nil); err != nil {
		return nil, err
	}
	return room, nil
}

// bindTenant puts tenant on an Available bed, Occupied when confirmed and
// Reserved otherwise.
func (o *occupancyTx) bindTenant(tenant *models.Tenant, bed *models.Bed, confirmed bool) error {
	if bed.Status != models.BedAvailable {
		return fmt.Errorf("%w: bed %s is %s", utils.ErrConflict, bed.ID, bed.Status)
	}
	if tenant.Assigned() {
		return fmt.Errorf("%w: tenant %s already holds bed %s", utils.ErrConflict, tenant.ID, utils.Val(tenant.BedID))
	}

	ev := EventReserve
	if confirmed {
		ev = EventOccupyDirect
	}
	if err := o.applyBedTransition(bed, ev, tenant.ID); err != nil {
		return err
	}

	assignedAt := o.now
	if err := o.tx.Model(&models.Tenant{}).
		Where("id = ?", tenant.ID).
		Updates(map[string]interface{}{
			"property_id": bed.PropertyID,
			"room_id":     bed.RoomID,
			"bed_id":      bed.ID,
			"assigned_at": assignedAt,
		}).Error; err != nil {
		return classifyDBError(err, "assign tenant "+tenant.ID)
	}

	tenant.PropertyID = utils.StrPtr(bed.PropertyID)
	tenant.RoomID = utils.StrPtr(bed.RoomID)
	tenant.BedID = utils.StrPtr(bed.ID)
	tenant.AssignedAt = &assignedAt
	return nil
}

// releaseTenant frees the bed tenant holds and clears the assignment.
func (o *occupancyTx) releaseTenant(tenant *models.Tenant, bed *models.Bed) error {
	if utils.Val(tenant.BedID) != bed.ID {
		return fmt.Errorf("%w: tenant %s does not hold bed %s", utils.ErrConflict, tenant.ID, bed.ID)
	}
	if err := o.applyBedTransition(bed, EventRelease, tenant.ID); err != nil {
		return err
	}
	if err := o.clearTenantColumns(tenant); err != nil {
		return err
	}
	return nil
}

func (o *occupancyTx) clearTenantColumns(tenant *models.Tenant) error {
	if err := o.tx.Model(&models.Tenant{}).
		Where("id = ?", tenant.ID).
		Updates(map[string]interface{}{
			"property_id": nil,
			"room_id":     nil,
			"bed_id":      nil,
			"assigned_at": nil,
		}).Error; err != nil {
		return classifyDBError(err, "clear tenant "+tenant.ID)
	}
	tenant.PropertyID = nil
	tenant.RoomID = nil
	tenant.BedID = nil
	tenant.AssignedAt = nil
	return nil
}

// cancelPendingRequests closes the open switch request of a tenant that no
// longer holds the bed it was filed from.
func (o *occupancyTx) cancelPendingRequests(tenantID, why string) error {
	var open []models.SwitchRequest
	if err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND status = ?", tenantID, models.SwitchPending).
		Find(&open).Error; err != nil {
		return classifyDBError(err, "pending requests of tenant "+tenantID)
	}
	return o.cancelRequests(open, why)
}

// lockPendingRequests takes the row locks cancelPendingRequests will need,
// for callers that must hold them before locking beds.
func (o *occupancyTx) lockPendingRequests(tenantID string) error {
	var ids []string
	if err := o.tx.Model(&models.SwitchRequest{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND status = ?", tenantID, models.SwitchPending).
		Pluck("id", &ids).Error; err != nil {
		return classifyDBError(err, "pending requests of tenant "+tenantID)
	}
	return nil
}

// cancelRequestsTargeting closes pending requests that ask for one of bedIDs.
func (o *occupancyTx) cancelRequestsTargeting(bedIDs []string, why string) error {
	if len(bedIDs) == 0 {
		return nil
	}
	var open []models.SwitchRequest
	if err := o.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("requested_bed_id IN ? AND status = ?", bedIDs, models.SwitchPending).
		Order("id").
		Find(&open).Error; err != nil {
		return classifyDBError(err, "pending requests for beds")
	}
	return o.cancelRequests(open, why)
}

func (o *occupancyTx) cancelRequests(open []models.SwitchRequest, why string) error {
	for i := range open {
		req := &open[i]
		if err := o.resolveRequest(req, models.SwitchCancelled, map[string]interface{}{}); err != nil {
			return err
		}
		if err := o.record(models.OccupancyEvent{
			EntityType: models.EntitySwitchRequest,
			EntityID:   req.ID,
			PropertyID: req.PropertyID,
			Event:      "cancel",
			FromStatus: string(models.SwitchPending),
			ToStatus:   string(models.SwitchCancelled),
			TenantID:   req.TenantID,
		}, map[string]interface{}{"reason": why}); err != nil {
			return err
		}
	}
	return nil
}

// resolveRequest moves a pending request into a terminal status. The
// status = pending condition makes a second resolution fail instead of
// silently repeating.
func (o *occupancyTx) resolveRequest(req *models.SwitchRequest, to models.SwitchStatus, extra map[string]interface{}) error {
	if req.Status.Terminal() {
		return fmt.Errorf("%w: switch request %s is %s", utils.ErrAlreadyResolved, req.ID, req.Status)
	}

	respondedAt := o.now
	updates := map[string]interface{}{
		"status":        to,
		"response_date": respondedAt,
		"responded_by":  o.actor,
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := o.tx.Model(&models.SwitchRequest{}).
		Where("id = ? AND status = ?", req.ID, models.SwitchPending).
		Updates(updates)
	if res.Error != nil {
		return classifyDBError(res.Error, "resolve switch request "+req.ID)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: switch request %s", utils.ErrAlreadyResolved, req.ID)
	}

	req.Status = to
	req.ResponseDate = &respondedAt
	req.RespondedBy = o.actor
	return nil
}

func (o *occupancyTx) record(ev models.OccupancyEvent, details map[string]interface{}) error {
	ev.Actor = o.actor
	ev.CreatedAt = o.now
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode event details: %w", err)
		}
		ev.Details = datatypes.JSON(raw)
	}
	if err := o.tx.Create(&ev).Error; err != nil {
		return classifyDBError(err, "record occupancy event")
	}
	o.events = append(o.events, ev)
	return nil
}
