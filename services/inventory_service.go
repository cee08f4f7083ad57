package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

// InventoryService is the authoritative store for the Property -> Room -> Bed
// hierarchy and its statuses.
type InventoryService struct {
	DB     *gorm.DB
	Events Publisher
}

func NewInventoryService(db *gorm.DB, events Publisher) *InventoryService {
	if events == nil {
		events = NopPublisher{}
	}
	return &InventoryService{DB: db, Events: events}
}

type CreatePropertyInput struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

type CreateRoomInput struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Capacity   int    `json:"capacity" validate:"min=1"`
}

type CreateBedInput struct {
	ID       string  `json:"id"`
	RoomID   string  `json:"roomId" validate:"required"`
	Label    string  `json:"label"`
	Position *int    `json:"position"`
	Price    float64 `json:"price" validate:"gte=0"`
}

type SetBedStatusInput struct {
	BedID          string           `json:"bedId" validate:"required"`
	Status         models.BedStatus `json:"status" validate:"required"`
	ExpectedStatus models.BedStatus `json:"expectedStatus" validate:"required"`
	// TenantID names the tenant to bind for reserve/occupy, or the tenant
	// that must hold the reservation for confirmation.
	TenantID string `json:"tenantId"`
	Actor    string `json:"-"`
}

// ----------------------------------------------------
// Reads
// ----------------------------------------------------

// GetAvailableBeds lists the Available beds of a room in position order.
func (s *InventoryService) GetAvailableBeds(ctx context.Context, propertyID, roomID string) ([]models.Bed, error) {
	db := s.DB.WithContext(ctx)

	if _, err := s.getRoomInProperty(db, propertyID, roomID); err != nil {
		return nil, err
	}

	beds := []models.Bed{}
	if err := db.
		Where("room_id = ? AND status = ?", roomID, models.BedAvailable).
		Order("position ASC, id ASC").
		Find(&beds).Error; err != nil {
		return nil, classifyDBError(err, "available beds of room "+roomID)
	}
	return beds, nil
}

func (s *InventoryService) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, classifyDBError(err, "property "+id)
	}
	return &p, nil
}

func (s *InventoryService) ListProperties(ctx context.Context, ownerID string) ([]models.Property, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	list := []models.Property{}
	if err := q.Find(&list).Error; err != nil {
		return nil, classifyDBError(err, "list properties")
	}
	return list, nil
}

// GetRoom returns the room with its beds in position order.
func (s *InventoryService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).
		Preload("Beds", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Where("id = ?", id).
		First(&room).Error; err != nil {
		return nil, classifyDBError(err, "room "+id)
	}
	return &room, nil
}

func (s *InventoryService) ListRooms(ctx context.Context, propertyID string) ([]models.Room, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	rooms := []models.Room{}
	if err := db.
		Preload("Beds", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Where("property_id = ?", propertyID).
		Order("name ASC, id ASC").
		Find(&rooms).Error; err != nil {
		return nil, classifyDBError(err, "rooms of property "+propertyID)
	}
	return rooms, nil
}

func (s *InventoryService) GetBed(ctx context.Context, id string) (*models.Bed, error) {
	var bed models.Bed
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&bed).Error; err != nil {
		return nil, classifyDBError(err, "bed "+id)
	}
	return &bed, nil
}

// ListEvents returns the audit trail of one entity, newest first.
func (s *InventoryService) ListEvents(ctx context.Context, entityType, entityID string) ([]models.OccupancyEvent, error) {
	events := []models.OccupancyEvent{}
	if err := s.DB.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id DESC").
		Find(&events).Error; err != nil {
		return nil, classifyDBError(err, "events of "+entityType+" "+entityID)
	}
	return events, nil
}

// ----------------------------------------------------
// Status writes
// ----------------------------------------------------

// SetBedStatus applies a status change only if the bed is still in
// in.ExpectedStatus. The change must be a legal state-machine move from the
// bed's actual status; tenant bindings are kept in step with the bed.
func (s *InventoryService) SetBedStatus(ctx context.Context, in SetBedStatusInput) (*models.Bed, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Status.Valid() || !in.ExpectedStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown bed status %q/%q", utils.ErrValidation, in.Status, in.ExpectedStatus)
	}

	var out *models.Bed
	err := runInTx(ctx, s.DB, s.Events, in.Actor, func(o *occupancyTx) error {
		tenantID := strings.TrimSpace(in.TenantID)

		// tenants before the bed, like every other writer
		holder, err := o.holderOf(in.BedID)
		if err != nil {
			return err
		}
		var named *models.Tenant
		if tenantID != "" && (holder == nil || holder.ID != tenantID) {
			named, err = o.lockTenant(tenantID)
			if err != nil && !errors.Is(err, utils.ErrNotFound) {
				return err
			}
		}
		if holder != nil && in.Status == models.BedAvailable {
			if err := o.lockPendingRequests(holder.ID); err != nil {
				return err
			}
		}

		bed, err := o.lockBed(in.BedID)
		if err != nil {
			return err
		}
		if bed.Status != in.ExpectedStatus && staleRequest(in.ExpectedStatus, in.Status, bed.Status) {
			return fmt.Errorf("%w: bed %s is %s, expected %s", utils.ErrConflict, bed.ID, bed.Status, in.ExpectedStatus)
		}
		ev, err := EventFor(bed.Status, in.Status)
		if err != nil {
			return fmt.Errorf("bed %s: %w", bed.ID, err)
		}
		if bed.Status != in.ExpectedStatus {
			return fmt.Errorf("%w: bed %s is %s, expected %s", utils.ErrConflict, bed.ID, bed.Status, in.ExpectedStatus)
		}
		current, err := o.holderOf(bed.ID)
		if err != nil {
			return err
		}
		if tenantKey(current) != tenantKey(holder) {
			return fmt.Errorf("%w: bed %s changed hands since it was read", utils.ErrConflict, bed.ID)
		}

		switch ev {
		case EventReserve, EventOccupyDirect:
			if tenantID == "" {
				return fmt.Errorf("%w: tenantId is required to %s a bed", utils.ErrValidation, ev)
			}
			if named == nil {
				return fmt.Errorf("%w: tenant %s", utils.ErrNotFound, tenantID)
			}
			if err := o.bindTenant(named, bed, ev == EventOccupyDirect); err != nil {
				return err
			}

		case EventConfirmOccupancy:
			if holder == nil {
				return fmt.Errorf("%w: bed %s is reserved by nobody", utils.ErrInconsistentState, bed.ID)
			}
			if tenantID != "" && holder.ID != tenantID {
				return fmt.Errorf("%w: reservation of bed %s is held by another tenant", utils.ErrInvalidTransition, bed.ID)
			}
			if err := o.applyBedTransition(bed, ev, holder.ID); err != nil {
				return err
			}

		case EventRelease:
			if holder == nil {
				if err := o.applyBedTransition(bed, ev, ""); err != nil {
					return err
				}
				break
			}
			if err := o.cancelPendingRequests(holder.ID, "bed released"); err != nil {
				return err
			}
			if err := o.releaseTenant(holder, bed); err != nil {
				return err
			}

		case EventMarkMaintenance:
			if holder != nil {
				return fmt.Errorf("%w: bed %s is assigned to tenant %s", utils.ErrInvalidTransition, bed.ID, holder.ID)
			}
			if err := o.applyBedTransition(bed, ev, ""); err != nil {
				return err
			}

		default:
			if err := o.applyBedTransition(bed, ev, ""); err != nil {
				return err
			}
		}

		out = bed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// staleRequest reports whether a caller asking expected -> to lost a race to
// another writer, rather than asking for a move the state machine forbids.
// A bed that picked up a tenant stays unfit for maintenance either way.
func staleRequest(expected, to, actual models.BedStatus) bool {
	ev, err := EventFor(expected, to)
	if err != nil {
		return false
	}
	return !(ev == EventMarkMaintenance && actual.Assigned())
}

func tenantKey(t *models.Tenant) string {
	if t == nil {
		return ""
	}
	return t.ID
}

// SetRoomStatus sets or clears the Maintenance override. Available and
// Occupied are derived from the beds, so asking for the other one is refused.
func (s *InventoryService) SetRoomStatus(ctx context.Context, roomID string, status models.RoomStatus, actor string) (*models.Room, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown room status %q", utils.ErrValidation, status)
	}

	var out *models.Room
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		room, err := o.lockRoom(roomID)
		if err != nil {
			return err
		}
		from := room.Status

		if status == models.RoomMaintenance {
			if from != models.RoomMaintenance {
				if err := o.tx.Model(&models.Room{}).Where("id = ?", roomID).
					Update("status", models.RoomMaintenance).Error; err != nil {
					return classifyDBError(err, "update room "+roomID)
				}
				room.Status = models.RoomMaintenance
				if err := o.record(models.OccupancyEvent{
					EntityType: models.EntityRoom,
					EntityID:   room.ID,
					PropertyID: room.PropertyID,
					Event:      "markMaintenance",
					FromStatus: string(from),
					ToStatus:   string(models.RoomMaintenance),
				}, nil); err != nil {
					return err
				}
			}
			out = room
			return nil
		}

		var beds []models.Bed
		if err := o.tx.Where("room_id = ?", roomID).Find(&beds).Error; err != nil {
			return classifyDBError(err, "beds of room "+roomID)
		}
		derived := DeriveRoomStatus(models.RoomAvailable, beds)
		if derived != status {
			return fmt.Errorf("%w: room %s beds make it %s, not %s", utils.ErrInvalidTransition, roomID, derived, status)
		}

		if from != derived {
			if err := o.tx.Model(&models.Room{}).Where("id = ?", roomID).
				Update("status", derived).Error; err != nil {
				return classifyDBError(err, "update room "+roomID)
			}
			room.Status = derived
			event := "cascade"
			if from == models.RoomMaintenance {
				event = "clearMaintenance"
			}
			if err := o.record(models.OccupancyEvent{
				EntityType: models.EntityRoom,
				EntityID:   room.ID,
				PropertyID: room.PropertyID,
				Event:      event,
				FromStatus: string(from),
				ToStatus:   string(derived),
			}, nil); err != nil {
				return err
			}
		}
		out = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ----------------------------------------------------
// Inventory administration
// ----------------------------------------------------

func (s *InventoryService) CreateProperty(ctx context.Context, in CreatePropertyInput) (*models.Property, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	p := models.Property{
		ID:      strings.TrimSpace(in.ID),
		OwnerID: in.OwnerID,
		Name:    in.Name,
		Address: strings.TrimSpace(in.Address),
	}
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, classifyDBError(err, "create property")
	}
	return &p, nil
}

func (s *InventoryService) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetProperty(ctx, in.PropertyID); err != nil {
		return nil, err
	}
	room := models.Room{
		ID:         strings.TrimSpace(in.ID),
		PropertyID: in.PropertyID,
		Name:       in.Name,
		Capacity:   in.Capacity,
		Status:     models.RoomAvailable,
	}
	if room.ID == "" {
		room.ID = utils.NewID()
	}
	if err := s.DB.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, classifyDBError(err, "create room")
	}
	return &room, nil
}

// CreateBed adds an Available bed to a room without exceeding its capacity.
func (s *InventoryService) CreateBed(ctx context.Context, in CreateBedInput, actor string) (*models.Bed, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var out *models.Bed
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		room, err := o.lockRoom(in.RoomID)
		if err != nil {
			return err
		}

		var count int64
		if err := o.tx.Model(&models.Bed{}).Where("room_id = ?", room.ID).Count(&count).Error; err != nil {
			return classifyDBError(err, "count beds of room "+room.ID)
		}
		if int(count) >= room.Capacity {
			return fmt.Errorf("%w: room %s is at capacity (%d beds)", utils.ErrConflict, room.ID, room.Capacity)
		}

		bed := models.Bed{
			ID:         strings.TrimSpace(in.ID),
			RoomID:     room.ID,
			PropertyID: room.PropertyID,
			Label:      strings.TrimSpace(in.Label),
			Position:   int(count),
			Price:      in.Price,
			Status:     models.BedAvailable,
			RowVersion: 1,
		}
		if in.Position != nil {
			bed.Position = *in.Position
		}
		if bed.ID == "" {
			bed.ID = utils.NewID()
		}
		if err := o.tx.Create(&bed).Error; err != nil {
			return classifyDBError(err, "create bed")
		}
		out = &bed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRoom removes a room and its beds. Rooms with a reserved or occupied
// bed are refused; their tenants have to move out first.
func (s *InventoryService) DeleteRoom(ctx context.Context, roomID, actor string) error {
	return runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		var bedIDs []string
		if err := o.tx.Model(&models.Bed{}).
			Where("room_id = ?", roomID).
			Order("id").
			Pluck("id", &bedIDs).Error; err != nil {
			return classifyDBError(err, "beds of room "+roomID)
		}

		// no pending request may point at a deleted bed
		if err := o.cancelRequestsTargeting(bedIDs, "room deleted"); err != nil {
			return err
		}
		beds, err := o.lockBeds(bedIDs...)
		if err != nil {
			return err
		}
		room, err := o.lockRoom(roomID)
		if err != nil {
			return err
		}

		held := 0
		for _, bed := range beds {
			if bed.Status.Assigned() {
				held++
			}
		}
		if held > 0 {
			return fmt.Errorf("%w: room %s still has %d assigned bed(s)", utils.ErrConflict, roomID, held)
		}

		if err := o.tx.Where("room_id = ?", roomID).Delete(&models.Bed{}).Error; err != nil {
			return classifyDBError(err, "delete beds of room "+roomID)
		}
		if err := o.tx.Delete(room).Error; err != nil {
			return classifyDBError(err, "delete room "+roomID)
		}
		return o.record(models.OccupancyEvent{
			EntityType: models.EntityRoom,
			EntityID:   room.ID,
			PropertyID: room.PropertyID,
			Event:      "delete",
			FromStatus: string(room.Status),
		}, nil)
	})
}

func (s *InventoryService) getRoomInProperty(db *gorm.DB, propertyID, roomID string) (*models.Room, error) {
	var p models.Property
	if err := db.Where("id = ?", propertyID).First(&p).Error; err != nil {
		return nil, classifyDBError(err, "property "+propertyID)
	}
	var room models.Room
	if err := db.Where("id = ? AND property_id = ?", roomID, propertyID).First(&room).Error; err != nil {
		return nil, classifyDBError(err, "room "+roomID+" in property "+propertyID)
	}
	return &room, nil
}
