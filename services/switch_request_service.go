package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

// SwitchRequestService runs the room-switch workflow: a tenant asks to
// move to another bed, a manager approves or rejects.
type SwitchRequestService struct {
	DB     *gorm.DB
	Events Publisher
}

func NewSwitchRequestService(db *gorm.DB, events Publisher) *SwitchRequestService {
	if events == nil {
		events = NopPublisher{}
	}
	return &SwitchRequestService{DB: db, Events: events}
}

type CreateSwitchInput struct {
	TenantID        string `json:"tenantId" validate:"required"`
	RequestedRoomID string `json:"requestedRoomId" validate:"required"`
	RequestedBedID  string `json:"requestedBedId" validate:"required"`
	Reason          string `json:"reason" validate:"max=2000"`
	Actor           string `json:"-"`
}

// SwitchRequestFilter narrows List. Zero values do not filter; From and To
// bound the request date inclusively.
type SwitchRequestFilter struct {
	Status     models.SwitchStatus
	PropertyID string
	TenantID   string
	From       *time.Time
	To         *time.Time
}

// CreateRequest files a pending request from the tenant's current bed to a
// bed that is Available right now.
func (s *SwitchRequestService) CreateRequest(ctx context.Context, in CreateSwitchInput) (*models.SwitchRequest, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var out *models.SwitchRequest
	err := runInTx(ctx, s.DB, s.Events, in.Actor, func(o *occupancyTx) error {
		tenant, err := o.lockTenant(in.TenantID)
		if err != nil {
			return err
		}
		if !tenant.Assigned() {
			return fmt.Errorf("%w: tenant %s has no bed to switch from", utils.ErrValidation, tenant.ID)
		}

		var open int64
		if err := o.tx.Model(&models.SwitchRequest{}).
			Where("tenant_id = ? AND status = ?", tenant.ID, models.SwitchPending).
			Count(&open).Error; err != nil {
			return classifyDBError(err, "open requests of tenant "+tenant.ID)
		}
		if open > 0 {
			return fmt.Errorf("%w: tenant %s already has an open switch request", utils.ErrConflict, tenant.ID)
		}

		var target models.Bed
		if err := o.tx.Where("id = ?", in.RequestedBedID).First(&target).Error; err != nil {
			return classifyDBError(err, "bed "+in.RequestedBedID)
		}
		if err := checkSwitchTarget(tenant, &target, in.RequestedRoomID); err != nil {
			return err
		}

		req := models.SwitchRequest{
			ID:              utils.NewID(),
			TenantID:        tenant.ID,
			PropertyID:      utils.Val(tenant.PropertyID),
			CurrentRoomID:   utils.Val(tenant.RoomID),
			CurrentBedID:    utils.Val(tenant.BedID),
			RequestedRoomID: target.RoomID,
			RequestedBedID:  target.ID,
			Status:          models.SwitchPending,
			Reason:          strings.TrimSpace(in.Reason),
			RequestDate:     o.now,
		}
		if err := o.tx.Create(&req).Error; err != nil {
			return classifyDBError(err, "create switch request")
		}

		if err := o.record(models.OccupancyEvent{
			EntityType: models.EntitySwitchRequest,
			EntityID:   req.ID,
			PropertyID: req.PropertyID,
			Event:      "create",
			ToStatus:   string(models.SwitchPending),
			TenantID:   tenant.ID,
		}, map[string]interface{}{
			"currentBedId":   req.CurrentBedID,
			"requestedBedId": req.RequestedBedID,
		}); err != nil {
			return err
		}
		out = &req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkSwitchTarget accepts only an Available bed, other than the current
// one, in the requested room of the tenant's property.
func checkSwitchTarget(tenant *models.Tenant, target *models.Bed, requestedRoomID string) error {
	if target.RoomID != requestedRoomID {
		return fmt.Errorf("%w: bed %s is not in room %s", utils.ErrInvalidTarget, target.ID, requestedRoomID)
	}
	if target.PropertyID != utils.Val(tenant.PropertyID) {
		return fmt.Errorf("%w: bed %s is in another property", utils.ErrInvalidTarget, target.ID)
	}
	if target.ID == utils.Val(tenant.BedID) {
		return fmt.Errorf("%w: bed %s is the tenant's current bed", utils.ErrInvalidTarget, target.ID)
	}
	if !CanApply(target.Status, EventOccupyDirect) {
		return fmt.Errorf("%w: bed %s is %s", utils.ErrInvalidTarget, target.ID, target.Status)
	}
	return nil
}

// Approve moves the tenant in one transaction: the current bed is released
// and the requested bed occupied. If the requested bed is gone the whole
// unit rolls back, so the tenant keeps the old bed and the request stays
// pending.
func (s *SwitchRequestService) Approve(ctx context.Context, requestID, actor string) (*models.SwitchRequest, error) {
	var out *models.SwitchRequest
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		var peek models.SwitchRequest
		if err := o.tx.Where("id = ?", requestID).First(&peek).Error; err != nil {
			return classifyDBError(err, "switch request "+requestID)
		}
		// tenant before request, the order moveOut takes them in
		tenant, tenantErr := o.lockTenant(peek.TenantID)
		if tenantErr != nil && !errors.Is(tenantErr, utils.ErrNotFound) {
			return tenantErr
		}
		req, err := o.lockSwitchRequest(requestID)
		if err != nil {
			return err
		}
		if err := o.resolveRequest(req, models.SwitchApproved, nil); err != nil {
			return err
		}
		if tenantErr != nil {
			return tenantErr
		}
		if utils.Val(tenant.BedID) != req.CurrentBedID {
			return fmt.Errorf("%w: tenant %s no longer holds bed %s", utils.ErrConflict, tenant.ID, req.CurrentBedID)
		}

		beds, err := o.lockBeds(req.CurrentBedID, req.RequestedBedID)
		if errors.Is(err, utils.ErrNotFound) && !o.bedExists(req.RequestedBedID) {
			return fmt.Errorf("%w: requested bed %s no longer exists", utils.ErrInvalidTarget, req.RequestedBedID)
		}
		if err != nil {
			return err
		}
		current, target := beds[req.CurrentBedID], beds[req.RequestedBedID]
		if err := o.lockRooms(current.RoomID, target.RoomID); err != nil {
			return err
		}

		if err := o.releaseTenant(tenant, current); err != nil {
			return err
		}
		if err := o.bindTenant(tenant, target, true); err != nil {
			if errors.Is(err, utils.ErrConflict) {
				return fmt.Errorf("%w: requested bed %s is no longer available", utils.ErrInvalidTarget, target.ID)
			}
			return err
		}

		if err := o.record(models.OccupancyEvent{
			EntityType: models.EntitySwitchRequest,
			EntityID:   req.ID,
			PropertyID: req.PropertyID,
			Event:      "approve",
			FromStatus: string(models.SwitchPending),
			ToStatus:   string(models.SwitchApproved),
			TenantID:   tenant.ID,
		}, map[string]interface{}{
			"fromBedId": req.CurrentBedID,
			"toBedId":   req.RequestedBedID,
		}); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reject closes a pending request with a reason. Inventory is untouched.
func (s *SwitchRequestService) Reject(ctx context.Context, requestID, reason, actor string) (*models.SwitchRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", utils.ErrValidation)
	}

	var out *models.SwitchRequest
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		req, err := o.lockSwitchRequest(requestID)
		if err != nil {
			return err
		}
		if err := o.resolveRequest(req, models.SwitchRejected, map[string]interface{}{
			"rejection_reason": reason,
		}); err != nil {
			return err
		}
		req.RejectionReason = reason

		if err := o.record(models.OccupancyEvent{
			EntityType: models.EntitySwitchRequest,
			EntityID:   req.ID,
			PropertyID: req.PropertyID,
			Event:      "reject",
			FromStatus: string(models.SwitchPending),
			ToStatus:   string(models.SwitchRejected),
			TenantID:   req.TenantID,
		}, map[string]interface{}{"reason": reason}); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel abandons a request that is still pending.
func (s *SwitchRequestService) Cancel(ctx context.Context, requestID, actor string) (*models.SwitchRequest, error) {
	var out *models.SwitchRequest
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		req, err := o.lockSwitchRequest(requestID)
		if err != nil {
			return err
		}
		if err := o.resolveRequest(req, models.SwitchCancelled, nil); err != nil {
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
		}, nil); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SwitchRequestService) Get(ctx context.Context, id string) (*models.SwitchRequest, error) {
	var req models.SwitchRequest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, classifyDBError(err, "switch request "+id)
	}
	return &req, nil
}

// List returns matching requests, newest first.
func (s *SwitchRequestService) List(ctx context.Context, f SwitchRequestFilter) ([]models.SwitchRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", utils.ErrValidation, f.Status)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("%w: date range ends before it starts", utils.ErrValidation)
	}

	q := s.DB.WithContext(ctx).Model(&models.SwitchRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PropertyID != "" {
		q = q.Where("property_id = ?", f.PropertyID)
	}
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.From != nil {
		q = q.Where("request_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("request_date <= ?", f.To.UTC())
	}

	list := []models.SwitchRequest{}
	if err := q.Order("request_date DESC, id DESC").Find(&list).Error; err != nil {
		return nil, classifyDBError(err, "list switch requests")
	}
	return list, nil
}
