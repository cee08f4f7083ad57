package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

// TenantService tracks which tenant is bound to which bed.
type TenantService struct {
	DB     *gorm.DB
	Events Publisher
}

func NewTenantService(db *gorm.DB, events Publisher) *TenantService {
	if events == nil {
		events = NopPublisher{}
	}
	return &TenantService{DB: db, Events: events}
}

type CreateTenantInput struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type AssignInput struct {
	TenantID   string `json:"tenantId" validate:"required"`
	PropertyID string `json:"propertyId" validate:"required"`
	RoomID     string `json:"roomId" validate:"required"`
	BedID      string `json:"bedId" validate:"required"`
	// Confirmed occupies the bed right away; otherwise it is only reserved.
	Confirmed bool   `json:"confirmed"`
	Actor     string `json:"-"`
}

func (s *TenantService) CreateTenant(ctx context.Context, in CreateTenantInput) (*models.Tenant, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	t := models.Tenant{
		ID:    strings.TrimSpace(in.ID),
		Name:  in.Name,
		Email: in.Email,
		Phone: strings.TrimSpace(in.Phone),
	}
	if t.ID == "" {
		t.ID = utils.NewID()
	}
	if err := s.DB.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, classifyDBError(err, "create tenant")
	}
	return &t, nil
}

func (s *TenantService) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, classifyDBError(err, "tenant "+id)
	}
	return &t, nil
}

// ListTenants lists tenants, optionally only those assigned in a property.
func (s *TenantService) ListTenants(ctx context.Context, propertyID string) ([]models.Tenant, error) {
	q := s.DB.WithContext(ctx).Order("name ASC, id ASC")
	if propertyID != "" {
		q = q.Where("property_id = ?", propertyID)
	}
	list := []models.Tenant{}
	if err := q.Find(&list).Error; err != nil {
		return nil, classifyDBError(err, "list tenants")
	}
	return list, nil
}

// AssignTenant binds an unassigned tenant to an Available bed. Nothing is
// written unless both the bed and the tenant record change.
func (s *TenantService) AssignTenant(ctx context.Context, in AssignInput) (*models.Tenant, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var out *models.Tenant
	err := runInTx(ctx, s.DB, s.Events, in.Actor, func(o *occupancyTx) error {
		tenant, err := o.lockTenant(in.TenantID)
		if err != nil {
			return err
		}
		bed, err := o.lockBed(in.BedID)
		if err != nil {
			return err
		}
		if bed.RoomID != in.RoomID || bed.PropertyID != in.PropertyID {
			return fmt.Errorf("%w: bed %s in room %s of property %s", utils.ErrNotFound, in.BedID, in.RoomID, in.PropertyID)
		}

		if err := o.bindTenant(tenant, bed, in.Confirmed); err != nil {
			return err
		}
		out = tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmOccupancy turns the tenant's reservation into occupancy.
func (s *TenantService) ConfirmOccupancy(ctx context.Context, tenantID, actor string) (*models.Tenant, error) {
	var out *models.Tenant
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		tenant, err := o.lockTenant(tenantID)
		if err != nil {
			return err
		}
		if !tenant.Assigned() {
			return fmt.Errorf("%w: tenant %s has no reservation", utils.ErrValidation, tenantID)
		}
		bed, err := o.lockBed(*tenant.BedID)
		if err != nil {
			return err
		}
		if err := o.applyBedTransition(bed, EventConfirmOccupancy, tenant.ID); err != nil {
			return err
		}
		out = tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClearAssignment moves the tenant out: the bed goes back to Available and
// any open switch request is cancelled. Unassigned tenants are a no-op.
func (s *TenantService) ClearAssignment(ctx context.Context, tenantID, actor string) (*models.Tenant, error) {
	var out *models.Tenant
	err := runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		tenant, err := o.lockTenant(tenantID)
		if err != nil {
			return err
		}
		if err := s.moveOut(o, tenant); err != nil {
			return err
		}
		out = tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTenant releases the tenant's bed and removes the record. The bed
// itself is never deleted with the tenant.
func (s *TenantService) DeleteTenant(ctx context.Context, tenantID, actor string) error {
	return runInTx(ctx, s.DB, s.Events, actor, func(o *occupancyTx) error {
		tenant, err := o.lockTenant(tenantID)
		if err != nil {
			return err
		}
		if err := s.moveOut(o, tenant); err != nil {
			return err
		}
		if err := o.tx.Delete(tenant).Error; err != nil {
			return classifyDBError(err, "delete tenant "+tenantID)
		}
		return o.record(models.OccupancyEvent{
			EntityType: models.EntityTenant,
			EntityID:   tenant.ID,
			Event:      "delete",
		}, nil)
	})
}

func (s *TenantService) moveOut(o *occupancyTx, tenant *models.Tenant) error {
	if err := o.cancelPendingRequests(tenant.ID, "tenant moved out"); err != nil {
		return err
	}
	if !tenant.Assigned() {
		return nil
	}

	bed, err := o.lockBed(*tenant.BedID)
	if err != nil {
		return err
	}
	return o.releaseTenant(tenant, bed)
}
