package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EntityBed           = "bed"
	EntityRoom          = "room"
	EntityTenant        = "tenant"
	EntitySwitchRequest = "switch_request"
)

// OccupancyEvent is an append-only record of one accepted transition. It is
// written inside the same transaction as the change it describes.
type OccupancyEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EntityType string         `gorm:"column:entity_type;type:varchar(32);index:idx_event_entity" json:"entityType"`
	EntityID   string         `gorm:"column:entity_id;type:varchar(64);index:idx_event_entity" json:"entityId"`
	PropertyID string         `gorm:"column:property_id;type:varchar(64);index" json:"propertyId,omitempty"`
	Event      string         `gorm:"column:event;type:varchar(50)" json:"event"`
	FromStatus string         `gorm:"column:from_status;type:varchar(20)" json:"fromStatus,omitempty"`
	ToStatus   string         `gorm:"column:to_status;type:varchar(20)" json:"toStatus,omitempty"`
	TenantID   string         `gorm:"column:tenant_id;type:varchar(64)" json:"tenantId,omitempty"`
	Actor      string         `gorm:"column:actor;type:varchar(64)" json:"actor,omitempty"`
	Details    datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}
