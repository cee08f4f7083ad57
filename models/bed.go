package models

import (
	"time"

	"gorm.io/gorm"
)

// Bed is the smallest occupiable unit. RowVersion is bumped on every status
// write and used together with the status as the compare-and-swap key.
type Bed struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RoomID     string         `gorm:"column:room_id;type:varchar(64);index;not null" json:"roomId"`
	PropertyID string         `gorm:"column:property_id;type:varchar(64);index;not null" json:"propertyId"`
	Label      string         `gorm:"column:label;type:varchar(50)" json:"label"`
	Position   int            `gorm:"column:position;not null;default:0" json:"position"`
	Price      float64        `gorm:"column:price" json:"price"`
	Status     BedStatus      `gorm:"column:status;type:varchar(20);not null;default:Available;index" json:"status"`
	RowVersion int64          `gorm:"column:row_version;not null;default:1" json:"rowVersion"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
