package models

import (
	"time"

	"gorm.io/gorm"
)

type Room struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PropertyID string         `gorm:"column:property_id;type:varchar(64);index;not null" json:"propertyId"`
	Name       string         `gorm:"column:name;type:varchar(100)" json:"name"`
	Capacity   int            `gorm:"column:capacity;not null" json:"capacity"`
	Status     RoomStatus     `gorm:"column:status;type:varchar(20);not null;default:Available" json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Beds is only filled on detail reads, ordered by position.
	Beds []Bed `gorm:"foreignKey:RoomID;references:ID" json:"beds,omitempty"`
}
