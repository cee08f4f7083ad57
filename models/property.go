package models

import (
	"time"

	"gorm.io/gorm"
)

type Property struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OwnerID   string         `gorm:"column:owner_id;type:varchar(64);index" json:"ownerId"`
	Name      string         `gorm:"column:name;type:varchar(150)" json:"name"`
	Address   string         `gorm:"column:address;type:varchar(255)" json:"address"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
