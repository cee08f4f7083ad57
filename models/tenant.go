package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant references (does not own) the bed it is bound to. The assignment
// columns are either all set or all null.
type Tenant struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name       string         `gorm:"column:name;type:varchar(150)" json:"name"`
	Email      string         `gorm:"column:email;type:varchar(150)" json:"email,omitempty"`
	Phone      string         `gorm:"column:phone;type:varchar(50)" json:"phone,omitempty"`
	PropertyID *string        `gorm:"column:property_id;type:varchar(64);index" json:"propertyId"`
	RoomID     *string        `gorm:"column:room_id;type:varchar(64);index" json:"roomId"`
	BedID      *string        `gorm:"column:bed_id;type:varchar(64);uniqueIndex" json:"bedId"`
	AssignedAt *time.Time     `gorm:"column:assigned_at" json:"assignedAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) Assigned() bool {
	return t.BedID != nil && *t.BedID != ""
}
