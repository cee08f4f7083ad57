package models

import "time"

type SwitchRequest struct {
	ID              string       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TenantID        string       `gorm:"column:tenant_id;type:varchar(64);index;not null" json:"tenantId"`
	PropertyID      string       `gorm:"column:property_id;type:varchar(64);index;not null" json:"propertyId"`
	CurrentRoomID   string       `gorm:"column:current_room_id;type:varchar(64)" json:"currentRoomId"`
	CurrentBedID    string       `gorm:"column:current_bed_id;type:varchar(64)" json:"currentBedId"`
	RequestedRoomID string       `gorm:"column:requested_room_id;type:varchar(64)" json:"requestedRoomId"`
	RequestedBedID  string       `gorm:"column:requested_bed_id;type:varchar(64);index" json:"requestedBedId"`
	Status          SwitchStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	Reason          string       `gorm:"column:reason;type:text" json:"reason,omitempty"`
	RejectionReason string       `gorm:"column:rejection_reason;type:text" json:"rejectionReason,omitempty"`
	RequestDate     time.Time    `gorm:"column:request_date;not null;index" json:"requestDate"`
	ResponseDate    *time.Time   `gorm:"column:response_date" json:"responseDate,omitempty"`
	RespondedBy     string       `gorm:"column:responded_by;type:varchar(64)" json:"respondedBy,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}
