package models

type BedStatus string

const (
	BedAvailable   BedStatus = "Available"
	BedReserved    BedStatus = "Reserved"
	BedOccupied    BedStatus = "Occupied"
	BedMaintenance BedStatus = "Maintenance"
)

func (s BedStatus) Valid() bool {
	switch s {
	case BedAvailable, BedReserved, BedOccupied, BedMaintenance:
		return true
	}
	return false
}

// Assigned reports whether a bed in this status must be referenced by a tenant.
func (s BedStatus) Assigned() bool {
	return s == BedReserved || s == BedOccupied
}

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "Available"
	RoomOccupied    RoomStatus = "Occupied"
	RoomMaintenance RoomStatus = "Maintenance"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance:
		return true
	}
	return false
}

type SwitchStatus string

const (
	SwitchPending   SwitchStatus = "pending"
	SwitchApproved  SwitchStatus = "approved"
	SwitchRejected  SwitchStatus = "rejected"
	SwitchCancelled SwitchStatus = "cancelled"
)

func (s SwitchStatus) Valid() bool {
	switch s {
	case SwitchPending, SwitchApproved, SwitchRejected, SwitchCancelled:
		return true
	}
	return false
}

// Terminal statuses never change again.
func (s SwitchStatus) Terminal() bool {
	return s == SwitchApproved || s == SwitchRejected || s == SwitchCancelled
}

