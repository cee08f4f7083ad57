package services

import (
	"fmt"

	"occupancy-backend/models"
	"occupancy-backend/utils"
)

type BedEvent string

const (
	EventReserve          BedEvent = "reserve"
	EventConfirmOccupancy BedEvent = "confirmOccupancy"
	EventOccupyDirect     BedEvent = "occupyDirect"
	EventRelease          BedEvent = "release"
	EventMarkMaintenance  BedEvent = "markMaintenance"
	EventClearMaintenance BedEvent = "clearMaintenance"
)

type bedTransition struct {
	From  models.BedStatus
	Event BedEvent
	To    models.BedStatus
}

// bedTransitions is the complete list of legal bed moves. Every write of
// beds.status goes through it.
var bedTransitions = []bedTransition{
	{From: models.BedAvailable, Event: EventReserve, To: models.BedReserved},
	{From: models.BedReserved, Event: EventConfirmOccupancy, To: models.BedOccupied},
	{From: models.BedAvailable, Event: EventOccupyDirect, To: models.BedOccupied},
	{From: models.BedOccupied, Event: EventRelease, To: models.BedAvailable},
	{From: models.BedReserved, Event: EventRelease, To: models.BedAvailable},
	{From: models.BedAvailable, Event: EventMarkMaintenance, To: models.BedMaintenance},
	{From: models.BedMaintenance, Event: EventClearMaintenance, To: models.BedAvailable},
}

// Transition returns the status reached by applying ev to a bed in from.
func Transition(from models.BedStatus, ev BedEvent) (models.BedStatus, error) {
	for _, tr := range bedTransitions {
		if tr.From == from && tr.Event == ev {
			return tr.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not allowed from %s", utils.ErrInvalidTransition, ev, from)
}

// CanApply is the read-only form of Transition.
func CanApply(from models.BedStatus, ev BedEvent) bool {
	_, err := Transition(from, ev)
	return err == nil
}

// EventFor resolves a requested target status into the event that reaches
// it from the current status.
func EventFor(from, to models.BedStatus) (BedEvent, error) {
	for _, tr := range bedTransitions {
		if tr.From == from && tr.To == to {
			return tr.Event, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", utils.ErrInvalidTransition, from, to)
}

// DeriveRoomStatus applies the cascade rule: a room is Occupied iff at least
// one of its beds is Occupied. Maintenance is an override and is kept.
func DeriveRoomStatus(current models.RoomStatus, beds []models.Bed) models.RoomStatus {
	if current == models.RoomMaintenance {
		return models.RoomMaintenance
	}
	for _, b := range beds {
		if b.Status == models.BedOccupied {
			return models.RoomOccupied
		}
	}
	return models.RoomAvailable
}
