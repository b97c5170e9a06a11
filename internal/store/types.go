package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrSlotOccupied is returned when planting into a slot that already holds a cycle.
	ErrSlotOccupied = errors.New("slot already occupied")
	// ErrInvalidSlot is returned for slot numbers outside 1..MaxSlots.
	ErrInvalidSlot = errors.New("invalid slot")
)

// ControlField names the boolean column of a Control record an actuator drives.
type ControlField string

const (
	FieldPesticide ControlField = "pesticide_on"
	FieldNutrition ControlField = "nutrition_on"
)
