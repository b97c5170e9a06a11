package model

import (
	"time"

	"gorm.io/gorm"
)

// CycleStatus is the lifecycle state of a planted cycle.
type CycleStatus string

const (
	CycleGrowing CycleStatus = "growing"
	CycleReady   CycleStatus = "ready"
)

// MaxSlots is the number of growing positions.
const MaxSlots = 2

// PlantInfo is the plant data copied into a cycle at planting time.
type PlantInfo struct {
	Name        string  `gorm:"size:128" json:"name"`
	Description string  `json:"description"`
	TDS         float64 `gorm:"column:tds" json:"tds"`
	HarvestDays int     `json:"harvestDays"`
	Image       string  `json:"image"`
}

// Planted is an active growing cycle occupying one slot.
type Planted struct {
	ID        int64       `gorm:"primaryKey" json:"id"`
	Slot      int         `gorm:"uniqueIndex;not null" json:"slot"`
	Plant     PlantInfo   `gorm:"embedded;embeddedPrefix:plant_" json:"plant"`
	PlantedAt time.Time   `gorm:"not null" json:"plantedAt"`
	HarvestAt time.Time   `gorm:"not null" json:"harvestTime"`
	Status    CycleStatus `gorm:"-" json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// StatusAt derives the lifecycle state from the harvest timestamp.
func (p *Planted) StatusAt(now time.Time) CycleStatus {
	if !now.Before(p.HarvestAt) {
		return CycleReady
	}
	return CycleGrowing
}

// Remaining is the time left until harvest, zero once ready.
func (p *Planted) Remaining(now time.Time) time.Duration {
	if d := p.HarvestAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// AfterFind recomputes Status on every read.
func (p *Planted) AfterFind(tx *gorm.DB) error {
	p.Status = p.StatusAt(time.Now())
	return nil
}

// BeforeSave recomputes Status on every write.
func (p *Planted) BeforeSave(tx *gorm.DB) error {
	p.Status = p.StatusAt(time.Now())
	return nil
}

// ValidSlot reports whether slot names a growing position.
func ValidSlot(slot int) bool {
	return slot >= 1 && slot <= MaxSlots
}
