package model

import "time"

// Plant is a catalog entry describing a crop and its nutrient target.
type Plant struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;index" json:"name"`
	Description string    `gorm:"not null" json:"description"`
	TDS         float64   `gorm:"column:tds;not null" json:"tds"`
	HarvestDays int       `gorm:"not null" json:"harvestDays"`
	Image       string    `gorm:"not null" json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Info returns the copy of the entry embedded into a planted cycle.
func (p Plant) Info() PlantInfo {
	return PlantInfo{
		Name:        p.Name,
		Description: p.Description,
		TDS:         p.TDS,
		HarvestDays: p.HarvestDays,
		Image:       p.Image,
	}
}
