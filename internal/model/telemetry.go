package model

import "time"

// Telemetry is a persisted sensor reading. Rows are append-only.
type Telemetry struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	DeviceID    string    `gorm:"size:64;not null;index:idx_telemetry_device_ts,priority:1" json:"deviceId"`
	PH          float64   `gorm:"column:ph;not null" json:"ph"`
	PPM         float64   `gorm:"column:ppm;not null" json:"ppm"`
	Temp        float64   `gorm:"not null" json:"temp"`
	Humidity    *float64  `json:"humidity,omitempty"`
	NutritionOn *bool     `json:"nutritionOn,omitempty"`
	PesticideOn *bool     `json:"pesticideOn,omitempty"`
	TS          time.Time `gorm:"column:ts;not null;index;index:idx_telemetry_device_ts,priority:2,sort:desc" json:"ts"`
}

// TableName keeps the collection name used by existing deployments.
func (Telemetry) TableName() string {
	return "telemetries"
}
