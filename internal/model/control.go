package model

import "time"

// Control is the actuator state of a single device, polled by the device.
type Control struct {
	DeviceID    string    `gorm:"primaryKey;size:64" json:"deviceId"`
	PesticideOn bool      `gorm:"not null" json:"pesticideOn"`
	NutritionOn bool      `gorm:"not null" json:"nutritionOn"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}
