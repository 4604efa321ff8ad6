package models

import "time"

// Setting is an arbitrary key-value installation setting (remitter mode,
// reporting credential reference, reporting start-date watermark, base address).
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
