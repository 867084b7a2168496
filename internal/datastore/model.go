package datastore

import (
	"time"
)

// PlateRecord is a single persisted detection event. The store assigns
// ID and DetectedAt at creation time; callers never set them.
type PlateRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PlateNumber   string    `gorm:"index:idx_plate_records_number" json:"plate_number"`
	Region        string    `json:"region"`
	Status        string    `json:"status"`
	DetectionType string    `json:"detection_type"`
	Details       string    `json:"details"`
	Confidence    float64   `json:"confidence"`
	DetectedAt    time.Time `gorm:"index:idx_plate_records_detected_at" json:"detected_at"`
}
