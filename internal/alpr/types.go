// Package alpr implements the plate recognition pipeline: image
// normalization, region extraction, text recognition, confidence gating
// and registry validation.
package alpr

// PlateStatus is the registry standing of a plate.
type PlateStatus string

const (
	StatusValid     PlateStatus = "valid"
	StatusExpired   PlateStatus = "expired"
	StatusSuspended PlateStatus = "suspended"
	StatusOther     PlateStatus = "other"
)

// DetectionType records how a plate entered the system.
type DetectionType string

const (
	DetectionAutomatic DetectionType = "automatic"
	DetectionManual    DetectionType = "manual"
)

// BoundingBox locates a plate region within the source frame, in pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectionResult is a recognizer candidate. It lives only for the duration
// of a single pipeline run.
type DetectionResult struct {
	PlateText   string       `json:"plate_text"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// ValidationResult is the registry's verdict on a plate string.
type ValidationResult struct {
	IsValid bool        `json:"is_valid"`
	Status  PlateStatus `json:"status"`
	Region  string      `json:"region"`
	Details string      `json:"details"`
}

// Result is the outcome of one pipeline run. A run that finds nothing,
// for whatever reason, yields Detected false and zero values elsewhere.
type Result struct {
	Detected    bool        `json:"detected"`
	PlateNumber string      `json:"plate_number,omitempty"`
	Region      string      `json:"region,omitempty"`
	Status      PlateStatus `json:"status,omitempty"`
	Details     string      `json:"details,omitempty"`
	Confidence  float64     `json:"confidence,omitempty"`
}
