package service

import (
	"time"

	"diagnostic_assistant/internal/models"
)

// ScanParams starts a scan. Empty fields fall back to the stored vehicle.
type ScanParams struct {
	VIN       string
	ModelCode string
}

// ECUFilter narrows the ECU table.
type ECUFilter struct {
	Status      models.ECUStatus // "" means any
	WithDTCOnly bool             // only units with status DTC_FOUND
}

// LogFilter supports session log filtering by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "CONNECTION", "SCAN", "REFRESH", "STREAM", "ERROR"
	Limit int       // newest N entries; 0 means all
}
