package models

import "time"

// ECUStatus is the diagnostic outcome reported for one control unit.
type ECUStatus string

const (
	ECUStatusUnknown       ECUStatus = "UNKNOWN"
	ECUStatusSuccess       ECUStatus = "SUCCESS"
	ECUStatusDTCFound      ECUStatus = "DTC_FOUND"
	ECUStatusDashboardData ECUStatus = "DASHBOARD_DATA"
)

// Valid reports whether s is one of the known statuses.
func (s ECUStatus) Valid() bool {
	switch s {
	case ECUStatusUnknown, ECUStatusSuccess, ECUStatusDTCFound, ECUStatusDashboardData:
		return true
	}
	return false
}

// ECURecord is the registry entry for one control unit.
type ECURecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Status        ECUStatus `json:"status"`
	DTCCount      int       `json:"dtc_count"`
	IsSpecialUnit bool      `json:"is_special_unit"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// DTCSummary is derived from the registry; it is never stored on its own.
type DTCSummary struct {
	TotalDTCs    int `json:"total_dtcs"`
	TotalECUs    int `json:"total_ecus"`
	ECUsWithDTCs int `json:"ecus_with_dtcs"`
}

// ECUFailure records a per-ECU fetch problem during a refresh or scan.
type ECUFailure struct {
	ECUID   string `json:"ecu_id"`
	Kind    string `json:"kind"` // FETCH_TIMEOUT | FETCH_FAILED | CANCELLED
	Message string `json:"message,omitempty"`
}
