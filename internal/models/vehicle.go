package models

import "time"

// VehicleIdentity identifies the vehicle a scan runs against.
type VehicleIdentity struct {
	VIN       string `json:"vin"`
	ModelCode string `json:"model_code"`
}

// IsZero reports whether neither field is set.
func (v VehicleIdentity) IsZero() bool {
	return v.VIN == "" && v.ModelCode == ""
}

// ConnectionState is the lifecycle state of the vehicle link.
type ConnectionState string

const (
	ConnectionDisconnected  ConnectionState = "DISCONNECTED"
	ConnectionConnecting    ConnectionState = "CONNECTING"
	ConnectionConnected     ConnectionState = "CONNECTED"
	ConnectionDisconnecting ConnectionState = "DISCONNECTING"
)

// VehicleSetup is the technician-entered vehicle plus the outcome of the last run.
type VehicleSetup struct {
	Vehicle       VehicleIdentity `json:"vehicle"`
	LastRunAt     time.Time       `json:"last_run_at,omitempty"`
	LastRunStatus ScanStatus      `json:"last_run_status,omitempty"`
}
