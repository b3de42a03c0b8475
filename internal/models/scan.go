package models

import "time"

// ScanStatus is the state of a scan run.
type ScanStatus string

const (
	ScanIdle             ScanStatus = "IDLE"
	ScanFetchingIdentity ScanStatus = "FETCHING_IDENTITY"
	ScanScanning         ScanStatus = "SCANNING"
	ScanCompleted        ScanStatus = "COMPLETED"
	ScanFailed           ScanStatus = "FAILED"
	ScanWarning          ScanStatus = "WARNING"
	ScanPartial          ScanStatus = "PARTIAL"
)

// Active reports whether a run in this state blocks another run from starting.
func (s ScanStatus) Active() bool {
	return s == ScanFetchingIdentity || s == ScanScanning
}

// Terminal reports whether the run has finished.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanCompleted, ScanFailed, ScanWarning, ScanPartial:
		return true
	}
	return false
}

// Scan failure and warning reasons.
const (
	ReasonCancelled        = "CANCELLED"
	ReasonLinkLost         = "LINK_LOST"
	ReasonIdentityFailed   = "IDENTITY_FETCH_FAILED"
	ReasonListECUsFailed   = "ECU_LIST_FAILED"
	ReasonNoECUResponded   = "NO_ECU_RESPONDED"
	ReasonRegistryRejected = "REGISTRY_REJECTED"
	ReasonIdentityMismatch = "IDENTITY_MISMATCH"
	ReasonDTCFound         = "DTC_FOUND"
	ReasonECUNoResponse    = "ECU_NO_RESPONSE"
)

// ScanRun is one end-to-end diagnostic attempt. Terminal runs are never mutated.
type ScanRun struct {
	ID         int64           `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
	Status     ScanStatus      `json:"status"`
	Vehicle    VehicleIdentity `json:"vehicle"`
	Confirmed  VehicleIdentity `json:"confirmed,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Summary    DTCSummary      `json:"summary"`
	Failures   []ECUFailure    `json:"failures,omitempty"`
}

// Clone returns a copy that shares no slices with r.
func (r ScanRun) Clone() ScanRun {
	if r.Failures != nil {
		r.Failures = append([]ECUFailure(nil), r.Failures...)
	}
	return r
}
