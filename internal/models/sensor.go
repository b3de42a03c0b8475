package models

import "time"

// SensorChannel names one live telemetry signal.
type SensorChannel string

const (
	ChannelBatteryVoltage  SensorChannel = "BATTERY_VOLTAGE"
	ChannelEngineRPM       SensorChannel = "ENGINE_RPM"
	ChannelCoolantTemp     SensorChannel = "COOLANT_TEMP"
	ChannelOilPressure     SensorChannel = "OIL_PRESSURE"
	ChannelFuelPressure    SensorChannel = "FUEL_PRESSURE"
	ChannelIntakeTemp      SensorChannel = "INTAKE_TEMP"
	ChannelVehicleSpeed    SensorChannel = "VEHICLE_SPEED"
	ChannelOdometer        SensorChannel = "ODOMETER"
	ChannelIgnitionCounter SensorChannel = "IGNITION_COUNTER"
)

// SensorStatus classifies a sampled value against its thresholds.
type SensorStatus string

const (
	SensorNormal  SensorStatus = "NORMAL"
	SensorWarning SensorStatus = "WARNING"
	SensorError   SensorStatus = "ERROR"
)

// SensorSnapshot is one published reading. Consumers always receive copies.
type SensorSnapshot struct {
	Channel   SensorChannel `json:"channel"`
	Value     float64       `json:"value"`
	Unit      string        `json:"unit"`
	Status    SensorStatus  `json:"status"`
	SampledAt time.Time     `json:"sampled_at"`
}
