package catalog

import "diagnostic_assistant/internal/models"

// Default returns the built-in catalog of the reference vehicle.
func Default() *Catalog {
	c := &Catalog{
		ECUs: []ECU{
			{ID: "EMS", Name: "612_T GDI", Description: "Engine Management System"},
			{ID: "IS_SM", Name: "ARTCORE", Description: "Information System Smart Module"},
			{ID: "TCU", Name: "TCU", Description: "Transmission Control Unit"},
			{ID: "ESP", Name: "ESP", Description: "Electronic Stability Program"},
			{ID: "PKE", Name: "PKE", Description: "Passive Keyless Entry"},
			{ID: "ESCL", Name: "ESCL", Description: "Electronic Steering Column Lock"},
			{ID: "SRS", Name: "SRS", Description: "Supplemental Restraint System"},
			{ID: "MBFM", Name: "MBFM", Description: "Multi-Body Framework Module"},
			{ID: "FCM", Name: "FCM", Description: "Front Camera Module"},
			{ID: "FRM", Name: "FRM", Description: "Front Radar Module"},
			{ID: "SVS", Name: "Dashboard Data", Description: "Service Vehicle Soon", Special: true},
			{ID: "EPS", Name: "EPS", Description: "Electric Power Steering"},
			{ID: "WLC", Name: "WLC", Description: "Wireless Charging"},
			{ID: "MGM", Name: "MGM", Description: "Media Gateway Module"},
			{ID: "DATC", Name: "DATC", Description: "Digital Automatic Temperature Control"},
		},
		Sensors: []Threshold{
			{Channel: models.ChannelBatteryVoltage, Unit: "V", WarnLow: 12.0, WarnHigh: 14.8, ErrorLow: 11.0, ErrorHigh: 15.5},
			{Channel: models.ChannelEngineRPM, Unit: "rpm", WarnHigh: 6000, ErrorHigh: 6800},
			{Channel: models.ChannelCoolantTemp, Unit: "°C", WarnHigh: 105, ErrorHigh: 115},
			{Channel: models.ChannelOilPressure, Unit: "kPa", WarnLow: 100, ErrorLow: 70},
			{Channel: models.ChannelFuelPressure, Unit: "kPa", WarnLow: 280, WarnHigh: 420, ErrorLow: 230, ErrorHigh: 480},
			{Channel: models.ChannelIntakeTemp, Unit: "°C", WarnHigh: 60, ErrorHigh: 75},
			{Channel: models.ChannelVehicleSpeed, Unit: "km/h"},
			{Channel: models.ChannelOdometer, Unit: "km"},
			{Channel: models.ChannelIgnitionCounter, Unit: "count"},
		},
	}
	if err := c.index(); err != nil {
		panic(err) // static table
	}
	return c
}
