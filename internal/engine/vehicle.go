package engine

import (
	"fmt"
	"strings"

	"diagnostic_assistant/internal/models"
)

// VINLength is the length of a valid vehicle identification number.
const VINLength = 17

// NormalizeVehicle trims and uppercases vin and model and validates them.
// A VIN is 17 characters of A-Z and 0-9, excluding I, O and Q.
func NormalizeVehicle(vin, model string) (models.VehicleIdentity, error) {
	v := models.VehicleIdentity{
		VIN:       strings.ToUpper(strings.TrimSpace(vin)),
		ModelCode: strings.ToUpper(strings.TrimSpace(model)),
	}
	if v.VIN == "" {
		return v, newError(ErrInvalidVehicleIdentity, "vin", fmt.Errorf("vin is required"))
	}
	if v.ModelCode == "" {
		return v, newError(ErrInvalidVehicleIdentity, "model_code", fmt.Errorf("model code is required"))
	}
	if len(v.VIN) != VINLength {
		return v, newError(ErrInvalidVehicleIdentity, "vin", fmt.Errorf("want %d characters, got %d", VINLength, len(v.VIN)))
	}
	for _, c := range v.VIN {
		switch {
		case c == 'I' || c == 'O' || c == 'Q':
			return v, newError(ErrInvalidVehicleIdentity, "vin", fmt.Errorf("character %q not allowed", c))
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
		default:
			return v, newError(ErrInvalidVehicleIdentity, "vin", fmt.Errorf("character %q not allowed", c))
		}
	}
	return v, nil
}

// SameVehicle compares two identities case-insensitively.
func SameVehicle(a, b models.VehicleIdentity) bool {
	return strings.EqualFold(strings.TrimSpace(a.VIN), strings.TrimSpace(b.VIN)) &&
		strings.EqualFold(strings.TrimSpace(a.ModelCode), strings.TrimSpace(b.ModelCode))
}
