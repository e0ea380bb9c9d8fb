package evv

import "time"

// DefaultUnitMinutes is the standard payer billing increment.
const DefaultUnitMinutes = 15

// BillableUnits converts a clock-in/clock-out interval into whole billing units,
// rounding up to the next unit. A zero-length interval bills zero units and a
// longer interval never yields fewer units.
func BillableUnits(clockIn, clockOut time.Time, unitMinutes int) (int, error) {
	if unitMinutes <= 0 {
		return 0, &ValidationError{Field: "unitMinutes", Reason: "must be positive"}
	}
	d := clockOut.Sub(clockIn)
	if d < 0 {
		return 0, &ValidationError{Field: "clockOut", Reason: "precedes clock-in"}
	}

	unit := time.Duration(unitMinutes) * time.Minute
	units := int((d + unit - 1) / unit)
	return units, nil
}
