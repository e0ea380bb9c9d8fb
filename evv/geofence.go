package evv

import "math"

// DefaultGeofenceRadiusM is used when a client address has no radius configured.
// Policy values between 150 and 500 metres exist in the field; 300 is the default
// until product settles on a single number.
const DefaultGeofenceRadiusM = 300.0

const earthRadiusM = 6371000.0

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// GeofenceResult is the outcome of checking a clock event against a client address.
// An outside result is a compliance finding, never grounds to reject the event.
type GeofenceResult struct {
	DistanceMeters float64
	WithinRadius   bool
}

// CheckGeofence computes the great-circle distance between the device position and
// the client's registered address and compares it against the allowed radius.
func CheckGeofence(point, center Coordinate, radiusMeters float64) (GeofenceResult, error) {
	if err := validateCoordinate("gps", point); err != nil {
		return GeofenceResult{}, err
	}
	if err := validateCoordinate("client address", center); err != nil {
		return GeofenceResult{}, err
	}
	if radiusMeters <= 0 {
		return GeofenceResult{}, &ValidationError{Field: "radius", Reason: "must be positive"}
	}

	d := haversineMeters(point, center)
	return GeofenceResult{
		DistanceMeters: d,
		WithinRadius:   d <= radiusMeters,
	}, nil
}

func validateCoordinate(field string, c Coordinate) error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return &ValidationError{Field: field, Reason: "latitude out of range"}
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return &ValidationError{Field: field, Reason: "longitude out of range"}
	}
	return nil
}

func haversineMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}
