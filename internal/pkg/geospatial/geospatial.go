package geospatial

import "math"

const (
	earthRadiusMeters = 6371000.0

	// walkingSpeedMPM assumes a 5 km/h pace.
	walkingSpeedMPM = 5000.0 / 60.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// BearingDegrees returns the initial bearing from the first point to the
// second, normalized to [0, 360).
func BearingDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	φ1, φ2 := toRad(lat1), toRad(lat2)
	dLng := toRad(lng2 - lng1)

	x := math.Sin(dLng) * math.Cos(φ2)
	y := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dLng)

	deg := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

var cardinals = [8]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
}

// Cardinal maps a bearing to one of the 8 compass directions.
func Cardinal(bearingDegrees float64) string {
	idx := int(math.Round(bearingDegrees/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return cardinals[idx]
}

// WalkingMinutes estimates walking time for a distance at 5 km/h.
func WalkingMinutes(distanceMeters float64) float64 {
	return distanceMeters / walkingSpeedMPM
}

// Within reports whether two points lie within thresholdMeters of each other.
func Within(lat1, lng1, lat2, lng2, thresholdMeters float64) bool {
	return Haversine(lat1, lng1, lat2, lng2) <= thresholdMeters
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
