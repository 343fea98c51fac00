package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// DistanceMeters calculates the great-circle distance between two points in meters
// using the Haversine formula. The result is exactly symmetric in its arguments
// and zero for identical points.
func DistanceMeters(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)

	lat1, lat2 := p1.Lat.Radians(), p2.Lat.Radians()
	sinDLat := math.Sin((lat2 - lat1) / 2)
	sinDLon := math.Sin((p2.Lng.Radians() - p1.Lng.Radians()) / 2)

	// cos(lat1)*cos(lat2) is grouped so that swapping a and b yields the same bits
	h := sinDLat*sinDLat + (math.Cos(lat1)*math.Cos(lat2))*(sinDLon*sinDLon)
	if h > 1 {
		h = 1
	}

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HaversineDistance is DistanceMeters taking latitude first
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceMeters(Point{Lat: lat1, Lon: lon1}, Point{Lat: lat2, Lon: lon2})
}
