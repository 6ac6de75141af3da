// Package geo computes great-circle distances on a spherical Earth
// approximation. Inputs are assumed to be valid coordinates; callers validate
// with Valid first, behavior on out-of-range input is undefined.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the spherical approximation.
const earthRadiusMeters = 6371000.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether lat/lng form a valid coordinate pair.
func Valid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Distance returns the great-circle distance between a and b in meters,
// using the haversine formula. Symmetric; zero iff the points are identical
// within floating-point tolerance.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether p lies within radiusMeters of center.
func WithinRadius(center, p Point, radiusMeters float64) bool {
	return Distance(center, p) <= radiusMeters
}

// BoundingBox returns a conservative lat/lng box that contains every point
// within radiusMeters of center. Used to prefilter candidates in SQL before
// the exact distance test; near the poles the longitude span widens to the
// full range rather than inverting.
func BoundingBox(center Point, radiusMeters float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := degrees(radiusMeters / earthRadiusMeters)
	minLat = math.Max(-90, center.Lat-latDelta)
	maxLat = math.Min(90, center.Lat+latDelta)

	cos := math.Cos(radians(center.Lat))
	if cos <= 1e-9 {
		return minLat, maxLat, -180, 180
	}
	lngDelta := degrees(radiusMeters / (earthRadiusMeters * cos))
	minLng = center.Lng - lngDelta
	maxLng = center.Lng + lngDelta
	if lngDelta >= 180 || minLng < -180 || maxLng > 180 {
		// box crosses the antimeridian; widen to full range to stay a single interval
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, minLng, maxLng
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
