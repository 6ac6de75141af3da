package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKnownPoints(t *testing.T) {
	paris := Point{Lat: 48.8566, Lng: 2.3522}
	london := Point{Lat: 51.5074, Lng: -0.1278}

	d := Distance(paris, london)
	// ~343.5 km; allow 1% for the spherical approximation
	assert.InDelta(t, 343500, d, 3500)
}

func TestDistanceSymmetric(t *testing.T) {
	a := Point{Lat: 40.7128, Lng: -74.0060}
	b := Point{Lat: 34.0522, Lng: -118.2437}

	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestDistanceZeroForIdenticalPoints(t *testing.T) {
	p := Point{Lat: -1.9441, Lng: 30.0619}
	assert.Zero(t, Distance(p, p))
}

func TestWithinRadiusSelf(t *testing.T) {
	p := Point{Lat: 40.7128, Lng: -74.0060}
	assert.True(t, WithinRadius(p, p, 0))
	assert.True(t, WithinRadius(p, p, 100))
}

func TestWithinRadiusBoundary(t *testing.T) {
	center := Point{Lat: 0, Lng: 0}
	// ~1112 m due north
	p := Point{Lat: 0.01, Lng: 0}

	assert.True(t, WithinRadius(center, p, 1200))
	assert.False(t, WithinRadius(center, p, 1000))
}

func TestValid(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"extremes", 90, 180, true},
		{"negative extremes", -90, -180, true},
		{"lat too high", 90.01, 0, false},
		{"lat too low", -90.01, 0, false},
		{"lng too high", 0, 180.01, false},
		{"lng too low", 0, -180.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.lat, tt.lng))
		})
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	center := Point{Lat: 40.7128, Lng: -74.0060}
	const radius = 5000.0

	minLat, maxLat, minLng, maxLng := BoundingBox(center, radius)

	// points just inside the radius in each cardinal direction must fall
	// inside the box
	for _, p := range []Point{
		{Lat: center.Lat + 0.0449, Lng: center.Lng}, // ~4995 m north
		{Lat: center.Lat - 0.0449, Lng: center.Lng},
		{Lat: center.Lat, Lng: center.Lng + 0.0592}, // ~4995 m east at this latitude
		{Lat: center.Lat, Lng: center.Lng - 0.0592},
	} {
		require.True(t, WithinRadius(center, p, radius), "test point drifted outside radius")
		assert.True(t, p.Lat >= minLat && p.Lat <= maxLat, "lat outside box: %v", p)
		assert.True(t, p.Lng >= minLng && p.Lng <= maxLng, "lng outside box: %v", p)
	}
}

func TestBoundingBoxNearPole(t *testing.T) {
	minLat, maxLat, minLng, maxLng := BoundingBox(Point{Lat: 89.9, Lng: 0}, 50000)

	assert.Equal(t, 90.0, maxLat)
	assert.Less(t, minLat, 89.9)
	assert.Equal(t, -180.0, minLng)
	assert.Equal(t, 180.0, maxLng)
}

func TestBoundingBoxAntimeridian(t *testing.T) {
	_, _, minLng, maxLng := BoundingBox(Point{Lat: 0, Lng: 179.99}, 5000)

	// box would cross the antimeridian; it must stay a single valid interval
	assert.Equal(t, -180.0, minLng)
	assert.Equal(t, 180.0, maxLng)
}
