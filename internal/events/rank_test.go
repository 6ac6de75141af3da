package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/event-locator/backend/internal/geo"
	"github.com/event-locator/backend/internal/models"
)

// metersPerLatDegree is the haversine distance of one degree of latitude on
// the spherical model, so test events can be placed at exact distances by
// offsetting latitude.
const metersPerLatDegree = 6371000 * (3.141592653589793 / 180)

func eventAt(id int64, center geo.Point, northMeters float64) models.Event {
	return models.Event{
		ID:        id,
		TitleKey:  "events.test",
		Latitude:  center.Lat + northMeters/metersPerLatDegree,
		Longitude: center.Lng,
		Address:   "somewhere",
		StartTime: time.Now().Add(72 * time.Hour),
	}
}

func TestRankByDistanceFiltersAndOrders(t *testing.T) {
	center := geo.Point{Lat: 40.7128, Lng: -74.0060}
	candidates := []models.Event{
		eventAt(1, center, 6000),
		eventAt(2, center, 100),
		eventAt(3, center, 3000),
	}

	ranked := rankByDistance(center, 5000, candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].ID)
	assert.Equal(t, int64(3), ranked[1].ID)
	assert.InDelta(t, 100, ranked[0].DistanceMeters, 1)
	assert.InDelta(t, 3000, ranked[1].DistanceMeters, 1)
}

func TestRankByDistanceNonDecreasing(t *testing.T) {
	center := geo.Point{Lat: -1.9441, Lng: 30.0619}
	candidates := []models.Event{
		eventAt(10, center, 4200),
		eventAt(11, center, 900),
		eventAt(12, center, 2500),
		eventAt(13, center, 50),
		eventAt(14, center, 4999),
	}

	ranked := rankByDistance(center, 5000, candidates)

	require.Len(t, ranked, 5)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].DistanceMeters, ranked[i].DistanceMeters)
	}
}

func TestRankByDistanceTieBreaksByID(t *testing.T) {
	center := geo.Point{Lat: 51.5074, Lng: -0.1278}
	// identical coordinates, deliberately out of id order
	candidates := []models.Event{
		eventAt(7, center, 1000),
		eventAt(3, center, 1000),
		eventAt(5, center, 1000),
	}

	ranked := rankByDistance(center, 5000, candidates)

	require.Len(t, ranked, 3)
	assert.Equal(t, int64(3), ranked[0].ID)
	assert.Equal(t, int64(5), ranked[1].ID)
	assert.Equal(t, int64(7), ranked[2].ID)
}

func TestRankByDistanceIncludesCenterPoint(t *testing.T) {
	center := geo.Point{Lat: 48.8566, Lng: 2.3522}
	candidates := []models.Event{eventAt(1, center, 0)}

	ranked := rankByDistance(center, 0, candidates)

	require.Len(t, ranked, 1)
	assert.Zero(t, ranked[0].DistanceMeters)
}

func TestRankByDistanceEmptyInput(t *testing.T) {
	ranked := rankByDistance(geo.Point{}, 5000, nil)
	assert.Empty(t, ranked)
}
