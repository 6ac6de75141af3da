package events

import (
	"sort"

	"github.com/event-locator/backend/internal/geo"
	"github.com/event-locator/backend/internal/models"
)

// rankByDistance applies the exact radius filter and ordering contract to a
// candidate set: only events within radiusMeters of center are kept, ordered
// by ascending great-circle distance with ties broken by ascending event id.
// The SQL layer only prefilters with a bounding box; this is where the
// externally observable "nearest first" guarantee is enforced.
func rankByDistance(center geo.Point, radiusMeters float64, candidates []models.Event) []models.RankedEvent {
	ranked := make([]models.RankedEvent, 0, len(candidates))
	for _, ev := range candidates {
		d := geo.Distance(center, geo.Point{Lat: ev.Latitude, Lng: ev.Longitude})
		if d <= radiusMeters {
			ranked = append(ranked, models.RankedEvent{Event: ev, DistanceMeters: d})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceMeters != ranked[j].DistanceMeters {
			return ranked[i].DistanceMeters < ranked[j].DistanceMeters
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
