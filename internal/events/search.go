package events

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/event-locator/backend/internal/geo"
	"github.com/event-locator/backend/pkg/apperr"
)

// DefaultRadiusMeters applies when a nearby search omits the radius parameter.
const DefaultRadiusMeters = 5000

// SearchParams is a normalized nearby-search request.
type SearchParams struct {
	Center       geo.Point
	RadiusMeters float64
	CategoryIDs  []int64
}

// ParseSearchParams validates and normalizes the raw query values of a nearby
// search. lat and lng are required and numeric ("lat_lng_required"); radius
// defaults to 5000 meters and must be a positive integer; categories accepts
// a single id, a comma-separated list, or repeated parameters, normalized to
// a deduplicated id set.
func ParseSearchParams(query url.Values) (SearchParams, error) {
	var p SearchParams

	latStr := query.Get("lat")
	lngStr := query.Get("lng")
	if latStr == "" || lngStr == "" {
		return p, apperr.Validation("lat_lng_required")
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return p, apperr.Validation("lat_lng_required")
	}
	if !geo.Valid(lat, lng) {
		return p, apperr.Validation("invalid coordinates")
	}
	p.Center = geo.Point{Lat: lat, Lng: lng}

	p.RadiusMeters = DefaultRadiusMeters
	if radiusStr := query.Get("radius"); radiusStr != "" {
		radius, err := strconv.Atoi(radiusStr)
		if err != nil || radius <= 0 {
			return p, apperr.Validation("radius must be a positive integer")
		}
		p.RadiusMeters = float64(radius)
	}

	ids, err := ParseCategoryIDs(query["categories"])
	if err != nil {
		return p, err
	}
	p.CategoryIDs = ids
	return p, nil
}

// ParseCategoryIDs normalizes category filter values (repeated params and/or
// comma-separated lists) into a deduplicated id set. Order follows first
// appearance. Empty input yields nil (no filter).
func ParseCategoryIDs(values []string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, apperr.Validation("invalid category id: " + part)
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
