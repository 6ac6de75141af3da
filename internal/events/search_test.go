package events

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/event-locator/backend/pkg/apperr"
)

func TestParseSearchParamsDefaults(t *testing.T) {
	q := url.Values{"lat": {"40.7128"}, "lng": {"-74.0060"}}

	p, err := ParseSearchParams(q)

	require.NoError(t, err)
	assert.Equal(t, 40.7128, p.Center.Lat)
	assert.Equal(t, -74.0060, p.Center.Lng)
	assert.Equal(t, float64(DefaultRadiusMeters), p.RadiusMeters)
	assert.Empty(t, p.CategoryIDs)
}

func TestParseSearchParamsMissingOrBadLatLng(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{"missing lat", url.Values{"lng": {"-74"}}},
		{"missing lng", url.Values{"lat": {"40"}}},
		{"missing both", url.Values{}},
		{"non-numeric lat", url.Values{"lat": {"abc"}, "lng": {"-74"}}},
		{"non-numeric lng", url.Values{"lat": {"40"}, "lng": {"xyz"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSearchParams(tt.query)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, "lat_lng_required", ae.Msg)
		})
	}
}

func TestParseSearchParamsOutOfRangeCoords(t *testing.T) {
	q := url.Values{"lat": {"91"}, "lng": {"0"}}

	_, err := ParseSearchParams(q)

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestParseSearchParamsRadius(t *testing.T) {
	valid := url.Values{"lat": {"40"}, "lng": {"-74"}, "radius": {"2500"}}
	p, err := ParseSearchParams(valid)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, p.RadiusMeters)

	for _, bad := range []string{"0", "-100", "5.5", "lots"} {
		_, err := ParseSearchParams(url.Values{"lat": {"40"}, "lng": {"-74"}, "radius": {bad}})
		assert.Error(t, err, "radius=%s", bad)
	}
}

func TestParseCategoryIDs(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []int64
	}{
		{"empty", nil, nil},
		{"single", []string{"3"}, []int64{3}},
		{"comma separated", []string{"1,2,3"}, []int64{1, 2, 3}},
		{"repeated params", []string{"1", "2"}, []int64{1, 2}},
		{"mixed with duplicates", []string{"2,1", "2", "3,1"}, []int64{2, 1, 3}},
		{"whitespace tolerated", []string{" 4 , 5 "}, []int64{4, 5}},
		{"trailing comma", []string{"6,"}, []int64{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategoryIDs(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategoryIDsInvalid(t *testing.T) {
	for _, bad := range [][]string{{"abc"}, {"1,abc"}, {"0"}, {"-2"}} {
		_, err := ParseCategoryIDs(bad)
		require.Error(t, err, "values=%v", bad)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}
