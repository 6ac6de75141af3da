package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONExposesAggregates(t *testing.T) {
	avg := 4.5
	ev := Event{ID: 1, TitleKey: "events.title.concert", AvgRating: &avg, FavoriteCount: 12}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 4.5, got["avg_rating"])
	assert.Equal(t, float64(12), got["favorite_count"])
}

func TestEventJSONOmitsAvgRatingUntilRated(t *testing.T) {
	raw, err := json.Marshal(Event{ID: 1, TitleKey: "events.title.concert"})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	_, present := got["avg_rating"]
	assert.False(t, present)
	assert.Equal(t, float64(0), got["favorite_count"])
}
