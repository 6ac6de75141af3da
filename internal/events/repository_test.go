package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/event-locator/backend/internal/notifications"
	"github.com/event-locator/backend/pkg/apperr"
)

// the scheduler must plug into the store's delete-time cancellation hook
var _ Canceller = (*notifications.Scheduler)(nil)

func TestValidateWindow(t *testing.T) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	after := start.Add(2 * time.Hour)
	before := start.Add(-time.Minute)

	assert.NoError(t, validateWindow(start, nil))
	assert.NoError(t, validateWindow(start, &after))
	assert.NoError(t, validateWindow(start, &start))

	err := validateWindow(start, &before)
	assert.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidateDraft(t *testing.T) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	before := start.Add(-time.Minute)
	negative := -1

	valid := Draft{
		TitleKey:  "events.title.concert",
		Address:   "KG 7 Ave, Kigali",
		StartTime: start,
		Latitude:  -1.9441,
		Longitude: 30.0619,
	}
	assert.NoError(t, validateDraft(valid))

	tests := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"missing title", func(d *Draft) { d.TitleKey = "" }},
		{"missing address", func(d *Draft) { d.Address = "" }},
		{"zero start", func(d *Draft) { d.StartTime = time.Time{} }},
		{"bad coordinates", func(d *Draft) { d.Latitude = 91 }},
		{"end before start", func(d *Draft) { d.EndTime = &before }},
		{"negative capacity", func(d *Draft) { d.Capacity = &negative }},
		{"negative price", func(d *Draft) { d.Price = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := validateDraft(d)
			assert.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}
