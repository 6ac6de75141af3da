package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad input"), KindValidation},
		{"authorization", Authorization("not the owner"), KindAuthorization},
		{"not found", NotFound("no such event"), KindNotFound},
		{"conflict", Conflict("already rated"), KindConflict},
		{"server", Server("query failed", errors.New("boom")), KindServer},
		{"plain error", errors.New("boom"), KindServer},
		{"wrapped", fmt.Errorf("outer: %w", NotFound("gone")), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsMatchesOnKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("no such event"))
	assert.True(t, errors.Is(err, NotFound("")))
	assert.False(t, errors.Is(err, Conflict("")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Server("query failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "query failed: connection reset", err.Error())
	assert.Equal(t, "query failed", NotFound("query failed").Error())
}
