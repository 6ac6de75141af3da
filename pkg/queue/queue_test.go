package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRoundTrip(t *testing.T) {
	member := Member(17, 42)
	assert.Equal(t, "17:42", member)

	userID, eventID, err := ParseMember(member)
	require.NoError(t, err)
	assert.Equal(t, int64(17), userID)
	assert.Equal(t, int64(42), eventID)
}

func TestMemberStableForPair(t *testing.T) {
	// one member per (user, event): retries and re-schedules must land on the
	// same sorted-set entry, never a sibling
	assert.Equal(t, Member(7, 42), Member(7, 42))
}

func TestParseMemberMalformed(t *testing.T) {
	for _, member := range []string{"", "17", "abc:42", "17:xyz", "17:42:1"} {
		_, _, err := ParseMember(member)
		assert.Error(t, err, "member %q", member)
	}
}

func TestScheduledMessageJSON(t *testing.T) {
	raw, err := json.Marshal(ScheduledMessage{UserID: 7, EventID: 12, DelayMS: 3600000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":7,"eventId":12,"delay":3600000}`, string(raw))
}
