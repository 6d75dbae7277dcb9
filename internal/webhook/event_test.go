package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecode(t *testing.T) {
	body := `{
		"event": "message_received",
		"from": "447700900000",
		"contacts": {"profileName": "Ana", "recipient": "+15550001111"},
		"messages": {"type": "text", "text": {"body": "hi"}, "timestamp": 1700000000}
	}`
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(body), &ev))

	assert.Equal(t, "Ana", ev.profileName())
	assert.Equal(t, "+15550001111", ev.recipient())
	assert.Equal(t, "hi", ev.body())
	assert.Equal(t, "1700000000", ev.Messages.Timestamp.Raw)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.Messages.Timestamp.Time)
}

func TestEventDefaults(t *testing.T) {
	ev := Event{Event: "message_received", From: "1"}
	assert.Equal(t, "Unknown", ev.profileName())
	assert.Empty(t, ev.recipient())
	assert.Empty(t, ev.body())
}

func TestTimestampForms(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"seconds number", `1700000000`, time.Unix(1700000000, 0).UTC()},
		{"millis number", `1700000000123`, time.UnixMilli(1700000000123).UTC()},
		{"seconds string", `"1700000000"`, time.Unix(1700000000, 0).UTC()},
		{"rfc3339", `"2024-05-01T10:00:00Z"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional seconds", `1700000000.5`, time.Unix(1700000000, 500000000).UTC()},
		{"large seconds", `9300000000`, time.Unix(9300000000, 0).UTC()},
		{"out of range", `9300000000000000000`, time.Time{}},
		{"negative", `-5`, time.Time{}},
		{"garbage", `"soon"`, time.Time{}},
		{"null", `null`, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &ts))
			assert.True(t, tc.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}
}
