package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMovedRecently(t *testing.T) {
	now := time.Date(2025, 11, 3, 20, 6, 30, 0, time.UTC)
	window := 60 * time.Second

	tests := []struct {
		name    string
		instant time.Time
		want    bool
	}{
		{"just moved", now.Add(-3 * time.Second), true},
		{"exactly now", now, true},
		{"at window edge", now.Add(-window), true},
		{"one second past window", now.Add(-window - time.Second), false},
		{"future instant", now.Add(2 * time.Second), false},
		{"zero instant", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MovedRecently(tt.instant, now, window))
		})
	}
}

func TestMovedRecently_NormalizedSpaceFormat(t *testing.T) {
	// A CRM timestamp of 17:06:27 without offset reads as 20:06:27 UTC
	// under the fixed -03:00 assumption; three seconds later it is still
	// inside the window, sixty-one seconds later it is not.
	instant, err := NormalizeMovedTime("2025-11-03 17:06:27")
	assert.NoError(t, err)

	window := 60 * time.Second

	now := time.Date(2025, 11, 3, 20, 6, 30, 0, time.UTC)
	assert.True(t, MovedRecently(instant, now, window))

	later := time.Date(2025, 11, 3, 20, 7, 28, 0, time.UTC)
	assert.False(t, MovedRecently(instant, later, window))
}
