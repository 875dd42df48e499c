package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{
			name:     "artist and title",
			track:    Track{ID: "1", Title: "Midnight City", Artist: "M83"},
			expected: "M83 - Midnight City",
		},
		{
			name:     "title only",
			track:    Track{ID: "1", Title: "Midnight City"},
			expected: "Midnight City",
		},
		{
			name:     "artist only",
			track:    Track{ID: "1", Artist: "M83"},
			expected: "M83",
		},
		{
			name:     "nothing but id",
			track:    Track{ID: "track-1"},
			expected: "track-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.DisplayName())
		})
	}
}

func TestTrack_HasDuration(t *testing.T) {
	withDuration := Track{ID: "1", Duration: 3 * time.Minute}
	withoutDuration := Track{ID: "2"}

	assert.True(t, withDuration.HasDuration())
	assert.False(t, withoutDuration.HasDuration())
}

func TestIndexOf(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, 0, IndexOf(tracks, "a"))
	assert.Equal(t, 2, IndexOf(tracks, "c"))
	assert.Equal(t, -1, IndexOf(tracks, "missing"))
	assert.Equal(t, -1, IndexOf(nil, "a"))
}

func TestIDs(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}}

	assert.Equal(t, []string{"a", "b"}, IDs(tracks))
	assert.Empty(t, IDs(nil))
}
