package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    time.Time
		wantErr bool
	}{
		{"duration hours", "1h", now.Add(-time.Hour), false},
		{"compound duration", "1h30m", now.Add(-90 * time.Minute), false},
		{"rfc3339", "2026-10-01T08:00:00Z", time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"negative duration", "-5m", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseRange(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		from, to, err := ParseRange("2h", "1h", now)
		require.NoError(t, err)
		assert.True(t, from.Before(to))
	})

	t.Run("open ends are zero", func(t *testing.T) {
		from, to, err := ParseRange("", "", now)
		require.NoError(t, err)
		assert.True(t, from.IsZero())
		assert.True(t, to.IsZero())
	})

	t.Run("inverted range", func(t *testing.T) {
		_, _, err := ParseRange("1h", "2h", now)
		assert.ErrorContains(t, err, "--since must be before --until")
	})

	t.Run("names the bad flag", func(t *testing.T) {
		_, _, err := ParseRange("soon", "", now)
		assert.ErrorContains(t, err, "invalid --since")
	})
}
