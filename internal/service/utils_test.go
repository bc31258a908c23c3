package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{15 * time.Minute, "15m"},
		{time.Minute, "1m"},
		{time.Hour, "1h"},
		{4 * time.Hour, "4h"},
		{24 * time.Hour, "1d"},
		{30 * time.Second, "30s"},
		{90 * time.Minute, "90m"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatInterval(tt.d), tt.d.String())
	}
}

func TestParseIntervalDuration(t *testing.T) {
	t.Parallel()

	got, err := ParseIntervalDuration("15m")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, got)

	got, err = ParseIntervalDuration("1d")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, got)

	for _, bad := range []string{"", "m", "15x", "0m", "-5m", "abm", "1.5s", "250ms"} {
		_, err := ParseIntervalDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestIntervalRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"} {
		d, err := ParseIntervalDuration(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatInterval(d))
	}
}
