package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnix(t *testing.T) {
	got, err := ParseUnix("0")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), got)

	got, err = ParseUnix("1609459200.75")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseUnix("99999999999999")
	require.NoError(t, err)
	assert.True(t, got.After(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)))

	for _, bad := range []string{"", "abc", "12x"} {
		_, err := ParseUnix(bad)
		assert.Error(t, err, bad)
	}
}

func TestTradingDay(t *testing.T) {
	// 14:30 UTC on a New York trading day.
	open := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), TradingDay(open, -5*3600))

	// 23:00 UTC is already the next day in Tokyo.
	late := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), TradingDay(late, 9*3600))
}

func TestFormatHTTPDate(t *testing.T) {
	d := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Tue, 01 Jun 2021 00:00:00 GMT", FormatHTTPDate(d))
}
