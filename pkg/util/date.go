package util

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseUnix parses integer unix seconds into a UTC time. Fractional seconds are accepted and truncated.
func ParseUnix(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if whole, _, ok := strings.Cut(s, "."); ok {
		s = whole
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return time.Unix(ts, 0).UTC(), nil
}

// TradingDay maps an instant to midnight UTC of its calendar date at the given exchange offset.
func TradingDay(t time.Time, gmtOffsetSeconds int) time.Time {
	local := t.UTC().Add(time.Duration(gmtOffsetSeconds) * time.Second)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatHTTPDate renders t like an HTTP date header, e.g. "Mon, 02 Jan 2006 00:00:00 GMT".
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
