package http

import (
	"time"

	xutil "TrendLens/pkg/util"
)

// ParseUnix parses a unix-seconds query value.
func ParseUnix(s string) (time.Time, error) { return xutil.ParseUnix(s) }

// FormatDate renders a response date.
func FormatDate(t time.Time) string { return xutil.FormatHTTPDate(t) }
