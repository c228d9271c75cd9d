package models

import "errors"

var (
	// ErrDataUnavailable means the provider failed or returned too little history.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidTicker means provider metadata failed the required-field check.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrInvalidRange means the requested window is malformed or outside the served bounds.
	ErrInvalidRange = errors.New("invalid range")
)
