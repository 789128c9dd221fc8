package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable marks any failure that leaves no usable series for a
	// year. Callers show a "no data" state instead of zero-filled figures.
	ErrDataUnavailable = errors.New("data unavailable")

	ErrUnknownYear      = errors.New("unknown year")
	ErrMalformedPayload = errors.New("malformed payload")
)

// FetchError reports that the export for a year could not be obtained.
type FetchError struct {
	Year   int
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s year %d: %v", e.Source, e.Year, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes every FetchError match ErrDataUnavailable.
func (e *FetchError) Is(target error) bool {
	return target == ErrDataUnavailable
}
