package services

import (
	"errors"
	"fmt"
	"strings"
)

// Render failure markers. Every pipeline error wraps exactly one of these so
// callers can classify failures with errors.Is.
var (
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrStemFormatMismatch = errors.New("stem format mismatch")
	ErrInvalidFadeWindow  = errors.New("invalid fade window")
	ErrDurationMismatch   = errors.New("duration mismatch")
	ErrExternalTool       = errors.New("external tool error")

	ErrInvalidTimeline = errors.New("invalid timeline")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrTimeout         = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Marker reports which render failure marker err carries, or nil.
func Marker(err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range []error{
		ErrInvalidDuration,
		ErrInvalidFrequency,
		ErrStemFormatMismatch,
		ErrInvalidFadeWindow,
		ErrDurationMismatch,
		ErrExternalTool,
		ErrInvalidTimeline,
		ErrTimeout,
		ErrConfiguration,
		ErrValidation,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "render failure"
	}
	return strings.Join(parts, ": ")
}
