package zoomout

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidMetricInput marks a record whose fields cannot produce finite metrics.
	ErrInvalidMetricInput = errors.New("invalid metric input")

	// ErrUnresolvedMarkerKey marks a marker key with no matching metric column.
	ErrUnresolvedMarkerKey = errors.New("unresolved marker key")
)

// InvalidMetricInputError describes one record excluded from a series.
type InvalidMetricInputError struct {
	ActivityType ActivityType
	Start        time.Time
	Distance     float64
	Reason       string
}

func (e *InvalidMetricInputError) Error() string {
	return fmt.Sprintf("%s record at %s excluded: %s (distance=%v)",
		e.ActivityType, e.Start.Format(time.RFC3339), e.Reason, e.Distance)
}

func (e *InvalidMetricInputError) Unwrap() error {
	return ErrInvalidMetricInput
}

// UnresolvedMarkerKeyError is returned when a marker key cannot be bound to a column.
type UnresolvedMarkerKeyError struct {
	ActivityType ActivityType
	Key          string
}

func (e *UnresolvedMarkerKeyError) Error() string {
	return fmt.Sprintf("marker --%s_%s: no metric column matches %q", e.ActivityType, e.Key, e.Key)
}

func (e *UnresolvedMarkerKeyError) Unwrap() error {
	return ErrUnresolvedMarkerKey
}
