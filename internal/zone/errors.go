package zone

import "errors"

var (
	// ErrNoZone is returned when no polygon contains the point and no fallback is set.
	ErrNoZone = errors.New("zone: no zone contains point")

	// ErrInvalidZone is returned when the zone file holds an unusable polygon.
	ErrInvalidZone = errors.New("zone: invalid zone")
)
