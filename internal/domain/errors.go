package domain

import "errors"

// Validation failures surfaced by alignment, merge, and encoding. None are
// retriable; callers match them with errors.Is.
var (
	// ErrInconsistentStream means traces disagree on network, station, or
	// sampling interval.
	ErrInconsistentStream = errors.New("traces must come from the same station and sampling rate")

	// ErrAmbiguousComponent means more than one trace maps to a component.
	ErrAmbiguousComponent = errors.New("multiple identical components; merge by location first")

	// ErrMissingComponent means a strict encoder did not receive every
	// required component.
	ErrMissingComponent = errors.New("missing trace for component")

	// ErrUnsupportedInterval means a format requires a sampling interval the
	// stream does not have.
	ErrUnsupportedInterval = errors.New("unsupported sampling interval")

	// ErrDayRange means a day file would receive data from more than one day.
	ErrDayRange = errors.New("data spans more than one day")

	// ErrIncompleteDay means a day file could not be filled to exactly one
	// full day of samples.
	ErrIncompleteDay = errors.New("data does not contain a full day of samples")

	// ErrOffGrid means a trace's samples fall between the time grid of the
	// requested window rather than on it.
	ErrOffGrid = errors.New("samples are not aligned to the output time grid")

	// ErrEmptyStream means an operation received no traces.
	ErrEmptyStream = errors.New("stream contains no traces")
)
