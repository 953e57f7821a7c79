// Package domain models geomagnetic observatory time series and the
// alignment and merge rules applied before they are encoded.
//
// # Data Source
//
// Traces originate from an FDSN web service (dataselect) as miniSEED, one
// trace per channel and contiguous block of samples. Observatory metadata
// comes from the FDSN station service or a local station file.
//
// # SEED Conventions
//
// Channel code, three characters:
//
//	[rate][instrument][component]  →  e.g. "UFX"
//	Rate class: M = 8 Hz, L = 1 Hz, U = one sample per minute.
//	Instrument: F = magnetometer.
//	Component: X (north), Y (east), Z (down), F (total field).
//
// Location code:
//
//	[data type][source]  →  e.g. "R0", "D1"
//	Data type: R = raw/reported (variation), D = definitive.
//	Source: the instrument or processing chain, 0, 1, 2, ...
//	An observatory may publish the same component from several sources;
//	[MergeByLocation] collapses them into one trace by precedence.
//
// # Missing Data
//
// Missing samples are explicit: every [Sample] carries a Valid flag. Values
// are never inspected to decide whether data is present. Encoders only ever
// see a [Window], where missing positions already hold the format's null
// value.
//
// # Time
//
// All timestamps are UTC. A trace covers [Start, End] inclusive, where End is
// the timestamp of the last sample. Day-oriented formats use the calendar day
// that contains the first trace's start, see [DayStart].
package domain
