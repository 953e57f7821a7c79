package domain

import (
	"fmt"
	"math"
	"time"
)

// Components is the canonical component order of every supported format.
var Components = []byte{'X', 'Y', 'Z', 'F'}

// IdentityField names a piece of trace identity that must agree across a
// stream.
type IdentityField int

const (
	FieldNetwork IdentityField = iota
	FieldStation
	FieldLocation
	FieldInterval
)

func (f IdentityField) String() string {
	switch f {
	case FieldNetwork:
		return "network"
	case FieldStation:
		return "station"
	case FieldLocation:
		return "location"
	case FieldInterval:
		return "sampling interval"
	default:
		return "unknown"
	}
}

func (f IdentityField) value(t Trace) string {
	switch f {
	case FieldNetwork:
		return t.Network
	case FieldStation:
		return t.Station
	case FieldLocation:
		return t.Location
	case FieldInterval:
		return t.Interval.String()
	default:
		return ""
	}
}

// IsCommonIdentity reports whether every trace agrees on the given fields.
// Without fields it checks network and station.
func IsCommonIdentity(s Stream, fields ...IdentityField) bool {
	return commonIdentity(s, fields...) == nil
}

// CheckCommonIdentity is IsCommonIdentity returning an ErrInconsistentStream
// that names the first disagreeing field.
func CheckCommonIdentity(s Stream, fields ...IdentityField) error {
	return commonIdentity(s, fields...)
}

func commonIdentity(s Stream, fields ...IdentityField) error {
	if len(fields) == 0 {
		fields = []IdentityField{FieldNetwork, FieldStation}
	}
	for _, f := range fields {
		for i := 1; i < len(s); i++ {
			if f.value(s[i]) != f.value(s[0]) {
				return fmt.Errorf("%w: %s %q differs from %q",
					ErrInconsistentStream, f, f.value(s[i]), f.value(s[0]))
			}
		}
	}
	return nil
}

// OrderAndPad returns exactly one trace per component, in the order given.
// A component with no trace is replaced by an empty trace carrying the
// identity of s[0] with the channel axis rewritten. More than one trace for a
// component fails with ErrAmbiguousComponent.
func OrderAndPad(s Stream, components []byte) (Stream, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("order components: %w", ErrEmptyStream)
	}
	out := make(Stream, 0, len(components))
	for _, c := range components {
		matches := s.Select(c)
		switch len(matches) {
		case 0:
			out = append(out, placeholder(s[0], c))
		case 1:
			out = append(out, matches[0].Copy())
		default:
			return nil, fmt.Errorf("%w: %d traces for component %c", ErrAmbiguousComponent, len(matches), c)
		}
	}
	return out, nil
}

func placeholder(from Trace, c byte) Trace {
	t := from
	t.Samples = nil
	if t.Channel == "" {
		t.Channel = string(c)
	} else {
		t.Channel = t.Channel[:len(t.Channel)-1] + string(c)
	}
	return t
}

// Pad returns t resampled onto the grid start, start+Interval, ... up to and
// including end. Grid points not covered by t are missing samples. Each grid
// point takes the nearest sample as chosen by IndexOf; callers that must not
// shift data check OnGrid first, as TrimAndPad does.
func Pad(t Trace, start, end time.Time) Trace {
	out := t
	out.Start = start
	out.Samples = make([]Sample, gridLen(start, end, t.Interval))
	for i := range out.Samples {
		out.Samples[i] = t.At(out.TimeAt(i))
	}
	return out
}

// A trace within Interval/gridTolerance of the grid counts as on it, which
// absorbs clock jitter in record start times.
const gridTolerance = 100

// OnGrid reports whether t's samples fall on the grid start + k*Interval,
// within 1% of an interval. Traces without samples are always on the grid.
func OnGrid(t Trace, start time.Time) bool {
	if t.Len() == 0 || t.Interval <= 0 {
		return true
	}
	off := t.Start.Sub(start) % t.Interval
	if off < 0 {
		off += t.Interval
	}
	if rest := t.Interval - off; rest < off {
		off = rest
	}
	return off <= t.Interval/gridTolerance
}

func gridLen(start, end time.Time, interval time.Duration) int {
	if interval <= 0 || end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/interval) + 1
}

// Window is a gap-filled, time-aligned view over a stream: one column per
// component, all of the same length, with every missing position already
// replaced by the null value. It is built per write and never retained.
type Window struct {
	Station    string
	Start      time.Time
	Interval   time.Duration
	Components []byte
	Columns    [][]float64
}

// Len returns the number of rows.
func (w Window) Len() int {
	if len(w.Columns) == 0 {
		return 0
	}
	return len(w.Columns[0])
}

// TimeAt returns the timestamp of row i.
func (w Window) TimeAt(i int) time.Time {
	return w.Start.Add(time.Duration(i) * w.Interval)
}

// TrimAndPad aligns s onto [start, end] at the shared sampling interval.
// Timestamps outside the original data and samples marked missing both
// become null. A trace that is not on the grid of start fails with
// ErrOffGrid rather than being shifted.
func TrimAndPad(s Stream, start, end time.Time, null float64) (Window, error) {
	if len(s) == 0 {
		return Window{}, fmt.Errorf("trim and pad: %w", ErrEmptyStream)
	}
	if err := CheckCommonIdentity(s, FieldInterval); err != nil {
		return Window{}, err
	}
	w := Window{
		Station:    s[0].Station,
		Start:      start,
		Interval:   s[0].Interval,
		Components: make([]byte, len(s)),
		Columns:    make([][]float64, len(s)),
	}
	for i, t := range s {
		if !OnGrid(t, start) {
			return Window{}, fmt.Errorf("%w: %s starts %s, off the %s grid of %s",
				ErrOffGrid, t.ID(), t.Start.UTC().Format(time.RFC3339Nano), t.Interval, start.UTC().Format(time.RFC3339Nano))
		}
		w.Components[i] = t.Component()
		padded := Pad(t, start, end)
		col := make([]float64, len(padded.Samples))
		for j, smp := range padded.Samples {
			if !smp.Valid || math.IsNaN(smp.Value) {
				col[j] = null
				continue
			}
			col[j] = smp.Value
		}
		w.Columns[i] = col
	}
	return w, nil
}
