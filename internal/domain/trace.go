package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Sample is a single value of a trace. A sample that is not Valid is missing
// data; its Value carries no meaning.
type Sample struct {
	Value float64
	Valid bool
}

// Value returns a present sample.
func Value(v float64) Sample { return Sample{Value: v, Valid: true} }

// Missing returns a missing sample.
func Missing() Sample { return Sample{} }

// Values builds a fully present sample slice.
func Values(vs ...float64) []Sample {
	out := make([]Sample, len(vs))
	for i, v := range vs {
		out[i] = Value(v)
	}
	return out
}

// Trace is one component of a geomagnetic recording: evenly spaced samples
// plus the SEED identity of the channel they came from.
//
// Location codes carry the data type in their first character (R = raw or
// variation, D = definitive) and the data source in the remainder. Channel
// codes are three characters: rate class, instrument, component axis.
type Trace struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Interval time.Duration
	Start    time.Time
	Samples  []Sample
}

// Len returns the number of samples.
func (t Trace) Len() int { return len(t.Samples) }

// Component returns the component axis, the last character of the channel
// code, uppercased. It returns 0 for an empty channel.
func (t Trace) Component() byte {
	if t.Channel == "" {
		return 0
	}
	return strings.ToUpper(t.Channel[len(t.Channel)-1:])[0]
}

// RateCode returns the leading channel character that encodes the sampling
// rate class (M, L, U, ...).
func (t Trace) RateCode() byte {
	if t.Channel == "" {
		return 0
	}
	return t.Channel[0]
}

// DataTypeCode returns the leading location character (R or D), or 0 when the
// location code is blank.
func (t Trace) DataTypeCode() byte {
	if t.Location == "" {
		return 0
	}
	return t.Location[0]
}

// End returns the timestamp of the last sample. For an empty trace it returns
// the start time.
func (t Trace) End() time.Time {
	if len(t.Samples) == 0 {
		return t.Start
	}
	return t.TimeAt(len(t.Samples) - 1)
}

// TimeAt returns the timestamp of sample i.
func (t Trace) TimeAt(i int) time.Time {
	return t.Start.Add(time.Duration(i) * t.Interval)
}

// IndexOf returns the sample index nearest to ts, which may fall outside
// [0, Len()). A timestamp exactly halfway between two samples resolves to the
// later one, whichever side of Start it lies on.
func (t Trace) IndexOf(ts time.Time) int {
	if t.Interval <= 0 {
		return 0
	}
	return int(math.Floor(float64(ts.Sub(t.Start))/float64(t.Interval) + 0.5))
}

// At returns the sample at ts. Timestamps outside the trace are reported as
// missing.
func (t Trace) At(ts time.Time) Sample {
	i := t.IndexOf(ts)
	if i < 0 || i >= len(t.Samples) {
		return Missing()
	}
	return t.Samples[i]
}

// Copy returns a deep copy, so derived traces never share sample storage with
// their source.
func (t Trace) Copy() Trace {
	c := t
	c.Samples = append([]Sample(nil), t.Samples...)
	return c
}

// ID returns the SEED identifier NET.STA.LOC.CHA.
func (t Trace) ID() string {
	return fmt.Sprintf("%s.%s.%s.%s", t.Network, t.Station, t.Location, t.Channel)
}

func (t Trace) String() string {
	return fmt.Sprintf("%s | %s - %s | %s, %d samples",
		t.ID(), t.Start.UTC().Format(time.RFC3339Nano), t.End().UTC().Format(time.RFC3339Nano),
		t.Interval, len(t.Samples))
}
