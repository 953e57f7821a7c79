package domain

import (
	"math"
	"sort"
	"time"
)

// Stream is an ordered collection of traces.
type Stream []Trace

// Copy deep-copies every trace.
func (s Stream) Copy() Stream {
	out := make(Stream, len(s))
	for i := range s {
		out[i] = s[i].Copy()
	}
	return out
}

// Select returns the traces whose component axis is c.
func (s Stream) Select(c byte) Stream {
	var out Stream
	for _, t := range s {
		if t.Component() == c {
			out = append(out, t)
		}
	}
	return out
}

// SelectStation returns the traces recorded at station.
func (s Stream) SelectStation(station string) Stream {
	var out Stream
	for _, t := range s {
		if t.Station == station {
			out = append(out, t)
		}
	}
	return out
}

// Stations returns the distinct station codes in sorted order.
func (s Stream) Stations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s {
		if !seen[t.Station] {
			seen[t.Station] = true
			out = append(out, t.Station)
		}
	}
	sort.Strings(out)
	return out
}

// Extent returns the earliest start and latest end over the non-empty traces.
// ok is false when no trace holds samples.
func (s Stream) Extent() (start, end time.Time, ok bool) {
	for _, t := range s {
		if t.Len() == 0 {
			continue
		}
		if !ok || t.Start.Before(start) {
			start = t.Start
		}
		if !ok || t.End().After(end) {
			end = t.End()
		}
		ok = true
	}
	return start, end, ok
}

// Trim returns a copy of s restricted to [start, end]. Traces left without
// samples are dropped.
func (s Stream) Trim(start, end time.Time) Stream {
	var out Stream
	for _, t := range s {
		if t.Len() == 0 || t.Interval <= 0 {
			continue
		}
		from := max(t.IndexOf(start), 0)
		if t.TimeAt(from).Before(start) {
			from++
		}
		to := min(t.IndexOf(end), t.Len()-1)
		if t.TimeAt(to).After(end) {
			to--
		}
		if from > to {
			continue
		}
		c := t
		c.Start = t.TimeAt(from)
		c.Samples = append([]Sample(nil), t.Samples[from:to+1]...)
		out = append(out, c)
	}
	return out
}

// SampleCount returns the total number of samples across all traces.
func (s Stream) SampleCount() int {
	n := 0
	for _, t := range s {
		n += t.Len()
	}
	return n
}

// Station describes an observatory for format headers. It is optional: a nil
// *Station renders blank or zero header fields.
type Station struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"` // degrees east, 0-360
	Elevation float64 `json:"elevation" yaml:"elevation"` // meters
	Source    string  `json:"source" yaml:"source"`       // institution
}

// EastLongitude maps a signed longitude onto 0..360 degrees east, the
// convention of IAGA-2002 and IMFv1.22 headers.
func EastLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	switch {
	case lon < 0:
		lon += 360
	case lon == 0:
		lon = 0 // drop the sign of -0
	}
	return lon
}

// DayStart returns midnight UTC of the day containing t.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
