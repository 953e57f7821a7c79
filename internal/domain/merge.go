package domain

import (
	"sort"
	"strings"
	"time"
)

// MergeOptions controls MergeByLocation.
type MergeOptions struct {
	// Order lists location codes from lowest to highest precedence. When set,
	// traces at unlisted locations are dropped. When empty, locations rank by
	// ascending code.
	Order []string

	// Placeholder is the location code given to a trace merged from more
	// than one location. Groups fed by a single location keep their own code,
	// so one merged stream can mix both. The zero value leaves merged traces
	// with an empty location, which encoders report as an unknown data type;
	// callers that write files pass LocationPattern of the input stream.
	Placeholder string
}

type mergeKey struct {
	network  string
	station  string
	channel  string
	interval time.Duration
}

// MergeByLocation collapses competing data sources of the same component into
// a single trace per (network, station, channel, interval). Sources are
// walked from lowest to highest precedence; each later source overwrites a
// timestamp only where it holds a present sample, so the preferred source wins
// where it has data and the others fill its gaps. Offset traces are reconciled
// per absolute timestamp on the union of their extents.
//
// Groups fed by a single location keep their location code. The input is
// never modified.
func MergeByLocation(s Stream, opts MergeOptions) Stream {
	rank := locationRanks(s, opts.Order)

	var keys []mergeKey
	groups := make(map[mergeKey]Stream)
	for _, t := range s {
		if _, ok := rank[t.Location]; !ok {
			continue
		}
		k := mergeKey{network: t.Network, station: t.Station, channel: t.Channel, interval: t.Interval}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], t)
	}

	out := make(Stream, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		if len(members) == 1 {
			out = append(out, members[0].Copy())
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			ri, rj := rank[members[i].Location], rank[members[j].Location]
			if ri != rj {
				return ri < rj
			}
			return members[i].Start.Before(members[j].Start)
		})
		merged := overlay(members)
		if !singleLocation(members) {
			merged.Location = opts.Placeholder
		}
		out = append(out, merged)
	}
	return out
}

// locationRanks maps each eligible location code to its precedence.
func locationRanks(s Stream, order []string) map[string]int {
	rank := make(map[string]int)
	if len(order) > 0 {
		for i, loc := range order {
			rank[loc] = i
		}
		return rank
	}
	var locs []string
	for _, t := range s {
		if _, ok := rank[t.Location]; !ok {
			rank[t.Location] = 0
			locs = append(locs, t.Location)
		}
	}
	sort.Strings(locs)
	for i, loc := range locs {
		rank[loc] = i
	}
	return rank
}

// overlay paints members, lowest precedence first, onto their union extent.
func overlay(members Stream) Trace {
	merged := members[0]
	start, end, ok := members.Extent()
	if !ok {
		merged.Samples = nil
		return merged
	}
	merged.Start = start
	merged.Samples = make([]Sample, gridLen(start, end, merged.Interval))
	for _, t := range members {
		for i, smp := range t.Samples {
			if !smp.Valid {
				continue
			}
			idx := merged.IndexOf(t.TimeAt(i))
			if idx >= 0 && idx < len(merged.Samples) {
				merged.Samples[idx] = smp
			}
		}
	}
	return merged
}

func singleLocation(s Stream) bool {
	for _, t := range s[1:] {
		if t.Location != s[0].Location {
			return false
		}
	}
	return true
}

// LocationPattern summarises location codes into one code with '?' at every
// position where they differ, e.g. R0 and R1 become R?, R0 and D0 become ?0.
func LocationPattern(s Stream) string {
	var pattern []byte
	for i, t := range s {
		if i == 0 {
			pattern = []byte(t.Location)
			continue
		}
		if len(t.Location) > len(pattern) {
			pattern = append(pattern, []byte(strings.Repeat("?", len(t.Location)-len(pattern)))...)
		}
		for j := range pattern {
			if j >= len(t.Location) || t.Location[j] != pattern[j] {
				pattern[j] = '?'
			}
		}
	}
	return string(pattern)
}
