// Package netcdf reads geomagnetic traces from NetCDF files for offline
// conversion.
//
// A file holds one station. Global attributes network, station and location
// identify it; a "time" variable with CF units ("seconds since 1970-01-01")
// gives sample times, and every other variable along time is one channel,
// named by its "channel" attribute or else by the variable name. _FillValue
// and NaN samples are missing.
package netcdf

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/geomag-etl/internal/domain"
)

const timeVar = "time"

// Identity is the SEED identity shared by the traces of one file.
type Identity struct {
	Network  string
	Station  string
	Location string
}

// Column is one channel variable.
type Column struct {
	Channel  string
	Location string
	Values   []float64
	Fill     float64
	HasFill  bool
}

// Read opens path and returns one trace per channel variable.
func Read(path string) (domain.Stream, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	id := Identity{
		Network:  stringAttr(nc.Attributes(), "network"),
		Station:  stringAttr(nc.Attributes(), "station"),
		Location: stringAttr(nc.Attributes(), "location"),
	}

	tv, err := nc.GetVariable(timeVar)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %q: %w", path, timeVar, err)
	}
	offsets, err := floats(tv.Values)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %q: %w", path, timeVar, err)
	}
	unit, epoch, err := ParseTimeUnits(stringAttr(tv.Attributes, "units"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	times := make([]time.Time, len(offsets))
	for i, o := range offsets {
		times[i] = epoch.Add(time.Duration(math.Round(o * float64(unit))))
	}

	var cols []Column
	for _, name := range nc.ListVariables() {
		if name == timeVar {
			continue
		}
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("%s: variable %q: %w", path, name, err)
		}
		if len(v.Dimensions) != 1 || v.Dimensions[0] != timeVar {
			continue
		}
		values, err := floats(v.Values)
		if err != nil {
			return nil, fmt.Errorf("%s: variable %q: %w", path, name, err)
		}
		col := Column{
			Channel:  stringAttr(v.Attributes, "channel"),
			Location: stringAttr(v.Attributes, "location"),
			Values:   values,
		}
		if col.Channel == "" {
			col.Channel = name
		}
		if fill, ok := v.Attributes.Get("_FillValue"); ok {
			if f, err := floats(fill); err == nil && len(f) > 0 {
				col.Fill, col.HasFill = f[0], true
			}
		}
		cols = append(cols, col)
	}
	return BuildStream(id, times, cols)
}

// BuildStream lays columns onto a regular grid. The interval is the smallest
// positive step between consecutive times; times skipped by the grid become
// missing samples.
func BuildStream(id Identity, times []time.Time, cols []Column) (domain.Stream, error) {
	if len(times) == 0 {
		return nil, nil
	}
	interval, err := gridInterval(times)
	if err != nil {
		return nil, err
	}
	start := times[0]
	n := int((times[len(times)-1].Sub(start)+interval/2)/interval) + 1

	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Channel < cols[j].Channel })
	out := make(domain.Stream, 0, len(cols))
	for _, c := range cols {
		if len(c.Values) != len(times) {
			return nil, fmt.Errorf("channel %s: %d values for %d times", c.Channel, len(c.Values), len(times))
		}
		loc := c.Location
		if loc == "" {
			loc = id.Location
		}
		tr := domain.Trace{
			Network:  id.Network,
			Station:  id.Station,
			Location: loc,
			Channel:  c.Channel,
			Interval: interval,
			Start:    start,
			Samples:  make([]domain.Sample, n),
		}
		for i, v := range c.Values {
			if math.IsNaN(v) || (c.HasFill && v == c.Fill) {
				continue
			}
			idx := tr.IndexOf(times[i])
			if idx >= 0 && idx < n {
				tr.Samples[idx] = domain.Value(v)
			}
		}
		out = append(out, tr)
	}
	return out, nil
}

func gridInterval(times []time.Time) (time.Duration, error) {
	if len(times) == 1 {
		return time.Minute, nil
	}
	var step time.Duration
	for i := 1; i < len(times); i++ {
		d := times[i].Sub(times[i-1])
		if d <= 0 {
			return 0, fmt.Errorf("time values not increasing at index %d", i)
		}
		if step == 0 || d < step {
			step = d
		}
	}
	return step, nil
}

// ParseTimeUnits parses CF time units such as "seconds since 1970-01-01" or
// "minutes since 2019-01-02T00:00:00Z".
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	if units == "" {
		return time.Second, time.Unix(0, 0).UTC(), nil
	}
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("time units %q: want \"<unit> since <epoch>\"", units)
	}
	var d time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "milliseconds", "millisecond", "ms":
		d = time.Millisecond
	case "seconds", "second", "secs", "sec", "s":
		d = time.Second
	case "minutes", "minute", "mins", "min":
		d = time.Minute
	case "hours", "hour", "hrs", "h":
		d = time.Hour
	case "days", "day", "d":
		d = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("time units %q: unknown unit %q", units, unit)
	}
	ref = strings.TrimSpace(ref)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, ref); err == nil {
			return d, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("time units %q: cannot parse epoch %q", units, ref)
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []byte:
		return strings.TrimSpace(string(s))
	default:
		return fmt.Sprint(v)
	}
}

// floats widens any numeric NetCDF value (scalar or 1-D slice) to float64.
func floats(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []float32:
		return widen(x), nil
	case []int64:
		return widen(x), nil
	case []int32:
		return widen(x), nil
	case []int16:
		return widen(x), nil
	case []int8:
		return widen(x), nil
	case []uint8:
		return widen(x), nil
	case float64:
		return []float64{x}, nil
	case float32:
		return []float64{float64(x)}, nil
	case int64:
		return []float64{float64(x)}, nil
	case int32:
		return []float64{float64(x)}, nil
	case int16:
		return []float64{float64(x)}, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func widen[T int8 | uint8 | int16 | int32 | int64 | float32](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
