// Command genmock writes a synthetic day of XYZF minute data as miniSEED, the
// fixture the conversion tests and a local FDSN mock serve. Two locations are
// written with complementary gaps so the location merge has work to do.
// Optionally the merged day is also encoded in every supported format.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -station OTT -date 2019-01-02 \
//	  -out data/mock/ott20190102.mseed \
//	  -encoded-dir data/mock/encoded
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/couchcryptid/geomag-etl/internal/mseed"
)

// baseline field in nT per component, roughly Ottawa's.
var baseline = map[string]float64{
	"UFX": 17845.5,
	"UFY": -4328.2,
	"UFZ": 51046.6,
}

var channels = []string{"UFX", "UFY", "UFZ", "UFF"}

const samplesPerDay = 1440

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	network := flag.String("network", "C2", "network code")
	station := flag.String("station", "OTT", "station code")
	date := flag.String("date", "2019-01-02", "UTC day to generate (YYYY-MM-DD)")
	out := flag.String("out", "", "output path for the miniSEED fixture")
	encodedDir := flag.String("encoded-dir", "", "optional directory for the day encoded in every format")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	day, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return fmt.Errorf("parse -date: %w", err)
	}

	stream := generate(*network, *station, day)

	var buf bytes.Buffer
	if err := mseed.Encode(&buf, stream); err != nil {
		return fmt.Errorf("encode miniSEED: %w", err)
	}
	if err := writeFile(*out, buf.Bytes()); err != nil {
		return err
	}
	log.Printf("wrote %s: %d traces, %d samples, %d bytes", *out, len(stream), stream.SampleCount(), buf.Len())

	if *encodedDir == "" {
		return nil
	}
	merged := domain.MergeByLocation(stream, domain.MergeOptions{Placeholder: domain.LocationPattern(stream)})
	station0 := &domain.Station{Name: "Synthetic " + *station, Latitude: 45.403, Longitude: 284.448, Elevation: 75}
	for _, f := range format.All {
		var enc bytes.Buffer
		if err := format.Write(&enc, f, merged, station0, format.Options{}); err != nil {
			return fmt.Errorf("encode %s: %w", f, err)
		}
		name, err := f.Filename(merged[0])
		if err != nil {
			name = fmt.Sprintf("%s.%s", *station, f)
		}
		path := filepath.Join(*encodedDir, name)
		if err := writeFile(path, enc.Bytes()); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

// generate builds R0 and R1 traces for X, Y, Z and F. R0 misses 06:00-06:59
// and R1 misses 18:00-18:59; every other minute is present in both, with R1
// offset by a small calibration difference.
func generate(network, station string, day time.Time) domain.Stream {
	var stream domain.Stream
	for _, loc := range []string{"R0", "R1"} {
		gapHour := 6
		offset := 0.0
		if loc == "R1" {
			gapHour, offset = 18, 0.3
		}
		x := series(baseline["UFX"], 25, 0)
		y := series(baseline["UFY"], 12, math.Pi/3)
		z := series(baseline["UFZ"], 8, math.Pi/2)
		f := make([]float64, samplesPerDay)
		for i := range f {
			f[i] = math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
		}
		for c, values := range [][]float64{x, y, z, f} {
			t := domain.Trace{
				Network:  network,
				Station:  station,
				Location: loc,
				Channel:  channels[c],
				Interval: time.Minute,
				Start:    day,
				Samples:  make([]domain.Sample, samplesPerDay),
			}
			for j, v := range values {
				if j/60 == gapHour {
					continue
				}
				t.Samples[j] = domain.Value(math.Round((v+offset)*100) / 100)
			}
			stream = append(stream, t)
		}
	}
	return stream
}

// series is a diurnal variation of amplitude amp around base.
func series(base, amp, phase float64) []float64 {
	out := make([]float64, samplesPerDay)
	for i := range out {
		out[i] = base + amp*math.Sin(2*math.Pi*float64(i)/samplesPerDay+phase)
	}
	return out
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
