package format_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2019, time.January, 2, 0, 0, 0, 0, time.UTC)

func minuteTrace(channel string, start time.Time, values ...float64) domain.Trace {
	return domain.Trace{
		Network:  "C2",
		Station:  "OTT",
		Location: "R1",
		Channel:  channel,
		Interval: time.Minute,
		Start:    start,
		Samples:  domain.Values(values...),
	}
}

var ottawa = &domain.Station{
	Name:      "Ottawa",
	Latitude:  45.403,
	Longitude: 284.448,
	Elevation: 75,
	Source:    "Geological Survey of Canada (GSC)",
}

func encode(t *testing.T, f format.Format, s domain.Stream, st *domain.Station, opts format.Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, format.Write(&buf, f, s, st, opts))
	return buf.String()
}

func TestIAGA2002_SingleComponentLastRow(t *testing.T) {
	out := encode(t, format.IAGA2002, domain.Stream{minuteTrace("UFX", day, 1, 2, 3)}, nil, format.Options{})

	assert.True(t, strings.HasSuffix(out,
		"2019-01-02 00:02:00.000 002         3.00  99999.00  99999.00  99999.00\r\n"))
	assert.Contains(t, out, "2019-01-02 00:00:00.000 002         1.00  99999.00  99999.00  99999.00\r\n")
}

func TestIAGA2002_BeginMissing(t *testing.T) {
	out := encode(t, format.IAGA2002, domain.Stream{minuteTrace("UFX", day.Add(time.Minute), 1, 2, 3)}, nil, format.Options{})

	assert.Contains(t, out, "2019-01-02 00:00:00.000 002     99999.00  99999.00  99999.00  99999.00\r\n")
	assert.Contains(t, out, "2019-01-02 00:03:00.000 002         3.00  99999.00  99999.00  99999.00\r\n")
}

func TestIAGA2002_Header(t *testing.T) {
	s := domain.Stream{
		minuteTrace("UFF", day, 54266.3),
		minuteTrace("UFZ", day, 51063.0),
		minuteTrace("UFY", day, -4321.0),
		minuteTrace("UFX", day, 17853.8),
	}
	out := encode(t, format.IAGA2002, s, ottawa, format.Options{})
	lines := strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n")

	want := []string{
		" Format                  IAGA-2002                                   |",
		" Source of Data          Geological Survey of Canada (GSC)           |",
		" Station Name            Ottawa                                      |",
		" IAGA CODE               OTT                                         |",
		" Geodetic Latitude       45.403                                      |",
		" Geodetic Longitude      284.448                                     |",
		" Elevation               75.000                                      |",
		" Reported                XYZF                                        |",
		" Sensor Orientation                                                  |",
		" Digital Sampling                                                    |",
		" Data Interval Type      1 minute (00:30-01:29)                      |",
		" Data Type               variation                                   |",
		" # DECBAS                000000 (Baseline declination value in       |",
		" #                       tenths of minutes East (0-216,000)).        |",
		"DATE       TIME         DOY     OTTX      OTTY      OTTZ      OTTF   |",
		"2019-01-02 00:00:00.000 002     17853.80  -4321.00  51063.00  54266.30",
	}
	assert.Equal(t, want, lines)
	for _, l := range lines[:15] {
		assert.Len(t, l, 70)
	}
}

func TestIAGA2002_HeaderWithoutStation(t *testing.T) {
	out := encode(t, format.IAGA2002, domain.Stream{minuteTrace("UFX", day, 1)}, nil, format.Options{})

	assert.Contains(t, out, " Source of Data                                                      |\r\n")
	assert.Contains(t, out, " Station Name                                                        |\r\n")
	assert.Contains(t, out, " Geodetic Latitude       0                                           |\r\n")
}

func TestIAGA2002_SourceOverride(t *testing.T) {
	out := encode(t, format.IAGA2002, domain.Stream{minuteTrace("UFX", day, 1)}, ottawa, format.Options{Source: "NRCan"})
	assert.Contains(t, out, " Source of Data          NRCan                                       |\r\n")
}

func TestIAGA2002_HeaderLookups(t *testing.T) {
	cases := []struct {
		name     string
		channel  string
		location string
		interval time.Duration
		wantType string
		wantData string
	}{
		{name: "eight hertz", channel: "MFX", location: "R0", interval: 125 * time.Millisecond, wantType: "0.125 second", wantData: "variation"},
		{name: "second definitive", channel: "LFX", location: "D0", interval: time.Second, wantType: "1 second", wantData: "definitive"},
		{name: "unknown codes", channel: "BFX", location: "", interval: time.Minute, wantType: "", wantData: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := minuteTrace(tc.channel, day, 1)
			tr.Location = tc.location
			tr.Interval = tc.interval
			out := encode(t, format.IAGA2002, domain.Stream{tr}, nil, format.Options{})
			assert.Contains(t, out, padHeader("Data Interval Type", tc.wantType))
			assert.Contains(t, out, padHeader("Data Type", tc.wantData))
		})
	}
}

func padHeader(label, value string) string {
	return " " + label + strings.Repeat(" ", 24-len(label)) + value + strings.Repeat(" ", 44-len(value)) + "|\r\n"
}

func TestIAGA2002_NullSentinelAndAbove(t *testing.T) {
	tr := minuteTrace("UFX", day)
	tr.Samples = []domain.Sample{domain.Value(0), domain.Missing(), domain.Value(123456)}
	out := encode(t, format.IAGA2002, domain.Stream{tr}, nil, format.Options{})

	assert.Contains(t, out, "2019-01-02 00:00:00.000 002         0.00  99999.00")
	assert.Contains(t, out, "2019-01-02 00:01:00.000 002     99999.00  99999.00")
	assert.Contains(t, out, "2019-01-02 00:02:00.000 002     99999.00  99999.00")
}

func TestIAGA2002_DayRange(t *testing.T) {
	s := domain.Stream{
		minuteTrace("UFX", day, 1, 2, 3),
		minuteTrace("UFY", day.Add(24*time.Hour), 1, 2, 3),
	}
	var buf bytes.Buffer
	err := format.Write(&buf, format.IAGA2002, s, nil, format.Options{})
	require.ErrorIs(t, err, domain.ErrDayRange)
}

func TestIAGA2002_LastMinuteOfDayIsAccepted(t *testing.T) {
	s := domain.Stream{minuteTrace("UFX", day.Add(24*time.Hour-time.Minute), 7)}
	out := encode(t, format.IAGA2002, s, nil, format.Options{})
	assert.Contains(t, out, "2019-01-02 00:00:00.000 002     99999.00")
	assert.True(t, strings.HasSuffix(out, "2019-01-02 23:59:00.000 002         7.00  99999.00  99999.00  99999.00\r\n"))
	assert.Equal(t, 15+1440, strings.Count(out, "\r\n"))
}

func TestIAGA2002_DuplicateComponent(t *testing.T) {
	other := minuteTrace("UFX", day.Add(2*time.Minute), 2, 3)
	other.Location = "R2"
	s := domain.Stream{minuteTrace("UFX", day.Add(time.Minute), 1, 2, 3), other}

	var buf bytes.Buffer
	err := format.Write(&buf, format.IAGA2002, s, nil, format.Options{})
	require.ErrorIs(t, err, domain.ErrAmbiguousComponent)
	assert.Zero(t, buf.Len())

	merged := domain.MergeByLocation(s, domain.MergeOptions{})
	require.NoError(t, format.Write(&buf, format.IAGA2002, merged, nil, format.Options{}))
}

func TestIAGA2002_InconsistentStations(t *testing.T) {
	other := minuteTrace("UFY", day, 1)
	other.Station = "SNK"
	var buf bytes.Buffer
	err := format.Write(&buf, format.IAGA2002, domain.Stream{minuteTrace("UFX", day, 1), other}, nil, format.Options{})
	require.ErrorIs(t, err, domain.ErrInconsistentStream)
}

func TestIAGA2002_SubSecondTimestamps(t *testing.T) {
	tr := minuteTrace("MFX", day, 1, 2, 3)
	tr.Interval = 125 * time.Millisecond
	out := encode(t, format.IAGA2002, domain.Stream{tr}, nil, format.Options{})
	assert.Contains(t, out, "2019-01-02 00:00:00.250 002         3.00")
}

func TestIAGA2002_HeaderWithSignedLongitude(t *testing.T) {
	west := *ottawa
	west.Longitude = -75.552
	out := encode(t, format.IAGA2002, domain.Stream{minuteTrace("UFX", day, 1)}, &west, format.Options{})

	assert.Contains(t, out, " Geodetic Longitude      284.448                                     |\r\n")
}
