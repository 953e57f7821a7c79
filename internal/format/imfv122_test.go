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

func TestIMFV122_Records(t *testing.T) {
	out := encode(t, format.IMFV122, domain.Stream{minuteTrace("UFX", day, 1, 2, 3)}, nil, format.Options{})
	lines := strings.Split(out, "\n")

	assert.Equal(t, "OTT JAN0219 002 00 XYZF R OTT 00000000 000000 RRRRRRRRRRRRRRRR", lines[0])
	assert.Equal(t, "     10  999999  999999 999999       20  999999  999999 999999", lines[1])
	assert.Equal(t, "     30  999999  999999 999999   999999  999999  999999 999999", lines[2])
}

func TestIMFV122_BeginMissing(t *testing.T) {
	out := encode(t, format.IMFV122, domain.Stream{minuteTrace("UFX", day.Add(time.Minute), 1, 2, 3)}, nil, format.Options{})

	assert.Contains(t, out, " 999999  999999  999999 999999       10  999999  999999 999999\n")
	assert.Contains(t, out, "     20  999999  999999 999999       30  999999  999999 999999\n")
}

func TestIMFV122_DayLayout(t *testing.T) {
	out := encode(t, format.IMFV122, domain.Stream{minuteTrace("UFX", day, 1)}, nil, format.Options{})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, lines, 24*31)
	for hour := 0; hour < 24; hour++ {
		header := lines[hour*31]
		assert.True(t, strings.HasPrefix(header, "OTT JAN0219 002 "), header)
		assert.Equal(t, "XYZF", header[19:23])
	}
	assert.Equal(t, "OTT JAN0219 002 23 XYZF R OTT 00000000 000000 RRRRRRRRRRRRRRRR", lines[23*31])
}

func TestIMFV122_HeaderWithStation(t *testing.T) {
	s := domain.Stream{
		minuteTrace("UFX", day, 17853.8),
		minuteTrace("UFY", day, -4321.0),
		minuteTrace("UFZ", day, 51063.0),
		minuteTrace("UFF", day, 54266.3),
	}
	out := encode(t, format.IMFV122, s, ottawa, format.Options{GIN: "EDI"})
	lines := strings.Split(out, "\n")

	assert.Equal(t, "OTT JAN0219 002 00 XYZF R EDI 04452844 000000 RRRRRRRRRRRRRRRR", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], " 178538  -43210  510630 542663  "), lines[1])
}

func TestIMFV122_RequiresMinuteData(t *testing.T) {
	tr := minuteTrace("LFX", day, 1, 2, 3)
	tr.Interval = time.Second

	var buf bytes.Buffer
	err := format.Write(&buf, format.IMFV122, domain.Stream{tr}, nil, format.Options{})
	require.ErrorIs(t, err, domain.ErrUnsupportedInterval)
	assert.Zero(t, buf.Len())
}

func TestIMFV122_Filename(t *testing.T) {
	name, err := format.IMFV122.Filename(minuteTrace("UFX", time.Date(2020, time.January, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "JAN1020.OTT", name)
}

func TestIMFV122_HeaderWithSignedLongitude(t *testing.T) {
	west := *ottawa
	west.Longitude = -75.552
	out := encode(t, format.IMFV122, domain.Stream{minuteTrace("UFX", day, 1)}, &west, format.Options{})
	lines := strings.Split(out, "\n")

	assert.Equal(t, "OTT JAN0219 002 00 XYZF R OTT 04452844 000000 RRRRRRRRRRRRRRRR", lines[0])
}

func TestIMFV122_IncompleteDay(t *testing.T) {
	tests := []struct {
		name string
		s    domain.Stream
	}{
		{
			name: "runs into the next day",
			s:    domain.Stream{minuteTrace("UFX", day.Add(24*time.Hour-time.Minute), 1, 2, 3)},
		},
		{
			name: "starts the day before",
			s: domain.Stream{
				minuteTrace("UFX", day, 1),
				minuteTrace("UFY", day.Add(-2*time.Minute), 1, 2, 3),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := format.Write(&buf, format.IMFV122, tt.s, nil, format.Options{})
			require.ErrorIs(t, err, domain.ErrIncompleteDay)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestIMFV122_RejectsOffGridData(t *testing.T) {
	var buf bytes.Buffer
	err := format.Write(&buf, format.IMFV122, domain.Stream{minuteTrace("UFX", day.Add(30*time.Second), 1, 2)}, nil, format.Options{})
	require.ErrorIs(t, err, domain.ErrOffGrid)
}
