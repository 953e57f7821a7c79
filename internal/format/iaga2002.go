package format

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// IAGA-2002 layout, see https://www.ngdc.noaa.gov/IAGA/vdat/IAGA2002/iaga2002format.html
//
// Header records begin with a space in column 1 and end with | in column 70.
// Labels start in column 2, values in column 25. Records end with CRLF.
//
//	 Format                  IAGA-2002                                   |
//	 Source of Data          Geological Survey of Canada (GSC)           |
//	 ...
//	DATE       TIME         DOY     OTTX      OTTY      OTTZ      OTTF   |
//	2017-11-10 00:00:00.000 314     17845.50  -4328.24  51046.59  54250.70
const (
	iagaNull = 99999.00
	iagaEOL  = "\r\n"
)

var iagaIntervalTypes = map[byte]string{
	'M': "0.125 second",
	'L': "1 second",
	'U': "1 minute (00:30-01:29)",
}

var iagaDataTypes = map[byte]string{
	'R': "variation",
	'D': "definitive",
}

var iagaComments = []string{
	" # DECBAS                000000 (Baseline declination value in       |",
	" #                       tenths of minutes East (0-216,000)).        |",
}

type iaga2002 struct{}

func (iaga2002) Prepare(s domain.Stream, opts Options) (domain.Stream, error) {
	return prepare(s, opts)
}

func (iaga2002) WriteHeader(w io.Writer, s domain.Stream, st *domain.Station, opts Options) error {
	source := opts.Source
	if source == "" && st != nil {
		source = st.Source
	}
	name, lat, lon, elev := "", "0", "0", "0"
	if st != nil {
		name = st.Name
		lat = fmt.Sprintf("%.3f", st.Latitude)
		lon = fmt.Sprintf("%.3f", domain.EastLongitude(st.Longitude))
		elev = fmt.Sprintf("%.3f", st.Elevation)
	}
	first := s[0]

	fields := [][2]string{
		{"Format", "IAGA-2002"},
		{"Source of Data", source},
		{"Station Name", name},
		{"IAGA CODE", first.Station},
		{"Geodetic Latitude", lat},
		{"Geodetic Longitude", lon},
		{"Elevation", elev},
		{"Reported", componentLetters(s)},
		{"Sensor Orientation", ""},
		{"Digital Sampling", ""},
		{"Data Interval Type", iagaIntervalTypes[first.RateCode()]},
		{"Data Type", iagaDataTypes[first.DataTypeCode()]},
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, " %-23s %-44s|%s", f[0], f[1], iagaEOL); err != nil {
			return err
		}
	}
	for _, c := range iagaComments {
		if _, err := io.WriteString(w, c+iagaEOL); err != nil {
			return err
		}
	}
	return nil
}

func (iaga2002) WriteBody(w io.Writer, s domain.Stream, _ *domain.Station, _ Options) error {
	dayStart := domain.DayStart(s[0].Start)
	end, hasData := iagaEnd(s, dayStart)
	if !end.Before(dayStart.Add(24 * time.Hour)) {
		return fmt.Errorf("%w: data ends %s, day starts %s", domain.ErrDayRange,
			end.Format(time.RFC3339), dayStart.Format(time.DateOnly))
	}

	station := s[0].Station
	comps := componentLetters(s)
	if _, err := fmt.Fprintf(w, "DATE       TIME         DOY     %3s%c      %3s%c      %3s%c      %3s%c   |%s",
		station, comps[0], station, comps[1], station, comps[2], station, comps[3], iagaEOL); err != nil {
		return err
	}
	if !hasData {
		return nil
	}

	win, err := domain.TrimAndPad(s, dayStart, end, iagaNull)
	if err != nil {
		return err
	}
	for i := 0; i < win.Len(); i++ {
		ts := win.TimeAt(i)
		if _, err := fmt.Fprintf(w, "%s %03d    %9.2f %9.2f %9.2f %9.2f%s",
			ts.Format("2006-01-02 15:04:05.000"), ts.YearDay(),
			nullify(win.Columns[0][i], iagaNull),
			nullify(win.Columns[1][i], iagaNull),
			nullify(win.Columns[2][i], iagaNull),
			nullify(win.Columns[3][i], iagaNull),
			iagaEOL); err != nil {
			return err
		}
	}
	return nil
}

// iagaEnd returns the latest sample time in s. A stream without samples ends
// at the start of its day.
func iagaEnd(s domain.Stream, dayStart time.Time) (time.Time, bool) {
	_, end, ok := s.Extent()
	if !ok {
		return dayStart, false
	}
	return end, true
}
