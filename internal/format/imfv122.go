package format

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// IMFv1.22 carries one day of minute data in 24 hourly blocks. Each block is
// a header record followed by 30 records of two minutes each, values in
// tenths of nT:
//
//	OTT NOV0117 305 00 XYZF R OTT 04462844 000000 RRRRRRRRRRRRRRRR
//	 178538  -43210  510630 542663   178541  -43210  510630 542665
//
// Colatitude and east longitude in the header are also in tenths of a degree.
const (
	imfNull        = 99999.99
	imfInterval    = time.Minute
	imfDaySamples  = 1440
	imfDefaultGIN  = "OTT"
	imfMinutesHour = 60
)

var monthCodes = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

type imfv122 struct{}

func (imfv122) Prepare(s domain.Stream, opts Options) (domain.Stream, error) {
	ordered, err := prepare(s, opts)
	if err != nil {
		return nil, err
	}
	if iv := ordered[0].Interval; iv != imfInterval {
		return nil, fmt.Errorf("%w: IMFv1.22 requires minute data, got %s", domain.ErrUnsupportedInterval, iv)
	}
	return ordered, nil
}

// WriteHeader is a no-op; IMFv1.22 repeats its header per hour block.
func (imfv122) WriteHeader(io.Writer, domain.Stream, *domain.Station, Options) error {
	return nil
}

func (imfv122) WriteBody(w io.Writer, s domain.Stream, st *domain.Station, opts Options) error {
	dayStart := domain.DayStart(s[0].Start)
	start, end := dayStart, dayStart.Add(24*time.Hour-imfInterval)
	if first, last, ok := s.Extent(); ok {
		if first.Before(start) {
			start = first
		}
		if last.After(end) {
			end = last
		}
	}
	// The window grows to cover every sample, so data outside the day shows
	// up as a minute count other than one day's.
	win, err := domain.TrimAndPad(s, start, end, imfNull)
	if err != nil {
		return err
	}
	if win.Len() != imfDaySamples {
		return fmt.Errorf("%w: got %d minutes from %s, want %d from %s", domain.ErrIncompleteDay,
			win.Len(), start.Format(time.RFC3339), imfDaySamples, dayStart.Format(time.DateOnly))
	}

	gin := opts.GIN
	if gin == "" {
		gin = imfDefaultGIN
	}
	var colat10, lon10 int
	if st != nil {
		colat10 = int((90 - st.Latitude) * 10)
		lon10 = int(domain.EastLongitude(st.Longitude) * 10)
	}
	date := imfDate(dayStart)

	for hour := 0; hour < 24; hour++ {
		if _, err := fmt.Fprintf(w, "%3s %s %03d %02d XYZF R %s %04d%04d 000000 RRRRRRRRRRRRRRRR\n",
			s[0].Station, date, dayStart.YearDay(), hour, gin, colat10, lon10); err != nil {
			return err
		}
		for minute := 0; minute < imfMinutesHour; minute++ {
			i := hour*imfMinutesHour + minute
			if _, err := fmt.Fprintf(w, "%7d %7d %7d %6d",
				imfTenths(win.Columns[0][i]),
				imfTenths(win.Columns[1][i]),
				imfTenths(win.Columns[2][i]),
				imfTenths(win.Columns[3][i])); err != nil {
				return err
			}
			sep := "  "
			if minute%2 == 1 {
				sep = "\n"
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return err
			}
		}
	}
	return nil
}

// imfTenths scales a value to tenths, truncating toward zero.
func imfTenths(v float64) int {
	return int(math.Trunc(nullify(v, imfNull) * 10))
}

// imfDate renders MONDDYY, e.g. NOV0117.
func imfDate(t time.Time) string {
	return monthCodes[t.Month()-1] + t.Format("0206")
}

// imfFilename renders MONDDYY.STA, e.g. JAN1020.OTT.
func imfFilename(t domain.Trace) string {
	return imfDate(t.Start.UTC()) + "." + strings.ToUpper(t.Station)
}
