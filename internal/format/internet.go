package format

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// The internet format is one space-delimited record per sample, not tied to
// a day:
//
//	MEA 2017 325:17:39:00 13567.13 3501.27 55422.16 57171.99
//	OBS YYYY DOY:HH:MM:SS X Y Z F
const internetNull = 99999.00

type internet struct{}

func (internet) Prepare(s domain.Stream, opts Options) (domain.Stream, error) {
	return prepare(s, opts)
}

// WriteHeader is a no-op; the internet format has no header.
func (internet) WriteHeader(io.Writer, domain.Stream, *domain.Station, Options) error {
	return nil
}

func (internet) WriteBody(w io.Writer, s domain.Stream, _ *domain.Station, _ Options) error {
	start, end, ok := s.Extent()
	if !ok {
		return nil
	}
	win, err := domain.TrimAndPad(s, start, end, internetNull)
	if err != nil {
		return err
	}

	layout := "15:04:05"
	if win.Interval < time.Second {
		layout = "15:04:05.000"
	}
	for i := 0; i < win.Len(); i++ {
		ts := win.TimeAt(i).UTC()
		if _, err := fmt.Fprintf(w, "%s %04d %03d:%s %.2f %.2f %.2f %.2f\n",
			win.Station, ts.Year(), ts.YearDay(), ts.Format(layout),
			nullify(win.Columns[0][i], internetNull),
			nullify(win.Columns[1][i], internetNull),
			nullify(win.Columns[2][i], internetNull),
			nullify(win.Columns[3][i], internetNull)); err != nil {
			return err
		}
	}
	return nil
}
