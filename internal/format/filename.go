package format

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

var iagaFileDataTypes = map[byte]string{
	'R': "v",
	'D': "d",
}

var iagaFileIntervals = map[byte]string{
	'L': "sec",
	'U': "min",
}

// Filename returns the conventional file name for a product built from t,
// using the trace's station, start date, location and channel codes:
//
//	IAGA-2002  {station_lower}{YYYYMMDD}{datatype}{interval}.{interval}  ott20200110vmin.min
//	IMFv1.22   {MON}{DD}{YY}.{STATION_UPPER}                             JAN1020.OTT
//
// The internet format has no naming convention.
func (f Format) Filename(t domain.Trace) (string, error) {
	switch f {
	case IAGA2002:
		return iagaFilename(t), nil
	case IMFV122:
		return imfFilename(t), nil
	default:
		return "", fmt.Errorf("%w: %s has no file naming convention", ErrUnsupportedFormat, f)
	}
}

func iagaFilename(t domain.Trace) string {
	dataType, ok := iagaFileDataTypes[t.DataTypeCode()]
	if !ok {
		dataType = "v"
	}
	interval, ok := iagaFileIntervals[t.RateCode()]
	if !ok {
		interval = "raw"
	}
	return fmt.Sprintf("%s%s%s%s.%s",
		strings.ToLower(t.Station), t.Start.UTC().Format("20060102"), dataType, interval, interval)
}
