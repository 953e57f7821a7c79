// Package format serializes aligned geomagnetic streams into the fixed-width
// text formats exchanged between observatories: IAGA-2002, IMFv1.22, and the
// internet format.
package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// ErrUnsupportedFormat is returned for a format name or capability that does
// not exist.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is one of the supported output encodings.
type Format int

const (
	IAGA2002 Format = iota
	IMFV122
	Internet
)

// All lists every supported format.
var All = []Format{IAGA2002, IMFV122, Internet}

func (f Format) String() string {
	switch f {
	case IAGA2002:
		return "iaga2002"
	case IMFV122:
		return "imfv122"
	case Internet:
		return "internet"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Parse resolves a case-insensitive format name.
func Parse(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iaga2002", "iaga-2002":
		return IAGA2002, nil
	case "imfv122", "imfv1.22", "imf":
		return IMFV122, nil
	case "internet":
		return Internet, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if f.encoder() == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Options tune encoder output.
type Options struct {
	// Source overrides the IAGA-2002 "Source of Data" header, which otherwise
	// comes from the station descriptor.
	Source string

	// GIN is the IMFv1.22 geomagnetic information node code. Defaults to OTT.
	GIN string

	// Strict rejects streams missing a component instead of padding it with
	// an empty placeholder.
	Strict bool
}

// Encoder is the capability every format implements. Prepare validates the
// stream and returns it ordered X, Y, Z, F; the writers receive only prepared
// streams.
type Encoder interface {
	Prepare(s domain.Stream, opts Options) (domain.Stream, error)
	WriteHeader(w io.Writer, s domain.Stream, st *domain.Station, opts Options) error
	WriteBody(w io.Writer, s domain.Stream, st *domain.Station, opts Options) error
}

func (f Format) encoder() Encoder {
	switch f {
	case IAGA2002:
		return iaga2002{}
	case IMFV122:
		return imfv122{}
	case Internet:
		return internet{}
	default:
		return nil
	}
}

// Write encodes s into w. Bytes already written are left in place when
// encoding fails part way.
func Write(w io.Writer, f Format, s domain.Stream, st *domain.Station, opts Options) error {
	enc := f.encoder()
	if enc == nil {
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	prepared, err := enc.Prepare(s, opts)
	if err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}

	bw := bufio.NewWriter(w)
	if err := enc.WriteHeader(bw, prepared, st, opts); err != nil {
		return fmt.Errorf("write %s header: %w", f, err)
	}
	if err := enc.WriteBody(bw, prepared, st, opts); err != nil {
		_ = bw.Flush()
		return fmt.Errorf("write %s body: %w", f, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

// WriteFile encodes s into a newly created file at path.
func WriteFile(path string, f Format, s domain.Stream, st *domain.Station, opts Options) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(file, f, s, st, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// prepare runs the checks shared by every format: common network, station,
// and sampling interval, then one trace per component in XYZF order.
func prepare(s domain.Stream, opts Options) (domain.Stream, error) {
	if len(s) == 0 {
		return nil, domain.ErrEmptyStream
	}
	if err := domain.CheckCommonIdentity(s, domain.FieldNetwork, domain.FieldStation, domain.FieldInterval); err != nil {
		return nil, err
	}
	if opts.Strict {
		for _, c := range domain.Components {
			if len(s.Select(c)) == 0 {
				return nil, fmt.Errorf("%w %c", domain.ErrMissingComponent, c)
			}
		}
	}
	return domain.OrderAndPad(s, domain.Components)
}

// nullify maps values at or above the null sentinel, and NaN, to the sentinel.
func nullify(v, null float64) float64 {
	if math.IsNaN(v) || v >= null {
		return null
	}
	return v
}

func componentLetters(s domain.Stream) string {
	var b strings.Builder
	for _, t := range s {
		b.WriteByte(t.Component())
	}
	return b.String()
}
