// Package mseed reads and writes SEED 2.x data records (miniSEED), the
// waveform encoding served by FDSN dataselect services.
package mseed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Data encodings carried in blockette 1000.
const (
	EncodingInt16   = 1
	EncodingInt32   = 3
	EncodingFloat32 = 4
	EncodingFloat64 = 5
	EncodingSteim1  = 10
	EncodingSteim2  = 11
)

const (
	fixedHeaderLen    = 48
	blockette100Type  = 100
	blockette1000Type = 1000
	timeCorrApplied   = 0x02
	minRecordLen      = 128
)

var (
	// ErrMalformedRecord is returned for records that cannot be parsed.
	ErrMalformedRecord = errors.New("malformed miniSEED record")
	// ErrUnsupportedEncoding is returned for data encodings this package cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported miniSEED encoding")
)

// header is the parsed fixed section plus the blockettes that matter for
// decoding.
type header struct {
	network  string
	station  string
	location string
	channel  string
	start    time.Time
	samples  int
	interval time.Duration

	dataOffset int
	encoding   int
	order      binary.ByteOrder
	recordLen  int
}

// parseHeader reads the fixed header of the record starting at buf[0].
// buf must hold at least the fixed header and its blockettes.
func parseHeader(buf []byte) (header, error) {
	if len(buf) < fixedHeaderLen {
		return header{}, fmt.Errorf("%w: %d bytes", ErrMalformedRecord, len(buf))
	}
	order := headerOrder(buf)

	h := header{
		station:    trimCode(buf[8:13]),
		location:   trimCode(buf[13:15]),
		channel:    trimCode(buf[15:18]),
		network:    trimCode(buf[18:20]),
		samples:    int(order.Uint16(buf[30:32])),
		dataOffset: int(order.Uint16(buf[44:46])),
		order:      order,
		encoding:   -1,
	}
	h.start = parseBTime(buf[20:30], order)
	if buf[36]&timeCorrApplied == 0 {
		corr := int32(order.Uint32(buf[40:44]))
		h.start = h.start.Add(time.Duration(corr) * 100 * time.Microsecond)
	}
	rate := sampleRate(int16(order.Uint16(buf[32:34])), int16(order.Uint16(buf[34:36])))

	next := int(order.Uint16(buf[46:48]))
	for hops := 0; next != 0; hops++ {
		if hops > int(buf[39])+1 || next+4 > len(buf) {
			return header{}, fmt.Errorf("%w: blockette chain at %d", ErrMalformedRecord, next)
		}
		kind := order.Uint16(buf[next : next+2])
		following := int(order.Uint16(buf[next+2 : next+4]))
		switch kind {
		case blockette1000Type:
			if next+8 > len(buf) {
				return header{}, fmt.Errorf("%w: truncated blockette 1000", ErrMalformedRecord)
			}
			h.encoding = int(buf[next+4])
			if buf[next+5] == 0 {
				h.order = binary.LittleEndian
			} else {
				h.order = binary.BigEndian
			}
			h.recordLen = 1 << buf[next+6]
		case blockette100Type:
			if next+8 > len(buf) {
				return header{}, fmt.Errorf("%w: truncated blockette 100", ErrMalformedRecord)
			}
			if r := math.Float32frombits(order.Uint32(buf[next+4 : next+8])); r > 0 {
				rate = float64(r)
			}
		}
		next = following
	}
	if h.encoding < 0 {
		return header{}, fmt.Errorf("%w: no blockette 1000", ErrMalformedRecord)
	}
	if h.recordLen < minRecordLen || h.dataOffset >= h.recordLen {
		return header{}, fmt.Errorf("%w: record length %d, data offset %d", ErrMalformedRecord, h.recordLen, h.dataOffset)
	}
	if rate > 0 {
		h.interval = time.Duration(math.Round(float64(time.Second) / rate))
	}
	return h, nil
}

// headerOrder guesses the header byte order from the BTIME year, which must
// fall in a plausible range when read the right way round.
func headerOrder(buf []byte) binary.ByteOrder {
	if y := binary.BigEndian.Uint16(buf[20:22]); y >= 1900 && y <= 2100 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func parseBTime(b []byte, order binary.ByteOrder) time.Time {
	year := int(order.Uint16(b[0:2]))
	doy := int(order.Uint16(b[2:4]))
	frac := int(order.Uint16(b[8:10]))
	return time.Date(year, time.January, 1, int(b[4]), int(b[5]), int(b[6]), frac*100_000, time.UTC).
		AddDate(0, 0, doy-1)
}

func putBTime(b []byte, t time.Time) {
	t = t.UTC()
	binary.BigEndian.PutUint16(b[0:2], uint16(t.Year()))
	binary.BigEndian.PutUint16(b[2:4], uint16(t.YearDay()))
	b[4] = byte(t.Hour())
	b[5] = byte(t.Minute())
	b[6] = byte(t.Second())
	b[7] = 0
	binary.BigEndian.PutUint16(b[8:10], uint16(t.Nanosecond()/100_000))
}

// sampleRate resolves the SEED rate factor and multiplier into samples per
// second.
func sampleRate(factor, mult int16) float64 {
	if mult == 0 {
		mult = 1
	}
	f, m := float64(factor), float64(mult)
	switch {
	case factor == 0:
		return 0
	case factor > 0 && mult > 0:
		return f * m
	case factor > 0 && mult < 0:
		return -f / m
	case factor < 0 && mult > 0:
		return -m / f
	default:
		return 1 / (f * m)
	}
}

// rateFactor is the inverse of sampleRate for the intervals this package
// writes: whole seconds become a negative period factor, faster rates a
// positive frequency factor.
func rateFactor(interval time.Duration) (factor, mult int16) {
	if interval >= time.Second && interval%time.Second == 0 && interval/time.Second <= math.MaxInt16 {
		return -int16(interval / time.Second), 1
	}
	return int16(math.Round(float64(time.Second) / float64(interval))), 1
}

func trimCode(b []byte) string {
	return strings.TrimSpace(string(b))
}

func putCode(b []byte, code string) {
	for i := range b {
		if i < len(code) {
			b[i] = code[i]
		} else {
			b[i] = ' '
		}
	}
}
