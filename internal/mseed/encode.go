package mseed

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

const (
	// RecordLen is the size of records written by Encode.
	RecordLen       = 512
	recordLenExp    = 9
	encodeDataStart = 64
	float64PerRec   = (RecordLen - encodeDataStart) / 8
)

// Encode writes each trace of s as big-endian float64 records of RecordLen
// bytes. Missing samples are written as NaN.
func Encode(w io.Writer, s domain.Stream) error {
	seq := 1
	for _, t := range s {
		if t.Interval <= 0 {
			return fmt.Errorf("encode %s: invalid interval %s", t.ID(), t.Interval)
		}
		for first := 0; first < t.Len(); first += float64PerRec {
			last := min(first+float64PerRec, t.Len())
			rec := encodeRecord(seq, t, first, last)
			if _, err := w.Write(rec); err != nil {
				return fmt.Errorf("encode %s: %w", t.ID(), err)
			}
			seq++
		}
	}
	return nil
}

func encodeRecord(seq int, t domain.Trace, first, last int) []byte {
	rec := make([]byte, RecordLen)
	copy(rec[0:6], fmt.Sprintf("%06d", seq%1_000_000))
	rec[6] = 'D'
	rec[7] = ' '
	putCode(rec[8:13], t.Station)
	putCode(rec[13:15], t.Location)
	putCode(rec[15:18], t.Channel)
	putCode(rec[18:20], t.Network)
	putBTime(rec[20:30], t.TimeAt(first))
	binary.BigEndian.PutUint16(rec[30:32], uint16(last-first))
	factor, mult := rateFactor(t.Interval)
	binary.BigEndian.PutUint16(rec[32:34], uint16(factor))
	binary.BigEndian.PutUint16(rec[34:36], uint16(mult))
	rec[39] = 1
	binary.BigEndian.PutUint16(rec[44:46], encodeDataStart)
	binary.BigEndian.PutUint16(rec[46:48], fixedHeaderLen)

	b := rec[fixedHeaderLen:]
	binary.BigEndian.PutUint16(b[0:2], blockette1000Type)
	binary.BigEndian.PutUint16(b[2:4], 0)
	b[4] = EncodingFloat64
	b[5] = 1
	b[6] = recordLenExp

	data := rec[encodeDataStart:]
	for i, smp := range t.Samples[first:last] {
		v := math.NaN()
		if smp.Valid {
			v = smp.Value
		}
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return rec
}
