package mseed

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// Decode reads every record from r. Records of the same channel that follow
// each other without a gap are joined into one trace; a gap, overlap, or rate
// change starts a new trace. NaN float samples decode as missing.
func Decode(r io.Reader) (domain.Stream, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read miniSEED: %w", err)
	}

	var out domain.Stream
	open := make(map[string]int)
	for off := 0; off < len(buf); {
		h, err := parseHeader(buf[off:])
		if err != nil {
			return nil, fmt.Errorf("record at byte %d: %w", off, err)
		}
		if off+h.recordLen > len(buf) {
			return nil, fmt.Errorf("record at byte %d: %w: truncated to %d of %d bytes",
				off, ErrMalformedRecord, len(buf)-off, h.recordLen)
		}
		samples, err := decodeSamples(buf[off+h.dataOffset:off+h.recordLen], h)
		if err != nil {
			return nil, fmt.Errorf("record at byte %d: %w", off, err)
		}
		off += h.recordLen

		tr := domain.Trace{
			Network:  h.network,
			Station:  h.station,
			Location: h.location,
			Channel:  h.channel,
			Interval: h.interval,
			Start:    h.start,
			Samples:  samples,
		}
		key := tr.ID()
		if i, ok := open[key]; ok && continues(out[i], tr) {
			out[i].Samples = append(out[i].Samples, tr.Samples...)
			continue
		}
		open[key] = len(out)
		out = append(out, tr)
	}
	return out, nil
}

// continues reports whether next starts one interval after prev ends, within
// half an interval.
func continues(prev, next domain.Trace) bool {
	if prev.Interval != next.Interval || prev.Interval <= 0 {
		return false
	}
	expected := prev.Start.Add(time.Duration(len(prev.Samples)) * prev.Interval)
	d := next.Start.Sub(expected)
	if d < 0 {
		d = -d
	}
	return d <= prev.Interval/2
}

func decodeSamples(data []byte, h header) ([]domain.Sample, error) {
	n := h.samples
	out := make([]domain.Sample, 0, n)
	need := func(width int) error {
		if n*width > len(data) {
			return fmt.Errorf("%w: %d samples of %d bytes in %d bytes", ErrMalformedRecord, n, width, len(data))
		}
		return nil
	}

	switch h.encoding {
	case EncodingInt16:
		if err := need(2); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			out = append(out, domain.Value(float64(int16(h.order.Uint16(data[i*2:])))))
		}
	case EncodingInt32:
		if err := need(4); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			out = append(out, domain.Value(float64(int32(h.order.Uint32(data[i*4:])))))
		}
	case EncodingFloat32:
		if err := need(4); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			out = append(out, floatSample(float64(math.Float32frombits(h.order.Uint32(data[i*4:])))))
		}
	case EncodingFloat64:
		if err := need(8); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			out = append(out, floatSample(math.Float64frombits(h.order.Uint64(data[i*8:]))))
		}
	case EncodingSteim1, EncodingSteim2:
		ints, err := decodeSteim(data, n, h.encoding-EncodingSteim1+1)
		if err != nil {
			return nil, err
		}
		for _, v := range ints {
			out = append(out, domain.Value(float64(v)))
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEncoding, h.encoding)
	}
	return out, nil
}

func floatSample(v float64) domain.Sample {
	if math.IsNaN(v) {
		return domain.Missing()
	}
	return domain.Value(v)
}
