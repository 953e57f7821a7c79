package mseed

import (
	"encoding/binary"
	"fmt"
)

const (
	steimFrameLen   = 64
	steimFrameWords = 16
)

// decodeSteim unpacks Steim-1 or Steim-2 compressed frames into n integer
// samples. Steim frames are always big-endian.
func decodeSteim(data []byte, n, version int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	diffs := make([]int32, 0, n)
	var x0, xn int32

	for f := 0; f+steimFrameLen <= len(data) && len(diffs) < n; f += steimFrameLen {
		frame := data[f : f+steimFrameLen]
		ctrl := binary.BigEndian.Uint32(frame[0:4])
		for w := 1; w < steimFrameWords; w++ {
			word := binary.BigEndian.Uint32(frame[w*4 : w*4+4])
			nib := (ctrl >> (30 - 2*uint(w))) & 0x3
			if f == 0 && w == 1 {
				x0 = int32(word)
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(word)
				continue
			}
			var err error
			if version == 1 {
				diffs, err = appendSteim1(diffs, word, nib)
			} else {
				diffs, err = appendSteim2(diffs, word, nib)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if len(diffs) < n {
		return nil, fmt.Errorf("%w: steim%d frames hold %d of %d samples", ErrMalformedRecord, version, len(diffs), n)
	}

	out := make([]int32, n)
	out[0] = x0
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + diffs[i]
	}
	if out[n-1] != xn {
		return nil, fmt.Errorf("%w: steim%d reverse integration constant %d, last sample %d",
			ErrMalformedRecord, version, xn, out[n-1])
	}
	return out, nil
}

func appendSteim1(diffs []int32, word, nib uint32) ([]int32, error) {
	switch nib {
	case 0:
		return diffs, nil
	case 1:
		return appendPacked(diffs, word, 8, 4), nil
	case 2:
		return appendPacked(diffs, word, 16, 2), nil
	default:
		return append(diffs, int32(word)), nil
	}
}

func appendSteim2(diffs []int32, word, nib uint32) ([]int32, error) {
	dnib := word >> 30
	switch {
	case nib == 0:
		return diffs, nil
	case nib == 1:
		return appendPacked(diffs, word, 8, 4), nil
	case nib == 2 && dnib == 1:
		return appendPacked(diffs, word, 30, 1), nil
	case nib == 2 && dnib == 2:
		return appendPacked(diffs, word, 15, 2), nil
	case nib == 2 && dnib == 3:
		return appendPacked(diffs, word, 10, 3), nil
	case nib == 3 && dnib == 0:
		return appendPacked(diffs, word, 6, 5), nil
	case nib == 3 && dnib == 1:
		return appendPacked(diffs, word, 5, 6), nil
	case nib == 3 && dnib == 2:
		return appendPacked(diffs, word, 4, 7), nil
	default:
		return nil, fmt.Errorf("%w: steim2 nibble %d, dnib %d", ErrMalformedRecord, nib, dnib)
	}
}

// appendPacked sign-extends count fields of width bits, packed right-aligned
// and most significant first.
func appendPacked(diffs []int32, word uint32, width, count uint) []int32 {
	mask := uint32(1)<<width - 1
	for i := count; i > 0; i-- {
		v := (word >> ((i - 1) * width)) & mask
		shift := 32 - width
		diffs = append(diffs, int32(v<<shift)>>shift)
	}
	return diffs
}
