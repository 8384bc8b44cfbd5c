package common

import (
	"encoding/binary"
	"math"
	"strings"
)

// BytesPerSample is the size of one interleaved float32 I/Q pair
const BytesPerSample = 8

// SplitURL splits "<scheme>://<args>" into its parts. A URL without a
// scheme returns an empty scheme and the whole string as args.
func SplitURL(url string) (scheme, args string) {
	if before, after, found := strings.Cut(url, "://"); found {
		return strings.ToLower(before), after
	}
	return "", url
}

// DecodeSamples converts little-endian float32 I/Q pairs into samples. It
// returns the number of samples written to dst; trailing bytes that do not
// form a full pair are ignored.
func DecodeSamples(dst []complex64, src []byte) int {
	n := min(len(dst), len(src)/BytesPerSample)
	for i := 0; i < n; i++ {
		off := i * BytesPerSample
		re := math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(src[off+4:]))
		dst[i] = complex(re, im)
	}
	return n
}

// EncodeSamples appends samples as little-endian float32 I/Q pairs
func EncodeSamples(dst []byte, samples []complex64) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(real(s)))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(imag(s)))
	}
	return dst
}
