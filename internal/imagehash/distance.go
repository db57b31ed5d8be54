package imagehash

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Distance returns the Hamming distance between two hex-encoded 64-bit
// perceptual hashes. Hashes may carry a "p:" algorithm prefix.
func Distance(a, b string) (int, error) {
	ha, err := parseHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := parseHash(b)
	if err != nil {
		return 0, err
	}
	return bits.OnesCount64(ha ^ hb), nil
}

func parseHash(h string) (uint64, error) {
	h = strings.TrimSpace(strings.ToLower(h))
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[i+1:]
	}
	h = strings.TrimPrefix(h, "0x")
	if h == "" {
		return 0, fmt.Errorf("empty perceptual hash")
	}
	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed perceptual hash %q: %w", h, err)
	}
	return v, nil
}
