package gamification

import "unicode/utf8"

// splitMix is a splitmix64 generator. It is deterministic for a given seed,
// which is all quest generation needs.
type splitMix struct {
	state uint64
}

func newSplitMix(seed int64) *splitMix {
	return &splitMix{state: uint64(seed)}
}

func (s *splitMix) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// intn returns a value in [0, n). n must be positive.
func (s *splitMix) intn(n int) int {
	f := float64(s.next()>>11) / (1 << 53)
	return int(f * float64(n))
}

// anchorHash is the 32-bit multiply-by-31 string hash of the anchor, made
// non-negative.
func anchorHash(anchor string) int64 {
	var h int32
	for _, r := range anchor {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// questSeed derives the draw seed from the window anchor and the length of
// the user's identifying string.
func questSeed(anchor, identity string) int64 {
	return anchorHash(anchor) + int64(utf8.RuneCountInString(identity))
}
