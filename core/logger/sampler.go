package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets through the first num events out of every den. A zero
// ratio disables sampling.
type ratioSampler struct {
	mu       sync.Mutex
	num, den int
	seen     int
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the window.
func (s *ratioSampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = 0
	if num <= 0 || den <= 0 {
		s.num, s.den = 0, 0
		return
	}
	s.num, s.den = min(num, den), den
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	pass := s.seen < s.num
	s.seen = (s.seen + 1) % s.den
	return pass
}

// parseRatio accepts "n/d" or a bare "d" meaning 1/d. Anything else,
// including "0", yields 0/0.
func parseRatio(ratio string) (int, int) {
	ratio = strings.TrimSpace(ratio)
	if n, d, ok := strings.Cut(ratio, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	den, err := strconv.Atoi(ratio)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
