package textseg

import (
	"math/rand/v2"
)

const (
	// DefaultWindowSize is the passage length in runes for long texts.
	DefaultWindowSize = 10000
	// DefaultWindowCount is the number of passages per quiz.
	DefaultWindowCount = 5

	minShortWindow       = 500
	maxPlacementAttempts = 50
)

// Window is one sampled passage.
type Window struct {
	Start int // rune offset into the source text
	Text  string
}

// SamplerConfig holds configuration for the sampler.
type SamplerConfig struct {
	// Size of each window in runes for texts longer than Size
	Size int
	// Number of windows to sample
	Count int
}

// DefaultSamplerConfig returns the five 10,000-rune window policy.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Size:  DefaultWindowSize,
		Count: DefaultWindowCount,
	}
}

// Sampler picks passages out of a chapter text.
type Sampler struct {
	config SamplerConfig
	intN   func(n int) int
}

// NewSampler creates a sampler. A nil rng uses a randomly seeded PCG.
func NewSampler(config SamplerConfig, rng *rand.Rand) *Sampler {
	if config.Size <= 0 {
		config.Size = DefaultWindowSize
	}
	if config.Count <= 0 {
		config.Count = DefaultWindowCount
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{config: config, intN: rng.IntN}
}

// Windows samples Count passages from text.
//
// Long texts get non-overlapping windows of Size runes placed at random.
// After too many collisions a window falls back to an evenly spaced
// position. Short texts get smaller windows (a third of the text, at least
// 500 runes) that may overlap.
func (s *Sampler) Windows(text string) []Window {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	windows := make([]Window, 0, s.config.Count)

	if total <= s.config.Size {
		size := max(total/3, minShortWindow)
		maxStart := max(0, total-size)
		for range s.config.Count {
			start := s.intN(maxStart + 1)
			windows = append(windows, slice(runes, start, size))
		}
		return windows
	}

	size := s.config.Size
	maxStart := total - size
	for i := range s.config.Count {
		var start int
		attempts := 0
		for {
			start = s.intN(maxStart)
			attempts++
			if !overlaps(windows, start, size) {
				break
			}
			if attempts > maxPlacementAttempts {
				start = int(float64(i) / float64(s.config.Count) * float64(maxStart))
				break
			}
		}
		windows = append(windows, slice(runes, start, size))
	}
	return windows
}

func overlaps(windows []Window, start, size int) bool {
	for _, w := range windows {
		if start < w.Start+size && w.Start < start+size {
			return true
		}
	}
	return false
}

func slice(runes []rune, start, size int) Window {
	end := min(start+size, len(runes))
	return Window{Start: start, Text: string(runes[start:end])}
}
