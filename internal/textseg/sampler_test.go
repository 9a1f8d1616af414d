package textseg

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns the given values in order, then repeats the last one.
func scripted(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[min(i, len(values)-1)]
		i++
		if v >= n {
			v = n - 1
		}
		return v
	}
}

func TestSampler_Windows(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		s := NewSampler(DefaultSamplerConfig(), nil)
		assert.Nil(t, s.Windows(""))
	})

	t.Run("short text uses a third of its length", func(t *testing.T) {
		text := strings.Repeat("a", 3000)
		s := NewSampler(DefaultSamplerConfig(), rand.New(rand.NewPCG(1, 2)))

		windows := s.Windows(text)
		require.Len(t, windows, 5)
		for _, w := range windows {
			assert.Equal(t, 1000, utf8.RuneCountInString(w.Text))
			assert.GreaterOrEqual(t, w.Start, 0)
			assert.LessOrEqual(t, w.Start, 2000)
		}
	})

	t.Run("tiny text uses minimum window", func(t *testing.T) {
		text := strings.Repeat("b", 120)
		s := NewSampler(DefaultSamplerConfig(), nil)

		windows := s.Windows(text)
		require.Len(t, windows, 5)
		for _, w := range windows {
			assert.Equal(t, 0, w.Start)
			assert.Equal(t, text, w.Text)
		}
	})

	t.Run("long text windows never overlap", func(t *testing.T) {
		text := strings.Repeat("c", 200000)
		s := NewSampler(DefaultSamplerConfig(), rand.New(rand.NewPCG(7, 7)))
		// Collisions are retried, so scripted starts make the outcome exact.
		s.intN = scripted(0, 5000, 9999, 10000, 50000, 55000, 120000, 150000)

		windows := s.Windows(text)
		require.Len(t, windows, 5)

		starts := make([]int, len(windows))
		for i, w := range windows {
			starts[i] = w.Start
			assert.Equal(t, DefaultWindowSize, utf8.RuneCountInString(w.Text))
		}
		assert.Equal(t, []int{0, 10000, 50000, 120000, 150000}, starts)
	})

	t.Run("falls back to even spacing after repeated collisions", func(t *testing.T) {
		text := strings.Repeat("d", 25000)
		s := NewSampler(DefaultSamplerConfig(), nil)
		s.intN = scripted(0)

		windows := s.Windows(text)
		require.Len(t, windows, 5)

		maxStart := 25000 - DefaultWindowSize
		for i, w := range windows {
			if i == 0 {
				assert.Equal(t, 0, w.Start)
				continue
			}
			assert.Equal(t, int(float64(i)/5*float64(maxStart)), w.Start)
		}
	})

	t.Run("random placement stays in range", func(t *testing.T) {
		text := strings.Repeat("e", 80000)
		s := NewSampler(SamplerConfig{Size: 1000, Count: 5}, rand.New(rand.NewPCG(3, 4)))

		windows := s.Windows(text)
		require.Len(t, windows, 5)
		for i, a := range windows {
			assert.LessOrEqual(t, a.Start+1000, 80000)
			for _, b := range windows[i+1:] {
				assert.False(t, a.Start < b.Start+1000 && b.Start < a.Start+1000,
					"windows at %d and %d overlap", a.Start, b.Start)
			}
		}
	})
}
