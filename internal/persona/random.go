package persona

import (
	"math/rand"
	"sync"
	"time"
)

// Random is a seeded, goroutine-safe random source. Sessions share one instance
// so a fixed seed reproduces a whole run.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a source seeded with seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value in [lo, hi).
func (r *Random) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rng.Float64()*(hi-lo)
}

// Duration returns a duration in [lo, hi]. Zero bounds yield zero.
func (r *Random) Duration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + time.Duration(r.rng.Int63n(int64(hi-lo)+1))
}
