package plant

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// Synthesizer produces bounded pseudo-random and cyclical numeric values.
// Cyclical values are a pure function of time elapsed since the
// synthesizer's epoch, so tests can pin "now" with a fake clock.
type Synthesizer struct {
	clock clockwork.Clock
	epoch time.Time
	rng   *rand.Rand
}

// NewSynthesizer creates a synthesizer with its epoch set to the clock's
// current time.
func NewSynthesizer(clock clockwork.Clock) *Synthesizer {
	return &Synthesizer{
		clock: clock,
		epoch: clock.Now(),
		rng:   rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// BoundedRandom returns a value uniformly drawn from [min,max], perturbed
// by ±(value × noiseFraction) jitter and re-clamped to [min,max].
func (s *Synthesizer) BoundedRandom(min, max, noiseFraction float64) float64 {
	if min > max {
		min, max = max, min
	}
	value := min + s.rng.Float64()*(max-min)
	jitter := value * noiseFraction * (2*s.rng.Float64() - 1)
	return clamp(value+jitter, min, max)
}

// Cyclical returns base + amplitude·sin(2π·elapsedHours/periodHours + phase)
// where elapsedHours is measured from the synthesizer's epoch.
func (s *Synthesizer) Cyclical(base, amplitude, periodHours, phase float64) float64 {
	return CyclicalAt(base, amplitude, periodHours, phase, s.clock.Since(s.epoch))
}

// CyclicalAt is the pure form of Cyclical: it computes the cyclical value
// for an explicit elapsed duration. periodHours must be positive; callers
// validate configuration with ValidatePeriod before using it.
func CyclicalAt(base, amplitude, periodHours, phase float64, elapsed time.Duration) float64 {
	elapsedHours := elapsed.Hours()
	return base + amplitude*math.Sin(2*math.Pi*elapsedHours/periodHours+phase)
}

// ValidatePeriod rejects non-positive cycle periods. Guards the division
// inside CyclicalAt.
func ValidatePeriod(periodHours float64) error {
	if periodHours <= 0 {
		return fmt.Errorf("cycle period must be positive, got %v hours", periodHours)
	}
	return nil
}

// Chance returns true with the given probability.
func (s *Synthesizer) Chance(probability float64) bool {
	return s.rng.Float64() < probability
}

// IntN returns a non-negative pseudo-random int in [0,n).
func (s *Synthesizer) IntN(n int) int {
	return s.rng.Intn(n)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
