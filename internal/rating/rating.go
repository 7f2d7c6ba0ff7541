package rating

import "math"

const (
	DefaultRating = 1000
	MinRating     = 0
	MaxRating     = 3000
	KFactor       = 32
)

// Result is the outcome of a single attempt.
type Result struct {
	NewRating int
	Delta     int
	// Solved reports whether the caller must bump the solved counter.
	Solved bool
}

// Expected returns the probability that a player rated current solves a
// problem of the given difficulty.
func Expected(current, difficulty int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(difficulty-current)/400.0))
}

// Update applies one attempt to a rating. The delta is truncated toward zero
// and only the new rating is clamped, so out-of-range inputs are accepted.
func Update(current, difficulty int, correct bool) Result {
	actual := 0.0
	if correct {
		actual = 1.0
	}
	delta := int(math.Trunc(KFactor * (actual - Expected(current, difficulty))))
	return Result{
		NewRating: Clamp(current + delta),
		Delta:     delta,
		Solved:    correct,
	}
}

// Clamp bounds r to [MinRating, MaxRating].
func Clamp(r int) int {
	switch {
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	default:
		return r
	}
}
