package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate(t *testing.T) {
	tests := []struct {
		name       string
		current    int
		difficulty int
		correct    bool
		delta      int
		newRating  int
	}{{
		"even match won",
		1000, 1000, true,
		16, 1016,
	}, {
		"even match lost",
		1000, 1000, false,
		-16, 984,
	}, {
		"hard problem solved",
		1000, 2000, true,
		31, 1031,
	}, {
		"hard problem missed",
		1000, 2000, false,
		0, 1000,
	}, {
		"easy problem missed truncates toward zero",
		1100, 1000, false,
		-20, 1080,
	}, {
		"easy problem solved",
		1100, 1000, true,
		11, 1111,
	}, {
		"trivial problem missed",
		2000, 1000, false,
		-31, 1969,
	}, {
		"ceiling holds",
		3000, 0, true,
		0, 3000,
	}, {
		"floor holds",
		0, 3000, false,
		0, 0,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := Update(test.current, test.difficulty, test.correct)
			assert.Equal(t, test.delta, res.Delta)
			assert.Equal(t, test.newRating, res.NewRating)
			assert.Equal(t, test.correct, res.Solved)
		})
	}
}

func TestUpdateClampsOutOfRange(t *testing.T) {
	res := Update(2995, 3000, true)
	assert.Equal(t, 16, res.Delta)
	assert.Equal(t, MaxRating, res.NewRating)

	res = Update(5, 0, false)
	assert.Equal(t, -16, res.Delta)
	assert.Equal(t, MinRating, res.NewRating)

	res = Update(-200, -200, true)
	assert.Equal(t, 16, res.Delta)
	assert.Equal(t, MinRating, res.NewRating)

	res = Update(4000, 4000, false)
	assert.Equal(t, MaxRating, res.NewRating)
}

func TestUpdateDirectionMatchesOutcome(t *testing.T) {
	for r := MinRating; r <= MaxRating; r += 50 {
		for d := MinRating; d <= MaxRating; d += 50 {
			won := Update(r, d, true)
			lost := Update(r, d, false)
			if won.Delta < 0 || won.NewRating < r {
				t.Fatalf("correct answer lowered rating: r=%d d=%d delta=%d", r, d, won.Delta)
			}
			if lost.Delta > 0 || lost.NewRating > r {
				t.Fatalf("wrong answer raised rating: r=%d d=%d delta=%d", r, d, lost.Delta)
			}
			if won.NewRating > MaxRating || lost.NewRating < MinRating {
				t.Fatalf("rating escaped bounds: r=%d d=%d", r, d)
			}
		}
	}
}

func TestExpected(t *testing.T) {
	assert.Equal(t, 0.5, Expected(1200, 1200))
	assert.InDelta(t, 1.0/11.0, Expected(1000, 1400), 1e-12)
	assert.InDelta(t, 10.0/11.0, Expected(1400, 1000), 1e-12)
}
