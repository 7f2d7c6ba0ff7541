package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "Novice", Title(499))
	assert.Equal(t, "Apprentice", Title(500))
	assert.Equal(t, "Adept", Title(DefaultRating))
	assert.Equal(t, "Master", Title(1999))
	assert.Equal(t, "Grandmaster", Title(MaxRating))
}

func TestRecommendedDifficulty(t *testing.T) {
	tests := []struct {
		name     string
		grade    int
		age      int
		rating   int
		expected int
	}{
		{"grade 9 at default rating", 9, 0, 1000, 1250},
		{"grade beats age", 1, 17, 1000, 600},
		{"unknown grade falls back to default", 13, 0, 1000, 1000},
		{"age only", 0, 12, 1000, 900},
		{"rating only", 0, 0, 1800, 1800},
		{"lower bound", 1, 0, 0, 200},
		{"upper bound", 0, 0, 3000, 2500},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, RecommendedDifficulty(test.grade, test.age, test.rating))
		})
	}
}
