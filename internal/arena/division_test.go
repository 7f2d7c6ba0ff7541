package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivisionFor(t *testing.T) {
	tests := []struct {
		rating   int
		expected Division
	}{
		{-50, Novice},
		{0, Novice},
		{499, Novice},
		{500, Euclid},
		{1000, Euclid},
		{1549, Euclid},
		{1550, Einstein},
		{3000, Einstein},
		{9000, Einstein},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, DivisionFor(test.rating), "rating %d", test.rating)
	}
}

func TestParseDivision(t *testing.T) {
	for _, d := range Divisions {
		got, err := ParseDivision(string(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}

	_, err := ParseDivision("euclid")
	assert.Error(t, err)
	_, err = ParseDivision("")
	assert.Error(t, err)
}
