package gradescale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Mark
	}{
		{100, Mark{"A", 4.0}},
		{90, Mark{"A", 4.0}},
		{89.99, Mark{"B+", 3.5}},
		{85, Mark{"B+", 3.5}},
		{84.5, Mark{"B", 3.0}},
		{80, Mark{"B", 3.0}},
		{78, Mark{"C+", 2.5}},
		{75, Mark{"C+", 2.5}},
		{70, Mark{"C", 2.0}},
		{65, Mark{"D+", 1.5}},
		{60, Mark{"D", 1.0}},
		{50, Mark{"E", 0.5}},
		{49.99, Mark{"F", 0.0}},
		{0, Mark{"F", 0.0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForScore(tt.score), "score %v", tt.score)
	}
}

func TestForScore_monotonic(t *testing.T) {
	known := make(map[string]bool)
	for _, l := range Letters() {
		known[l] = true
	}

	prev := ForScore(50)
	for s := 50.0; s < 100; s += 0.25 {
		got := ForScore(s)
		assert.True(t, known[got.Letter], "unknown letter %q for %v", got.Letter, s)
		assert.GreaterOrEqual(t, got.Point, prev.Point, "score %v", s)
		prev = got
	}
}

func TestForScore_failing(t *testing.T) {
	for s := -10.0; s < 50; s += 0.5 {
		got := ForScore(s)
		assert.Equal(t, "F", got.Letter)
		assert.Equal(t, 0.0, got.Point)
	}
}

func TestLetter(t *testing.T) {
	assert.False(t, Letter(null.Float64{}).Valid)
	assert.Equal(t, null.StringFrom("B"), Letter(null.Float64From(82)))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(0))
	assert.True(t, InRange(100))
	assert.True(t, InRange(55.5))
	assert.False(t, InRange(-0.01))
	assert.False(t, InRange(100.01))
}

func TestRound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{22.0 / 7.0, 3.14},
		{3.145, 3.15},
		{2.675, 2.68},
		{3.0, 3.0},
		{-1.005, -1.01},
		{0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Round(tt.in), 1e-9, "Round(%v)", tt.in)
	}
}
