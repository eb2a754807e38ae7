// Package gradescale converts numeric scores on the 0-100 scale into letter grades and
// grade points on the 4.0 scale. It is the only place the threshold table lives.
package gradescale

import (
	"math"

	"github.com/volatiletech/null/v8"
)

const (
	MinScore = 0.0
	MaxScore = 100.0

	// PassMark is the lowest score that earns credit.
	PassMark = 50.0
)

// Mark is a letter grade and its grade point.
type Mark struct {
	Letter string  `json:"letter"`
	Point  float64 `json:"point"`
}

type band struct {
	min  float64
	mark Mark
}

// bands are ordered by descending lower bound; the first band a score reaches wins.
var bands = [...]band{
	{90, Mark{"A", 4.0}},
	{85, Mark{"B+", 3.5}},
	{80, Mark{"B", 3.0}},
	{75, Mark{"C+", 2.5}},
	{70, Mark{"C", 2.0}},
	{65, Mark{"D+", 1.5}},
	{60, Mark{"D", 1.0}},
	{50, Mark{"E", 0.5}},
}

var failing = Mark{"F", 0.0}

// ForScore returns the Mark of score. Scores below 50 are an F worth 0.0.
func ForScore(score float64) Mark {
	for _, b := range bands {
		if score >= b.min {
			return b.mark
		}
	}
	return failing
}

// Letter returns the letter grade of an optional score; an absent score has no letter.
func Letter(score null.Float64) null.String {
	if !score.Valid {
		return null.String{}
	}
	return null.StringFrom(ForScore(score.Float64).Letter)
}

// Point returns the grade point of score.
func Point(score float64) float64 {
	return ForScore(score).Point
}

// InRange reports whether score lies within [0, 100].
func InRange(score float64) bool {
	return score >= MinScore && score <= MaxScore && !math.IsNaN(score)
}

// Passed reports whether score earns credit.
func Passed(score float64) bool {
	return score >= PassMark
}

// halfTolerance absorbs the binary representation error of decimal halves such as 3.145.
const halfTolerance = 1e-9

// Round rounds v to 2 fractional digits, half away from zero.
// GPAs and scores are rounded with it before they are stored.
func Round(v float64) float64 {
	return math.Round(v*100+math.Copysign(halfTolerance, v)) / 100
}

// Letters lists every letter grade from best to worst.
func Letters() []string {
	letters := make([]string, 0, len(bands)+1)
	for _, b := range bands {
		letters = append(letters, b.mark.Letter)
	}
	return append(letters, failing.Letter)
}
