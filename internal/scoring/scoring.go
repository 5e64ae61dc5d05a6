// Package scoring awards points for answer submissions. It is pure: no
// clock, no I/O, same inputs always produce the same result.
package scoring

import (
	"math"

	"live-quiz-service/internal/domain"
)

// difficultyMultiplier scales the base award by question tier. Unknown
// tiers score as easy.
func difficultyMultiplier(d domain.Difficulty) float64 {
	switch d {
	case domain.DifficultyMedium:
		return 1.5
	case domain.DifficultyHard:
		return 2
	default:
		return 1
	}
}

// Score checks the submitted answer against the question and computes the
// point award. Correctness is an exact, case-sensitive string match.
// A correct answer earns round(100 * timeBonus * multiplier) where
// timeBonus = max(0, 1 - timeSpent/timeLimit): 200 at best (hard, instant),
// trailing off to 0 at or past the time limit. Incorrect answers earn 0.
func Score(question domain.Question, answer string, timeSpent float64, timeLimit int) (bool, int) {
	if answer != question.CorrectAnswer {
		return false, 0
	}
	timeBonus := math.Max(0, 1-timeSpent/float64(timeLimit))
	points := int(math.Round(100 * timeBonus * difficultyMultiplier(question.Difficulty)))
	return true, points
}
