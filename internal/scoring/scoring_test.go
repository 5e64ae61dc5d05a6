package scoring

import (
	"testing"

	"live-quiz-service/internal/domain"
)

func hardQuestion() domain.Question {
	return domain.Question{
		ID:            "q1",
		Text:          "Which planet is largest?",
		Options:       []string{"Earth", "Jupiter", "Mars"},
		CorrectAnswer: "Jupiter",
		Difficulty:    domain.DifficultyHard,
	}
}

func TestScoreAwards(t *testing.T) {
	cases := []struct {
		name       string
		difficulty domain.Difficulty
		answer     string
		timeSpent  float64
		timeLimit  int
		correct    bool
		points     int
	}{
		{"instant hard answer", domain.DifficultyHard, "Jupiter", 0, 300, true, 200},
		{"overtime correct answer", domain.DifficultyHard, "Jupiter", 300, 300, true, 0},
		{"past the limit stays at zero", domain.DifficultyHard, "Jupiter", 450, 300, true, 0},
		{"instant easy answer", domain.DifficultyEasy, "Jupiter", 0, 100, true, 100},
		{"instant medium answer", domain.DifficultyMedium, "Jupiter", 0, 100, true, 150},
		{"halfway medium answer", domain.DifficultyMedium, "Jupiter", 50, 100, true, 75},
		{"wrong answer", domain.DifficultyHard, "Mars", 0, 300, false, 0},
		{"case sensitive match", domain.DifficultyHard, "jupiter", 0, 300, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := hardQuestion()
			q.Difficulty = tc.difficulty
			correct, points := Score(q, tc.answer, tc.timeSpent, tc.timeLimit)
			if correct != tc.correct || points != tc.points {
				t.Fatalf("Score() = (%v, %d), want (%v, %d)", correct, points, tc.correct, tc.points)
			}
		})
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	q := hardQuestion()
	q.Difficulty = domain.DifficultyEasy
	// timeBonus = 1 - 150/200 = 0.25 -> 25, then pick a bonus that lands on .5
	// 1 - 199/200 = 0.005 -> 0.5 points, rounds to 1.
	_, points := Score(q, "Jupiter", 199, 200)
	if points != 1 {
		t.Fatalf("expected half-up rounding to 1, got %d", points)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	q := hardQuestion()
	c1, p1 := Score(q, "Jupiter", 42.5, 300)
	c2, p2 := Score(q, "Jupiter", 42.5, 300)
	if c1 != c2 || p1 != p2 {
		t.Fatalf("same inputs gave different results: (%v,%d) vs (%v,%d)", c1, p1, c2, p2)
	}
}

func TestScoreMonotonicInTimeSpent(t *testing.T) {
	q := hardQuestion()
	prev := 1 << 30
	for spent := 0.0; spent <= 400; spent += 10 {
		_, points := Score(q, "Jupiter", spent, 300)
		if points > prev {
			t.Fatalf("points increased from %d to %d at timeSpent=%v", prev, points, spent)
		}
		if points < 0 {
			t.Fatalf("negative award %d at timeSpent=%v", points, spent)
		}
		prev = points
	}
}
