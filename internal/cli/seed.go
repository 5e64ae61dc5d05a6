package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	pgstore "live-quiz-service/internal/infra/postgres"
)

// NewSeedCmd inserts the sample quizzes into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	for _, quiz := range sampleQuizzes() {
		if err := loader.SaveQuiz(ctx, quiz); err != nil {
			return fmt.Errorf("seed quiz %q: %w", quiz.Title, err)
		}
	}
	return nil
}

// sampleQuizzes doubles as seed data and as the static catalog for the
// no-database demo mode.
func sampleQuizzes() map[string]domain.Quiz {
	now := time.Now().UTC()
	quizzes := []domain.Quiz{
		{
			ID:          "advanced-vocabulary",
			Title:       "Advanced Vocabulary Challenge",
			Description: "Test your knowledge of advanced English vocabulary words",
			TimeLimit:   300,
			Questions: []domain.Question{
				{
					ID:   "av-q1",
					Text: `What is the meaning of "Ephemeral"?`,
					Options: []string{
						"Lasting for a very short time",
						"Extremely important",
						"Clearly visible",
						"Strongly scented",
					},
					CorrectAnswer: "Lasting for a very short time",
					Difficulty:    domain.DifficultyHard,
				},
				{
					ID:   "av-q2",
					Text: `Choose the correct meaning of "Ubiquitous"`,
					Options: []string{
						"Rare and unique",
						"Present everywhere",
						"Underground",
						"Unnecessary",
					},
					CorrectAnswer: "Present everywhere",
					Difficulty:    domain.DifficultyHard,
				},
				{
					ID:   "av-q3",
					Text: `What does "Surreptitious" mean?`,
					Options: []string{
						"Above ground",
						"Kept secret",
						"Very surprising",
						"Extremely loud",
					},
					CorrectAnswer: "Kept secret",
					Difficulty:    domain.DifficultyHard,
				},
			},
		},
		{
			ID:          "common-english",
			Title:       "Common English Words",
			Description: "Test your understanding of commonly used English words",
			TimeLimit:   180,
			Questions: []domain.Question{
				{
					ID:            "ce-q1",
					Text:          `What is the opposite of "Happy"?`,
					Options:       []string{"Sad", "Angry", "Tired", "Excited"},
					CorrectAnswer: "Sad",
					Difficulty:    domain.DifficultyEasy,
				},
				{
					ID:            "ce-q2",
					Text:          `Choose the synonym of "Beautiful"`,
					Options:       []string{"Ugly", "Pretty", "Smart", "Fast"},
					CorrectAnswer: "Pretty",
					Difficulty:    domain.DifficultyEasy,
				},
				{
					ID:            "ce-q3",
					Text:          `What is the meaning of "Brave"?`,
					Options:       []string{"Scared", "Weak", "Courageous", "Silly"},
					CorrectAnswer: "Courageous",
					Difficulty:    domain.DifficultyEasy,
				},
			},
		},
		{
			ID:          "business-vocabulary",
			Title:       "Business Vocabulary",
			Description: "Test your knowledge of business-related terms",
			TimeLimit:   240,
			Questions: []domain.Question{
				{
					ID:   "bv-q1",
					Text: `What does "ROI" stand for?`,
					Options: []string{
						"Return on Investment",
						"Rate of Interest",
						"Risk of Inflation",
						"Return on Income",
					},
					CorrectAnswer: "Return on Investment",
					Difficulty:    domain.DifficultyMedium,
				},
				{
					ID:   "bv-q2",
					Text: `What is a "Merger"?`,
					Options: []string{
						"A new business",
						"A business closure",
						"Combination of two companies",
						"A business loan",
					},
					CorrectAnswer: "Combination of two companies",
					Difficulty:    domain.DifficultyMedium,
				},
				{
					ID:   "bv-q3",
					Text: `What does "B2B" mean?`,
					Options: []string{
						"Back to Business",
						"Business to Business",
						"Business to Buyer",
						"Buy to Build",
					},
					CorrectAnswer: "Business to Business",
					Difficulty:    domain.DifficultyMedium,
				},
			},
		},
	}

	out := make(map[string]domain.Quiz, len(quizzes))
	for i, quiz := range quizzes {
		quiz.IsActive = true
		// Stagger creation times so list ordering is stable.
		quiz.CreatedAt = now.Add(time.Duration(i) * time.Second)
		out[quiz.ID] = quiz
	}
	return out
}
