package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const listKey = "quizzes:all"

// QuizCatalog is a Redis read-through cache over a quiz loader. Documents
// are cached whole as JSON: GET/SET quiz:{quizID} for single quizzes and
// quizzes:all for the active list, with independent TTLs. Redis errors
// fall through to the loader; the cache is never authoritative.
type QuizCatalog struct {
	client  *redis.Client
	loader  memory.QuizLoader
	quizTTL time.Duration
	listTTL time.Duration
	sf      singleflight.Group
}

func NewQuizCatalog(client *redis.Client, loader memory.QuizLoader, quizTTL, listTTL time.Duration) *QuizCatalog {
	return &QuizCatalog{
		client:  client,
		loader:  loader,
		quizTTL: quizTTL,
		listTTL: listTTL,
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := quizKey(quizID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err == nil {
			return quiz, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var quiz domain.Quiz
			if err := json.Unmarshal(raw, &quiz); err == nil {
				return quiz, nil
			}
		}

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if raw, err := json.Marshal(quiz); err == nil {
			// best-effort fill
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter(c.quizTTL)).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCatalog) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if raw, err := c.client.Get(ctx, listKey).Bytes(); err == nil {
		var quizzes []domain.Quiz
		if err := json.Unmarshal(raw, &quizzes); err == nil {
			return quizzes, nil
		}
	}

	result, err, _ := c.sf.Do(listKey, func() (interface{}, error) {
		quizzes, err := c.loader.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(quizzes); err == nil {
			_ = c.client.Set(ctx, listKey, raw, c.listTTL).Err()
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}

// ttlWithJitter spreads expirations by up to 10%. Uses the locked global
// source; fills for different keys run concurrently.
func (c *QuizCatalog) ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rand.Int63n(jitterMax+1))
}
