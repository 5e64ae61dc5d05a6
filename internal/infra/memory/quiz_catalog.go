package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (Postgres, fixtures).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

const listCacheKey = "::list"

// QuizCatalog caches quiz documents with TTL to avoid repeated backing
// store hits. Single quizzes and the active-quiz list have independent
// TTLs. The cache is a latency optimization only: misses and stale
// entries fall through to the loader.
type QuizCatalog struct {
	loader  QuizLoader
	quizTTL time.Duration
	listTTL time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedQuiz
	list  cachedList
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type cachedList struct {
	quizzes   []domain.Quiz
	expiresAt time.Time
}

func NewQuizCatalog(loader QuizLoader, quizTTL, listTTL time.Duration) *QuizCatalog {
	return &QuizCatalog{
		loader:  loader,
		quizTTL: quizTTL,
		listTTL: listTTL,
		clock:   time.Now,
		cache:   make(map[string]cachedQuiz),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(c.ttlWithJitter(c.quizTTL)),
		}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCatalog) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if c.list.quizzes != nil && c.list.expiresAt.After(now) {
		list := copyQuizzes(c.list.quizzes)
		c.mu.RUnlock()
		return list, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(listCacheKey, func() (interface{}, error) {
		quizzes, err := c.loader.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.list = cachedList{quizzes: quizzes, expiresAt: c.clock().Add(c.listTTL)}
		c.mu.Unlock()
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers get a copy; mutating a returned slice must not corrupt the
	// cached list.
	return copyQuizzes(result.([]domain.Quiz)), nil
}

func copyQuizzes(quizzes []domain.Quiz) []domain.Quiz {
	return append([]domain.Quiz(nil), quizzes...)
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

// StaticQuizLoader is a map-backed loader used for tests and the no-DB
// demo mode. SaveQuiz makes it double as the authoring store there.
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	if quizzes == nil {
		quizzes = make(map[string]domain.Quiz)
	}
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *StaticQuizLoader) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(l.quizzes))
	for _, quiz := range l.quizzes {
		if quiz.IsActive {
			out = append(out, quiz)
		}
	}
	// newest first, matching the backing store ordering
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (l *StaticQuizLoader) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quizzes[quiz.ID] = quiz
	return nil
}
