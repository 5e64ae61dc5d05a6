package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionCache decorates a session store with a write-only Redis
// snapshot. Contract: session:{id} lives for the quiz's time limit, is
// refreshed on every save while the session is pending/active, and is
// deleted the moment a completed session is saved. The snapshot is never
// read back for mutations: a failed (and swallowed) eviction must not be
// able to resurrect a finished session, so Get always answers from the
// authoritative store.
type SessionCache struct {
	client  *redis.Client
	inner   app.SessionStore
	quizzes app.QuizCatalog
	log     *zap.Logger
}

func NewSessionCache(client *redis.Client, inner app.SessionStore, quizzes app.QuizCatalog, log *zap.Logger) *SessionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionCache{client: client, inner: inner, quizzes: quizzes, log: log}
}

func (c *SessionCache) Create(ctx context.Context, session domain.Session) error {
	if err := c.inner.Create(ctx, session); err != nil {
		return err
	}
	c.refresh(ctx, session)
	return nil
}

func (c *SessionCache) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return c.inner.Get(ctx, sessionID)
}

func (c *SessionCache) Save(ctx context.Context, session domain.Session) error {
	if err := c.inner.Save(ctx, session); err != nil {
		return err
	}
	if session.Status == domain.StatusCompleted {
		if err := c.client.Del(ctx, sessionKey(session.ID)).Err(); err != nil {
			c.log.Warn("evicting finished session snapshot failed",
				zap.String("sessionId", session.ID), zap.Error(err))
		}
		return nil
	}
	c.refresh(ctx, session)
	return nil
}

// refresh rewrites the snapshot with TTL equal to the quiz's time limit.
// Failures are logged and swallowed; the write already landed in the
// authoritative store.
func (c *SessionCache) refresh(ctx context.Context, session domain.Session) {
	quiz, err := c.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		c.log.Warn("session snapshot skipped, quiz unresolved",
			zap.String("quizId", session.QuizID), zap.Error(err))
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	ttl := time.Duration(quiz.TimeLimit) * time.Second
	if err := c.client.Set(ctx, sessionKey(session.ID), raw, ttl).Err(); err != nil {
		c.log.Warn("session snapshot write failed",
			zap.String("sessionId", session.ID), zap.Error(err))
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
