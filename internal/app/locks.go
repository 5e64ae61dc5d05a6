package app

import "sync"

// quizLocks hands out one mutex per quiz ID so that all session and
// registry mutations for a given quiz serialize, while distinct quizzes
// stay fully concurrent. Locks are never reclaimed; the per-quiz cost is
// one mutex for the process lifetime.
type quizLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newQuizLocks() *quizLocks {
	return &quizLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the quiz's mutex and returns the matching unlock.
func (q *quizLocks) lock(quizID string) func() {
	q.mu.Lock()
	m, ok := q.locks[quizID]
	if !ok {
		m = &sync.Mutex{}
		q.locks[quizID] = m
	}
	q.mu.Unlock()

	m.Lock()
	return m.Unlock
}
