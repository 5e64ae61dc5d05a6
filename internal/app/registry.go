package app

import (
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// Registry tracks which participants are live in which quiz room. It is
// process-wide transient state, fully independent of persisted sessions:
// entries appear on room join, are patched on each submission, and vanish
// on leave/disconnect or session end. A room exists iff it has at least
// one live participant.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// room keeps members user-keyed plus an explicit join-order slice so
// snapshots come out in insertion order.
type room struct {
	order   []string
	members map[string]*domain.LiveParticipant
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join seeds or overwrites the live entry for lp.UserID in the quiz room,
// creating the room if needed. Re-joining never duplicates a user.
func (r *Registry) Join(quizID string, lp domain.LiveParticipant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[quizID]
	if !ok {
		rm = &room{members: make(map[string]*domain.LiveParticipant)}
		r.rooms[quizID] = rm
	}
	if _, exists := rm.members[lp.UserID]; !exists {
		rm.order = append(rm.order, lp.UserID)
	}
	entry := lp
	rm.members[lp.UserID] = &entry
}

// Leave removes the user's live entry and drops the room once empty.
func (r *Registry) Leave(quizID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(quizID, userID)
}

// RemoveAll removes every given user from the quiz room, reporting whether
// the room still exists afterwards. Used when a session ends.
func (r *Registry) RemoveAll(quizID string, userIDs []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		r.leaveLocked(quizID, id)
	}
	_, alive := r.rooms[quizID]
	return alive
}

func (r *Registry) leaveLocked(quizID, userID string) {
	rm, ok := r.rooms[quizID]
	if !ok {
		return
	}
	if _, exists := rm.members[userID]; !exists {
		return
	}
	delete(rm.members, userID)
	for i, id := range rm.order {
		if id == userID {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	if len(rm.members) == 0 {
		delete(r.rooms, quizID)
	}
}

// LiveUpdate patches the mutable fields of a live entry after a submission.
type LiveUpdate struct {
	Score      int
	Progress   string
	IsCorrect  bool
	LastActive time.Time
}

// Update applies the patch to an existing entry. A missing entry is a
// no-op: the participant may have disconnected between the submission
// being accepted and the registry write.
func (r *Registry) Update(quizID, userID string, patch LiveUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[quizID]
	if !ok {
		return
	}
	entry, ok := rm.members[userID]
	if !ok {
		return
	}
	entry.Score = patch.Score
	entry.Progress = patch.Progress
	entry.IsCorrect = patch.IsCorrect
	entry.LastActive = patch.LastActive
}

// Snapshot copies the room's live participants in join order. The second
// return is false when the room does not exist. Callers receive a copy,
// never the live entries.
func (r *Registry) Snapshot(quizID string) ([]domain.LiveParticipant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[quizID]
	if !ok {
		return nil, false
	}
	out := make([]domain.LiveParticipant, 0, len(rm.order))
	for _, id := range rm.order {
		out = append(out, *rm.members[id])
	}
	return out, true
}
