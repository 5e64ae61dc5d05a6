package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

// Event is one room-scoped message fanned out by the hub.
type Event struct {
	Type         string                   `json:"type"`
	Participants []domain.LiveParticipant `json:"participants,omitempty"`
	UserID       string                   `json:"userId,omitempty"`
	Timestamp    time.Time                `json:"timestamp,omitempty"`
}

const (
	EventParticipantsUpdate = "participants-update"
	EventUserJoined         = "user-joined"
)

// Hub fans events out to every connection subscribed to a quiz room.
// Delivery is best-effort: a slow subscriber loses its oldest buffered
// event rather than blocking the publisher, and no delivery failure ever
// reaches the caller that triggered the broadcast.
type Hub struct {
	log *zap.Logger

	mu    sync.Mutex
	rooms map[string]map[string]chan Event // quizID -> connID -> outbox
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, rooms: make(map[string]map[string]chan Event)}
}

// Subscribe registers a connection in the quiz room and returns its event
// channel. The cancel func must be called to release the subscription.
func (h *Hub) Subscribe(quizID, connID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	subs, ok := h.rooms[quizID]
	if !ok {
		subs = make(map[string]chan Event)
		h.rooms[quizID] = subs
	}
	subs[connID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.rooms[quizID]
		if !ok {
			return
		}
		if _, ok := subs[connID]; ok {
			delete(subs, connID)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.rooms, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the quiz room.
// No-op when nobody is subscribed.
func (h *Hub) Publish(quizID string, ev Event) {
	h.publish(quizID, "", ev)
}

// PublishExcept delivers to everyone in the room except one connection,
// used for user-joined notifications that skip the joiner.
func (h *Hub) PublishExcept(quizID, excludeConnID string, ev Event) {
	h.publish(quizID, excludeConnID, ev)
}

func (h *Hub) publish(quizID, exclude string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[quizID]
	if !ok {
		return
	}
	for connID, ch := range subs {
		if connID == exclude {
			continue
		}
		select {
		case ch <- ev:
		default:
			// Drop the oldest buffered event so the latest state wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
				h.log.Debug("dropping event for saturated subscriber",
					zap.String("quizId", quizID), zap.String("connId", connID))
			}
		}
	}
}
