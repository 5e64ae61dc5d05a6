package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// WSHandler exposes the quiz room protocol over a websocket: clients send
// join-room/leave-room, the server pushes participants-update and
// user-joined into the room. A dropped connection is treated exactly like
// an explicit leave; the room membership the cleanup needs lives in the
// connection state, never in socket-library attachments.
type WSHandler struct {
	service  *app.Service
	hub      *app.Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, hub *app.Hub, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomPayload struct {
	QuizID    string `json:"quizId"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type leaveRoomPayload struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
}

type participantsPayload struct {
	Participants []domain.LiveParticipant `json:"participants"`
}

type userJoinedPayload struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// roomMembership is the per-connection state the cleanup path needs,
// plus the plumbing to tear down the event forwarder.
type roomMembership struct {
	quizID string
	userID string
	cancel func()
	stop   chan struct{}
	done   chan struct{}
}

// ServeWS upgrades the request and runs the room protocol until the
// client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("connId", connID), zap.Error(err))
				return
			}
		}
	}()

	var membership *roomMembership
	leaveCurrent := func() {
		if membership == nil {
			return
		}
		membership.cancel()
		close(membership.stop)
		<-membership.done
		h.service.LeaveRoom(membership.quizID, membership.userID)
		membership = nil
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join-room":
			var payload joinRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil ||
				payload.QuizID == "" || payload.UserID == "" {
				trySend(send, outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid join-room payload"}})
				continue
			}

			// A connection occupies one room at a time; switching leaves the old one.
			leaveCurrent()

			m := &roomMembership{
				quizID: payload.QuizID,
				userID: payload.UserID,
				stop:   make(chan struct{}),
				done:   make(chan struct{}),
			}
			events, cancel := h.hub.Subscribe(payload.QuizID, connID)
			m.cancel = cancel
			go h.forwardEvents(events, send, m.stop, m.done)

			if err := h.service.JoinRoom(r.Context(), payload.QuizID, payload.SessionID, payload.UserID, connID); err != nil {
				cancel()
				close(m.stop)
				<-m.done
				trySend(send, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			membership = m

		case "leave-room":
			var payload leaveRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid leave-room payload"}})
				continue
			}
			if membership != nil && membership.quizID == payload.QuizID {
				leaveCurrent()
			}

		default:
			trySend(send, outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	// Disconnect path: same cleanup as an explicit leave.
	leaveCurrent()
	close(send)
	<-writerDone
}

// trySend queues a frame without blocking. The writer goroutine may have
// exited on a write error with the outbox full; the read loop must never
// park on it, so an undeliverable error frame is dropped.
func trySend(send chan<- outboundMessage, msg outboundMessage) {
	select {
	case send <- msg:
	default:
	}
}

// forwardEvents bridges hub events into the connection's outbox until the
// subscription is canceled or the membership is torn down. Undelivered
// events are dropped on the way out; room updates are best-effort.
func (h *WSHandler) forwardEvents(events <-chan app.Event, send chan<- outboundMessage, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg := outboundMessage{Type: ev.Type}
			switch ev.Type {
			case app.EventParticipantsUpdate:
				msg.Payload = participantsPayload{Participants: ev.Participants}
			case app.EventUserJoined:
				msg.Payload = userJoinedPayload{UserID: ev.UserID, Timestamp: ev.Timestamp}
			default:
				continue
			}
			select {
			case send <- msg:
			case <-stop:
				return
			}
		case <-stop:
			return
		}
	}
}
