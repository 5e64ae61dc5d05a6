package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

// SessionStore owns persistence of session records. Implementations hand
// out deep copies; mutations only land through Create/Save.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}

// QuizCatalog resolves quiz documents (through cache/backing store).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Service is the session lifecycle controller: it owns every session
// mutation and coordinates the store, the scoring engine, the live
// registry, and the broadcast hub. All mutations for one quiz are
// serialized through a per-quiz lock; different quizzes proceed in
// parallel.
type Service struct {
	sessions SessionStore
	quizzes  QuizCatalog
	registry *Registry
	hub      *Hub
	log      *zap.Logger

	now   func() time.Time
	newID func() string

	locks *quizLocks
}

func NewService(sessions SessionStore, quizzes QuizCatalog, registry *Registry, hub *Hub, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		quizzes:  quizzes,
		registry: registry,
		hub:      hub,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		locks:    newQuizLocks(),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateSession creates a pending session against the quiz with one seeded
// participant. Joining the live room is a separate, explicit step.
func (s *Service) CreateSession(ctx context.Context, quizID, userID string) (domain.Session, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Session{}, err
	}

	now := s.now()
	session := domain.Session{
		ID:     s.newID(),
		QuizID: quizID,
		Status: domain.StatusPending,
		Participants: []domain.Participant{
			{UserID: userID},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// StartSession moves a pending session to active, stamping the start time
// and deriving the scheduled end from the quiz time limit. A session that
// already left pending is rejected; restarting would silently reset the
// timer for everyone.
func (s *Service) StartSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	unlock := s.locks.lock(session.QuizID)
	defer unlock()

	// Re-read under the lock so concurrent starts serialize.
	session, err = s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Status != domain.StatusPending {
		return domain.Session{}, domain.ErrSessionAlreadyStarted
	}

	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.Session{}, err
	}

	start := s.now()
	scheduledEnd := start.Add(time.Duration(quiz.TimeLimit) * time.Second)
	session.Status = domain.StatusActive
	session.StartedAt = &start
	session.ScheduledEndAt = &scheduledEnd
	session.UpdatedAt = start

	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("start session: %w", err)
	}
	return session, nil
}

// SubmitAnswer scores one answer for a participant, persists the updated
// session, patches the live registry entry, and broadcasts the room state.
// The answer append and score update land atomically: nothing is retained
// when any step before the save fails.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, userID, questionID, answer string) (domain.SubmitResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	unlock := s.locks.lock(session.QuizID)
	defer unlock()

	session, err = s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if session.Status != domain.StatusActive {
		return domain.SubmitResult{}, domain.ErrSessionNotActive
	}

	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	var question *domain.Question
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			question = &quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return domain.SubmitResult{}, domain.ErrQuestionNotFound
	}

	participant := session.FindParticipant(userID)
	if participant == nil {
		return domain.SubmitResult{}, domain.ErrParticipantNotFound
	}
	for _, a := range participant.Answers {
		if a.QuestionID == questionID {
			return domain.SubmitResult{}, domain.ErrAnswerAlreadySubmitted
		}
	}

	now := s.now()
	// Late answers are accepted; the time bonus already bottoms out at zero.
	timeSpent := now.Sub(*session.StartedAt).Seconds()

	correct, points := scoring.Score(*question, answer, timeSpent, quiz.TimeLimit)
	participant.Answers = append(participant.Answers, domain.Answer{
		QuestionID: questionID,
		Answer:     answer,
		IsCorrect:  correct,
		TimeSpent:  timeSpent,
	})
	participant.Score += points
	session.UpdatedAt = now

	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("save session: %w", err)
	}

	s.registry.Update(session.QuizID, userID, LiveUpdate{
		Score:      participant.Score,
		Progress:   fmt.Sprintf("%d/%d", len(participant.Answers), len(quiz.Questions)),
		IsCorrect:  correct,
		LastActive: now,
	})
	s.broadcastRoom(session.QuizID)

	return domain.SubmitResult{
		IsCorrect: correct,
		Score:     participant.Score,
		TimeSpent: timeSpent,
	}, nil
}

// EndSession finalizes a session: status completed, actual end time
// stamped, every participant marked done. Live entries for the session's
// participants leave the quiz room; the room's survivors get one last
// broadcast, and an emptied room is removed outright.
func (s *Service) EndSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	unlock := s.locks.lock(session.QuizID)
	defer unlock()

	session, err = s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Status == domain.StatusCompleted {
		return domain.Session{}, domain.ErrSessionAlreadyEnded
	}

	now := s.now()
	session.Status = domain.StatusCompleted
	session.EndedAt = &now
	session.UpdatedAt = now
	for i := range session.Participants {
		session.Participants[i].Completed = true
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("end session: %w", err)
	}

	userIDs := make([]string, len(session.Participants))
	for i, p := range session.Participants {
		userIDs[i] = p.UserID
	}
	if s.registry.RemoveAll(session.QuizID, userIDs) {
		s.broadcastRoom(session.QuizID)
	}
	return session, nil
}

// Results reports the per-participant summary plus quiz title and timing.
// Read-only. EndTime prefers the actual end over the scheduled one.
func (s *Service) Results(ctx context.Context, sessionID string) (domain.SessionResults, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionResults{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.SessionResults{}, err
	}

	results := domain.SessionResults{
		QuizTitle: quiz.Title,
		StartTime: session.StartedAt,
		EndTime:   session.EndedAt,
	}
	if results.EndTime == nil {
		results.EndTime = session.ScheduledEndAt
	}
	for _, p := range session.Participants {
		correct := 0
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		results.Participants = append(results.Participants, domain.ParticipantResult{
			UserID:         p.UserID,
			Score:          p.Score,
			CorrectAnswers: correct,
			TotalAnswers:   len(p.Answers),
			Completed:      p.Completed,
		})
	}
	return results, nil
}

// JoinRoom puts the user into the quiz's live room, seeding the entry from
// the persisted session when it resolves and from zeroes otherwise. The
// room hears participants-update; everyone but the joiner hears user-joined.
func (s *Service) JoinRoom(ctx context.Context, quizID, sessionID, userID, connID string) error {
	unlock := s.locks.lock(quizID)
	defer unlock()

	now := s.now()
	lp := domain.LiveParticipant{
		UserID:       userID,
		ConnectionID: connID,
		SessionID:    sessionID,
		Progress:     "0/0",
		LastActive:   now,
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err == nil {
		answered := 0
		if p := session.FindParticipant(userID); p != nil {
			lp.Score = p.Score
			answered = len(p.Answers)
		}
		if quiz, qerr := s.quizzes.GetQuiz(ctx, session.QuizID); qerr == nil {
			lp.Progress = fmt.Sprintf("%d/%d", answered, len(quiz.Questions))
		}
	} else {
		// Seeding is best-effort; an unresolvable session joins at zero.
		s.log.Debug("joining room without session state",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	s.registry.Join(quizID, lp)
	s.broadcastRoom(quizID)
	s.hub.PublishExcept(quizID, connID, Event{
		Type:      EventUserJoined,
		UserID:    userID,
		Timestamp: now,
	})
	return nil
}

// LeaveRoom removes the user's live entry. Disconnects funnel through
// here too, so the registry never depends on transport-side cleanup.
func (s *Service) LeaveRoom(quizID, userID string) {
	unlock := s.locks.lock(quizID)
	defer unlock()

	s.registry.Leave(quizID, userID)
	s.broadcastRoom(quizID)
}

// broadcastRoom snapshots the room under the per-quiz lock and hands the
// copy to the hub. No-op once the room is gone.
func (s *Service) broadcastRoom(quizID string) {
	participants, ok := s.registry.Snapshot(quizID)
	if !ok {
		return
	}
	s.hub.Publish(quizID, Event{
		Type:         EventParticipantsUpdate,
		Participants: participants,
	})
}
