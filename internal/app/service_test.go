package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	service  *app.Service
	registry *app.Registry
	hub      *app.Hub
	clock    *fakeClock
}

func newFixture(quizzes map[string]domain.Quiz) *fixture {
	registry := app.NewRegistry()
	hub := app.NewHub(nil)
	clock := newFakeClock()
	catalog := memory.NewQuizCatalog(memory.NewStaticQuizLoader(quizzes), time.Hour, 5*time.Minute)
	service := app.NewService(memory.NewSessionStore(), catalog, registry, hub, nil).WithClock(clock.Now)
	return &fixture{service: service, registry: registry, hub: hub, clock: clock}
}

func hardQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Space Trivia",
			TimeLimit: 300,
			IsActive:  true,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Text:          "Which planet is largest?",
					Options:       []string{"Earth", "Jupiter", "Mars"},
					CorrectAnswer: "Jupiter",
					Difficulty:    domain.DifficultyHard,
				},
			},
		},
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, err := f.service.CreateSession(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Status != domain.StatusPending || len(session.Participants) != 1 {
		t.Fatalf("unexpected new session %+v", session)
	}

	session, err = f.service.StartSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Status != domain.StatusActive || session.StartedAt == nil {
		t.Fatalf("expected active with start time, got %+v", session)
	}
	wantEnd := session.StartedAt.Add(300 * time.Second)
	if session.ScheduledEndAt == nil || !session.ScheduledEndAt.Equal(wantEnd) {
		t.Fatalf("expected scheduled end %v, got %v", wantEnd, session.ScheduledEndAt)
	}

	result, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Hard question answered instantly: round(100 * 1 * 2) = 200.
	if !result.IsCorrect || result.Score != 200 || result.TimeSpent != 0 {
		t.Fatalf("unexpected submit result %+v", result)
	}

	f.clock.Advance(10 * time.Second)
	ended, err := f.service.EndSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != domain.StatusCompleted || ended.EndedAt == nil {
		t.Fatalf("expected completed with end time, got %+v", ended)
	}
	if !ended.Participants[0].Completed {
		t.Fatalf("expected participant marked completed")
	}
}

func TestOvertimeCorrectAnswerScoresZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_, _ = f.service.StartSession(ctx, session.ID)

	f.clock.Advance(300 * time.Second)
	result, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.IsCorrect || result.Score != 0 {
		t.Fatalf("expected correct with 0 points at the limit, got %+v", result)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	if _, err := f.service.StartSession(ctx, session.ID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := f.service.StartSession(ctx, session.ID); err != domain.ErrSessionAlreadyStarted {
		t.Fatalf("expected ErrSessionAlreadyStarted, got %v", err)
	}
}

func TestSubmitOutsideActiveState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_ = f.service.JoinRoom(ctx, "quiz-1", session.ID, "u1", "c1")
	before, _ := f.registry.Snapshot("quiz-1")

	// Pending session rejects submissions and leaves all state untouched.
	if _, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter"); err != domain.ErrSessionNotActive {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
	after, _ := f.registry.Snapshot("quiz-1")
	if len(after) != len(before) || after[0].Score != before[0].Score {
		t.Fatalf("registry changed on rejected submission")
	}
	stored, _ := f.service.Results(ctx, session.ID)
	if stored.Participants[0].TotalAnswers != 0 {
		t.Fatalf("session gained an answer on rejected submission")
	}

	_, _ = f.service.StartSession(ctx, session.ID)
	_, _ = f.service.EndSession(ctx, session.ID)
	if _, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter"); err != domain.ErrSessionNotActive {
		t.Fatalf("expected ErrSessionNotActive on completed session, got %v", err)
	}
}

func TestSubmitNotFoundCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	if _, err := f.service.SubmitAnswer(ctx, "missing", "u1", "q1", "Jupiter"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_, _ = f.service.StartSession(ctx, session.ID)

	if _, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q-missing", "Jupiter"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, session.ID, "stranger", "q1", "Jupiter"); err != domain.ErrParticipantNotFound {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestDuplicateAnswerRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_, _ = f.service.StartSession(ctx, session.ID)

	if _, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Mars"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter"); err != domain.ErrAnswerAlreadySubmitted {
		t.Fatalf("expected ErrAnswerAlreadySubmitted, got %v", err)
	}

	results, _ := f.service.Results(ctx, session.ID)
	if results.Participants[0].TotalAnswers != 1 {
		t.Fatalf("expected single recorded answer, got %d", results.Participants[0].TotalAnswers)
	}
}

func TestCreateSessionUnknownQuiz(t *testing.T) {
	f := newFixture(hardQuiz())
	if _, err := f.service.CreateSession(context.Background(), "quiz-404", "u1"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestLiveLeaderboardAcrossParticipants(t *testing.T) {
	ctx := context.Background()
	quizzes := hardQuiz()
	quiz := quizzes["quiz-1"]
	quiz.TimeLimit = 100
	quiz.Questions[0].Difficulty = domain.DifficultyEasy
	quizzes["quiz-1"] = quiz
	f := newFixture(quizzes)

	sessionA, _ := f.service.CreateSession(ctx, "quiz-1", "alice")
	sessionB, _ := f.service.CreateSession(ctx, "quiz-1", "bob")
	_ = f.service.JoinRoom(ctx, "quiz-1", sessionA.ID, "alice", "cA")
	_ = f.service.JoinRoom(ctx, "quiz-1", sessionB.ID, "bob", "cB")

	_, _ = f.service.StartSession(ctx, sessionA.ID)
	result, err := f.service.SubmitAnswer(ctx, sessionA.ID, "alice", "q1", "Jupiter")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("expected 100 points for instant easy answer, got %d", result.Score)
	}

	snap, ok := f.registry.Snapshot("quiz-1")
	if !ok || len(snap) != 2 {
		t.Fatalf("expected both participants live, got %+v", snap)
	}
	if snap[0].UserID != "alice" || snap[0].Score != 100 || snap[0].Progress != "1/1" {
		t.Fatalf("unexpected alice entry %+v", snap[0])
	}
	if snap[1].UserID != "bob" || snap[1].Score != 0 || snap[1].Progress != "0/1" {
		t.Fatalf("unexpected bob entry %+v", snap[1])
	}
}

func TestJoinRoomSeedsFromPersistedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_, _ = f.service.StartSession(ctx, session.ID)
	_, _ = f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter")

	// Joining after playing resumes the live view from stored state.
	_ = f.service.JoinRoom(ctx, "quiz-1", session.ID, "u1", "c1")
	snap, _ := f.registry.Snapshot("quiz-1")
	if snap[0].Score != 200 || snap[0].Progress != "1/1" {
		t.Fatalf("expected seeded entry, got %+v", snap[0])
	}
}

func TestEndSessionClearsRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	sessionA, _ := f.service.CreateSession(ctx, "quiz-1", "alice")
	sessionB, _ := f.service.CreateSession(ctx, "quiz-1", "bob")
	_ = f.service.JoinRoom(ctx, "quiz-1", sessionA.ID, "alice", "cA")
	_ = f.service.JoinRoom(ctx, "quiz-1", sessionB.ID, "bob", "cB")

	if _, err := f.service.EndSession(ctx, sessionA.ID); err != nil {
		t.Fatalf("end A: %v", err)
	}
	snap, ok := f.registry.Snapshot("quiz-1")
	if !ok || len(snap) != 1 || snap[0].UserID != "bob" {
		t.Fatalf("expected only bob live, got %+v", snap)
	}

	if _, err := f.service.EndSession(ctx, sessionB.ID); err != nil {
		t.Fatalf("end B: %v", err)
	}
	if _, ok := f.registry.Snapshot("quiz-1"); ok {
		t.Fatalf("expected room removed with its last session")
	}

	if _, err := f.service.EndSession(ctx, sessionB.ID); err != domain.ErrSessionAlreadyEnded {
		t.Fatalf("expected ErrSessionAlreadyEnded, got %v", err)
	}
}

func TestSubmitBroadcastsToSubscribers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_ = f.service.JoinRoom(ctx, "quiz-1", session.ID, "u1", "c1")

	ch, cancel := f.hub.Subscribe("quiz-1", "watcher")
	defer cancel()

	_, _ = f.service.StartSession(ctx, session.ID)
	_, _ = f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Jupiter")

	var update app.Event
	for ev := range ch {
		if ev.Type == app.EventParticipantsUpdate && len(ev.Participants) > 0 && ev.Participants[0].Score == 200 {
			update = ev
			break
		}
	}
	if update.Participants[0].UserID != "u1" {
		t.Fatalf("unexpected broadcast %+v", update)
	}
}

func TestResultsSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hardQuiz())

	session, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	_, _ = f.service.StartSession(ctx, session.ID)
	_, _ = f.service.SubmitAnswer(ctx, session.ID, "u1", "q1", "Mars")

	results, err := f.service.Results(ctx, session.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.QuizTitle != "Space Trivia" {
		t.Fatalf("expected quiz title, got %q", results.QuizTitle)
	}
	if results.EndTime == nil {
		t.Fatalf("expected scheduled end before completion")
	}
	p := results.Participants[0]
	if p.Score != 0 || p.CorrectAnswers != 0 || p.TotalAnswers != 1 || p.Completed {
		t.Fatalf("unexpected participant result %+v", p)
	}

	f.clock.Advance(42 * time.Second)
	ended, _ := f.service.EndSession(ctx, session.ID)
	results, _ = f.service.Results(ctx, session.ID)
	if !results.EndTime.Equal(*ended.EndedAt) {
		t.Fatalf("expected actual end time after completion")
	}
	if !results.Participants[0].Completed {
		t.Fatalf("expected completed participant after end")
	}
}

func TestConcurrentSubmissionsDifferentQuizzes(t *testing.T) {
	ctx := context.Background()
	quizzes := hardQuiz()
	quiz2 := quizzes["quiz-1"]
	quiz2.ID = "quiz-2"
	quizzes["quiz-2"] = quiz2
	f := newFixture(quizzes)

	s1, _ := f.service.CreateSession(ctx, "quiz-1", "u1")
	s2, _ := f.service.CreateSession(ctx, "quiz-2", "u2")
	_, _ = f.service.StartSession(ctx, s1.ID)
	_, _ = f.service.StartSession(ctx, s2.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.service.SubmitAnswer(ctx, s1.ID, "u1", "q1", "Jupiter")
	}()
	go func() {
		defer wg.Done()
		_, _ = f.service.SubmitAnswer(ctx, s2.ID, "u2", "q1", "Jupiter")
	}()
	wg.Wait()

	r1, _ := f.service.Results(ctx, s1.ID)
	r2, _ := f.service.Results(ctx, s2.ID)
	if r1.Participants[0].Score != 200 || r2.Participants[0].Score != 200 {
		t.Fatalf("expected both submissions applied, got %d and %d",
			r1.Participants[0].Score, r2.Participants[0].Score)
	}
}
