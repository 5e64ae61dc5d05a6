package domain

import "time"

// SessionStatus is the lifecycle state of a quiz session.
// Transitions only move forward: pending -> active -> completed.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Difficulty tiers a question for score multipliers.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question models an MCQ question with one correct answer string.
// The correct answer is assumed to be one of the options; that is
// validated upstream, not here.
type Question struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Difficulty    Difficulty `json:"difficulty"`
}

// Quiz is the read-only quiz document served by the catalog.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TimeLimit   int        `json:"timeLimit"` // seconds, 30..3600
	Questions   []Question `json:"questions"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Answer records a single submission by a participant.
type Answer struct {
	QuestionID string  `json:"questionId"`
	Answer     string  `json:"answer"`
	IsCorrect  bool    `json:"isCorrect"`
	TimeSpent  float64 `json:"timeSpent"` // seconds since session start
}

// Participant is a per-user record nested in a Session.
type Participant struct {
	UserID    string   `json:"userId"`
	Score     int      `json:"score"`
	Answers   []Answer `json:"answers"`
	Completed bool     `json:"completed"`
}

// Session is the authoritative record of one quiz attempt. It references
// its quiz by ID only; the quiz document is resolved through the catalog.
// ScheduledEndAt is derived at start (start + time limit); EndedAt is the
// wall-clock instant the session was explicitly ended. Results report the
// actual end when one exists.
type Session struct {
	ID             string        `json:"id"`
	QuizID         string        `json:"quizId"`
	Status         SessionStatus `json:"status"`
	StartedAt      *time.Time    `json:"startedAt,omitempty"`
	ScheduledEndAt *time.Time    `json:"scheduledEndAt,omitempty"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
	Participants   []Participant `json:"participants"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// FindParticipant returns a pointer into the session's participant slice.
func (s *Session) FindParticipant(userID string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i]
		}
	}
	return nil
}

// Clone deep-copies the session so stores can hand out values without
// sharing the participant/answer slices with callers.
func (s Session) Clone() Session {
	out := s
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.ScheduledEndAt != nil {
		t := *s.ScheduledEndAt
		out.ScheduledEndAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	out.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		cp := p
		cp.Answers = append([]Answer(nil), p.Answers...)
		out.Participants[i] = cp
	}
	return out
}

// LiveParticipant is the transient registry view of a connected participant.
// It is never persisted; it exists from room join to leave/disconnect.
type LiveParticipant struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"-"`
	SessionID    string    `json:"-"`
	Score        int       `json:"score"`
	Progress     string    `json:"progress"` // "answered/total"
	IsCorrect    bool      `json:"isCorrect"`
	LastActive   time.Time `json:"lastActive"`
}

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	IsCorrect bool    `json:"isCorrect"`
	Score     int     `json:"score"`
	TimeSpent float64 `json:"timeSpent"`
}

// ParticipantResult summarizes one participant in the results view.
type ParticipantResult struct {
	UserID         string `json:"userId"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalAnswers   int    `json:"totalAnswers"`
	Completed      bool   `json:"completed"`
}

// SessionResults is the read-only summary returned after (or during) a session.
type SessionResults struct {
	QuizTitle    string              `json:"quizTitle"`
	StartTime    *time.Time          `json:"startTime,omitempty"`
	EndTime      *time.Time          `json:"endTime,omitempty"`
	Participants []ParticipantResult `json:"participants"`
}
