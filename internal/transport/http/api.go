package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// QuizReader is the catalog surface the REST API serves.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// QuizWriter persists authored quiz documents.
type QuizWriter interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// API carries the HTTP surface: quiz catalog reads, quiz authoring, and
// the session lifecycle operations.
type API struct {
	service *app.Service
	quizzes QuizReader
	writer  QuizWriter
	log     *zap.Logger
}

func NewAPI(service *app.Service, quizzes QuizReader, writer QuizWriter, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{service: service, quizzes: quizzes, writer: writer, log: log}
}

// Register mounts all REST routes on the router.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quizzes", a.handleListQuizzes).Methods(http.MethodGet)
	api.HandleFunc("/quizzes", a.handleCreateQuiz).Methods(http.MethodPost)
	api.HandleFunc("/quizzes/first", a.handleFirstQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{id}", a.handleGetQuiz).Methods(http.MethodGet)

	api.HandleFunc("/sessions", a.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/start", a.handleStartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/answers", a.handleSubmitAnswer).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/end", a.handleEndSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/results", a.handleResults).Methods(http.MethodGet)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.quizzes.ListQuizzes(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (a *API) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// handleFirstQuiz returns the oldest active quiz, the client's default pick.
func (a *API) handleFirstQuiz(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.quizzes.ListQuizzes(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	if len(quizzes) == 0 {
		a.writeError(w, domain.ErrQuizNotFound)
		return
	}
	// List order is newest first.
	writeJSON(w, http.StatusOK, quizzes[len(quizzes)-1])
}

func (a *API) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		a.writeError(w, domain.NewValidationError("invalid quiz payload"))
		return
	}
	if err := validateQuiz(quiz); err != nil {
		a.writeError(w, err)
		return
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = uuid.NewString()
		}
	}
	quiz.IsActive = true
	quiz.CreatedAt = time.Now().UTC()

	if err := a.writer.SaveQuiz(r.Context(), quiz); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// validateQuiz checks only what the session core assumes about a quiz
// document; deeper validation belongs to the upstream validation layer.
func validateQuiz(quiz domain.Quiz) error {
	if quiz.Title == "" {
		return domain.NewValidationError("quiz title is required")
	}
	if quiz.TimeLimit < 30 || quiz.TimeLimit > 3600 {
		return domain.NewValidationError("time limit must be between 30 and 3600 seconds")
	}
	if len(quiz.Questions) == 0 {
		return domain.NewValidationError("quiz needs at least one question")
	}
	for _, q := range quiz.Questions {
		if len(q.Options) < 2 {
			return domain.NewValidationError("question needs at least two options")
		}
	}
	return nil
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" || req.UserID == "" {
		a.writeError(w, domain.NewValidationError("quizId and userId are required"))
		return
	}
	session, err := a.service.CreateSession(r.Context(), req.QuizID, req.UserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.StartSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type submitAnswerRequest struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (a *API) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.QuestionID == "" {
		a.writeError(w, domain.NewValidationError("userId and questionId are required"))
		return
	}
	result, err := a.service.SubmitAnswer(r.Context(), mux.Vars(r)["id"], req.UserID, req.QuestionID, req.Answer)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleEndSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.EndSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := a.service.Results(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidState:
		status = http.StatusConflict
	case domain.KindValidation:
		status = http.StatusBadRequest
	default:
		kind = "internal"
		a.log.Error("internal error", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"kind":    string(kind),
			"message": err.Error(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
