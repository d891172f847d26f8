package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/repository/history"
	chatuc "github.com/kailas-cloud/docqa/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
)

// maxQuestionBytes bounds the request body of POST /v1/ask.
const maxQuestionBytes = 64 << 10

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest            = "bad_request"
	CodeValidationFailed      = "validation_failed"
	CodeUnauthorized          = "unauthorized"
	CodeIndexNotFound         = "index_not_found"
	CodeEmbeddingQuota        = "embedding_quota_exceeded"
	CodeEmbeddingProviderFail = "embedding_provider_error"
	CodeChatProviderFail      = "chat_provider_error"
	CodeInternalError         = "internal_error"
)

// Asker answers a question within a conversation.
type Asker interface {
	Ask(ctx context.Context, conv *domain.Conversation, question string) (chatuc.Answer, error)
}

// Sessions persists conversations between requests.
type Sessions interface {
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Save(ctx context.Context, sessionID string, conv *domain.Conversation) error
	Delete(ctx context.Context, sessionID string) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

// Citation is one source of an answer.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AskResponse is the body returned by POST /v1/ask.
type AskResponse struct {
	SessionID string     `json:"session_id"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the question answering API.
type Server struct {
	asker         Asker
	sessions      Sessions
	health        HealthChecker
	systemPrompt  string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(asker Asker, sessions Sessions, health HealthChecker, systemPrompt string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		asker:        asker,
		sessions:     sessions,
		health:       health,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusServiceUnavailable, CodeIndexNotFound),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, CodeEmbeddingQuota),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderFail),
		sentinelHandler(domain.ErrChatProviderError, http.StatusBadGateway, CodeChatProviderFail),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/ask", s.Ask)
	r.Delete("/v1/sessions/{id}", s.DeleteSession)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Question is required")
		return
	}

	ctx := r.Context()
	log := logpkg.FromContext(ctx)

	conv, sessionID, err := s.conversation(ctx, req.SessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ans, err := s.asker.Ask(ctx, conv, req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.sessions.Save(ctx, sessionID, conv); err != nil {
		log.Warn("Failed to save session", zap.String("session_id", sessionID), zap.Error(err))
	}

	citations := make([]Citation, len(ans.Citations))
	for i, c := range ans.Citations {
		citations[i] = Citation{Title: c.Title, URL: c.URL}
	}
	writeJSON(w, http.StatusOK, AskResponse{SessionID: sessionID, Answer: ans.Content, Citations: citations})
}

// conversation loads the session's conversation, starting a new one for an
// unknown or expired session.
func (s *Server) conversation(ctx context.Context, sessionID string) (*domain.Conversation, string, error) {
	if sessionID == "" {
		return domain.NewConversation(s.systemPrompt), uuid.NewString(), nil
	}
	conv, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, history.ErrNotFound) {
		return domain.NewConversation(s.systemPrompt), sessionID, nil
	}
	if err != nil {
		return nil, "", err
	}
	return conv, sessionID, nil
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuestion,
		domain.ErrIndexNotFound,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrChatProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
