package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/repository/history"
	chatuc "github.com/kailas-cloud/docqa/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
)

// --- Mocks ---

type mockAsker struct {
	err     error
	lastLen int
}

func (m *mockAsker) Ask(_ context.Context, conv *domain.Conversation, q string) (chatuc.Answer, error) {
	m.lastLen = conv.Len()
	if m.err != nil {
		return chatuc.Answer{}, m.err
	}
	conv.Append(domain.RoleUser, q)
	conv.Append(domain.RoleAssistant, "answer to "+q)
	return chatuc.Answer{
		Content:   "answer to " + q,
		Citations: []domain.Citation{{Title: "Admin Guide", URL: "Admin Guide.pdf"}},
	}, nil
}

type memSessions struct {
	convs   map[string]*domain.Conversation
	loadErr error
	saveErr error
	deleted []string
}

func newMemSessions() *memSessions {
	return &memSessions{convs: map[string]*domain.Conversation{}}
}

func (m *memSessions) Load(_ context.Context, id string) (*domain.Conversation, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	c, ok := m.convs[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return domain.RestoreConversation(c.Messages()), nil
}

func (m *memSessions) Save(_ context.Context, id string, conv *domain.Conversation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.convs[id] = conv
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.convs, id)
	return nil
}

type staticHealth struct {
	report healthuc.Report
}

func (h staticHealth) Check(context.Context) healthuc.Report { return h.report }

func newTestHandler(asker Asker, sessions Sessions, apiKeys []string) http.Handler {
	health := staticHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.CheckSearchIndex: healthuc.CheckOK},
	}}
	s := NewServer(asker, sessions, health, "sys", nil)
	return NewRouter(s, apiKeys, nopLogger())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestAsk_NewSession(t *testing.T) {
	sessions := newMemSessions()
	h := newTestHandler(&mockAsker{}, sessions, nil)

	rr := do(t, h, http.MethodPost, "/v1/ask", `{"question":"how to start?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("session id %q is not a uuid: %v", resp.SessionID, err)
	}
	if resp.Answer != "answer to how to start?" {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Title != "Admin Guide" {
		t.Errorf("citations: got %+v", resp.Citations)
	}
	if conv, ok := sessions.convs[resp.SessionID]; !ok || conv.Len() != 3 {
		t.Errorf("session not saved with 3 messages: %+v", sessions.convs)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestAsk_ContinuesSession(t *testing.T) {
	sessions := newMemSessions()
	asker := &mockAsker{}
	h := newTestHandler(asker, sessions, nil)

	rr := do(t, h, http.MethodPost, "/v1/ask", `{"question":"one"}`)
	var first AskResponse
	_ = json.NewDecoder(rr.Body).Decode(&first)

	rr = do(t, h, http.MethodPost, "/v1/ask", `{"session_id":"`+first.SessionID+`","question":"two"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if asker.lastLen != 3 {
		t.Errorf("second question should see 3 prior messages, got %d", asker.lastLen)
	}
}

func TestAsk_UnknownSessionStartsFresh(t *testing.T) {
	sessions := newMemSessions()
	asker := &mockAsker{}
	h := newTestHandler(asker, sessions, nil)

	rr := do(t, h, http.MethodPost, "/v1/ask", `{"session_id":"expired","question":"q"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp AskResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.SessionID != "expired" {
		t.Errorf("session id: got %q", resp.SessionID)
	}
	if asker.lastLen != 1 {
		t.Errorf("fresh conversation should only hold the system prompt, got %d", asker.lastLen)
	}
}

func TestAsk_SaveFailureStillAnswers(t *testing.T) {
	sessions := newMemSessions()
	sessions.saveErr = errors.New("redis down")
	h := newTestHandler(&mockAsker{}, sessions, nil)

	rr := do(t, h, http.MethodPost, "/v1/ask", `{"question":"q"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestAsk_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{`, CodeBadRequest},
		{"missing question", `{}`, CodeValidationFailed},
		{"blank question", `{"question":"   "}`, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&mockAsker{}, newMemSessions(), nil)
			rr := do(t, h, http.MethodPost, "/v1/ask", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d", rr.Code)
			}
			var errResp ErrorResponse
			_ = json.NewDecoder(rr.Body).Decode(&errResp)
			if errResp.Code != tt.code {
				t.Errorf("code: got %q, want %q", errResp.Code, tt.code)
			}
		})
	}
}

func TestAsk_DomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrIndexNotFound, http.StatusServiceUnavailable, CodeIndexNotFound},
		{domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, CodeEmbeddingQuota},
		{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderFail},
		{domain.ErrChatProviderError, http.StatusBadGateway, CodeChatProviderFail},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			sessions := newMemSessions()
			h := newTestHandler(&mockAsker{err: tt.err}, sessions, nil)
			rr := do(t, h, http.MethodPost, "/v1/ask", `{"question":"q"}`)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			var errResp ErrorResponse
			_ = json.NewDecoder(rr.Body).Decode(&errResp)
			if errResp.Code != tt.code {
				t.Errorf("code: got %q, want %q", errResp.Code, tt.code)
			}
			if strings.Contains(errResp.Message, "boom") {
				t.Error("internal error details leaked")
			}
			if len(sessions.convs) != 0 {
				t.Error("failed turn must not be saved")
			}
		})
	}
}

func TestAsk_SessionLoadError(t *testing.T) {
	sessions := newMemSessions()
	sessions.loadErr = errors.New("conn refused")
	h := newTestHandler(&mockAsker{}, sessions, nil)

	rr := do(t, h, http.MethodPost, "/v1/ask", `{"session_id":"abc","question":"q"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	sessions := newMemSessions()
	h := newTestHandler(&mockAsker{}, sessions, nil)

	rr := do(t, h, http.MethodDelete, "/v1/sessions/abc", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", rr.Code)
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "abc" {
		t.Errorf("deleted: got %v", sessions.deleted)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusServiceUnavailable},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			s := NewServer(&mockAsker{}, newMemSessions(), staticHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{healthuc.CheckEmbedding: healthuc.CheckOK},
			}}, "sys", nil)
			h := NewRouter(s, []string{"secret"}, nopLogger())

			rr := do(t, h, http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			var body map[string]any
			_ = json.NewDecoder(rr.Body).Decode(&body)
			if body["status"] != string(tt.status) {
				t.Errorf("body status: got %v", body["status"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(&mockAsker{}, newMemSessions(), nil)
	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestRouter_AuthAppliesToAsk(t *testing.T) {
	h := newTestHandler(&mockAsker{}, newMemSessions(), []string{"secret"})

	rr := do(t, h, http.MethodPost, "/v1/ask", `{"question":"q"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestHandler(&mockAsker{}, newMemSessions(), nil)
	rr := do(t, h, http.MethodGet, "/v1/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(nopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rr.Code)
	}
	var errResp ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp.Code != CodeInternalError {
		t.Errorf("code: got %q", errResp.Code)
	}
}
