package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// openaiEmbeddingResponse mirrors the embedding response body.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

func writeEmbedding(w http.ResponseWriter, vec []float32, tokens int) {
	resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
	resp.Data = []embeddingData{{Object: "embedding", Embedding: vec}}
	resp.Usage.PromptTokens = tokens
	resp.Usage.TotalTokens = tokens
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestEmbedder_EmbedOpenAI(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		writeEmbedding(w, expectedVec, 10)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "test-key", BaseURL: server.URL},
		Deployment: "test-model",
		Dimensions: 4,
		Logger:     zap.NewNop(),
	})

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.PromptTokens != 10 || result.TotalTokens != 10 {
		t.Errorf("usage = %d/%d, expected 10/10", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedder_EmbedAzure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/my-embeddings/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2024-02-15-preview" {
			t.Errorf("unexpected api-version: %s", got)
		}
		if r.Header.Get("api-key") != "azure-key" {
			t.Errorf("unexpected api-key header: %q", r.Header.Get("api-key"))
		}
		writeEmbedding(w, []float32{1, 2}, 3)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client: ClientConfig{
			APIType:    APITypeAzure,
			APIKey:     "azure-key",
			BaseURL:    server.URL,
			APIVersion: "2024-02-15-preview",
		},
		Deployment: "my-embeddings",
		Dimensions: 2,
	})

	if _, err := emb.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}

func TestEmbedder_TruncatesInput(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeEmbedding(w, []float32{0.5}, 1)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:        ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: server.URL},
		Deployment:    "text-embedding-ada-002",
		MaxInputChars: 8000,
	})

	if _, err := emb.Embed(context.Background(), strings.Repeat("a", 9000)); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(got.Input) != 1 || len(got.Input[0]) != 8000 {
		t.Errorf("expected input truncated to 8000 chars, got %d", len(got.Input[0]))
	}
	if got.Dimensions != 0 {
		t.Errorf("dimensions must not be sent for ada, got %d", got.Dimensions)
	}
}

func TestEmbedder_SendsDimensionsForV3(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeEmbedding(w, []float32{0.1, 0.2, 0.3}, 1)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: server.URL},
		Deployment: "text-embedding-3-small",
		Dimensions: 3,
	})

	if _, err := emb.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if got.Dimensions != 3 {
		t.Errorf("dimensions = %d, expected 3", got.Dimensions)
	}
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbedding(w, []float32{0.1, 0.2}, 1)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: server.URL},
		Deployment: "test-model",
		Dimensions: 1536,
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestEmbedder_EmptyText(t *testing.T) {
	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: "http://unused"},
		Deployment: "test-model",
	})

	_, err := emb.Embed(context.Background(), "   ")
	if !errors.Is(err, domain.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"m"}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: server.URL},
		Deployment: "test-model",
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_RateLimitIsQuota(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: server.URL},
		Deployment: "test-model",
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
	}
}

func TestEmbedder_ServerErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"input too long"}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		Client:     ClientConfig{APIType: APITypeOpenAI, APIKey: "k", BaseURL: server.URL},
		Deployment: "test-model",
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatal("400 must not be reported as quota")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"привет", 3, "при"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
