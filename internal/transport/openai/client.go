package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// API types accepted by ClientConfig.
const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

// ClientConfig holds connection settings shared by the embedder and the chat model.
type ClientConfig struct {
	APIType    string
	BaseURL    string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// NewClient builds a go-openai client. For Azure, model names passed in requests
// are deployment names and are used verbatim.
func NewClient(cfg ClientConfig) *openai.Client {
	var clientCfg openai.ClientConfig
	if cfg.APIType == APITypeAzure {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.APIVersion != "" {
			clientCfg.APIVersion = cfg.APIVersion
		}
		clientCfg.AzureModelMapperFunc = func(model string) string { return model }
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError extracts a human-readable error from the API response and
// wraps it with the given sentinel. Quota and rate-limit responses wrap quota instead.
func parseAPIError(kind string, err, wrap, quota error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests && quota != nil {
			wrap = quota
		}
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if (apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota") && quota != nil {
			wrap = quota
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", kind, err, wrap)
}

// extractDetail pulls a message out of non-standard JSON error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Message
}
