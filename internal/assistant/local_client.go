package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinicware/assistant-platform/internal/observability/metrics"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

// LocalLLMClient talks to an Ollama-style local model server: a cheap
// liveness probe on /api/tags, single-shot generation on /api/generate.
type LocalLLMClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	metrics    *metrics.AssistantMetrics
	logger     *logging.Logger
}

// LocalLLMConfig configures the local backend.
type LocalLLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewLocalLLMClient builds the local client.
func NewLocalLLMClient(cfg LocalLLMConfig, m *metrics.AssistantMetrics, logger *logging.Logger) *LocalLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &LocalLLMClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    m,
		logger:     logger,
	}
}

// Available probes the server with a short deadline. The router checks this
// before spending a request on generation.
func (c *LocalLLMClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type localGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type localGenerateResponse struct {
	Response string `json:"response"`
}

// Complete renders the history into a single prompt and generates once.
func (c *LocalLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(localGenerateRequest{
		Model:  model,
		Prompt: renderPrompt(req),
		Stream: false,
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("assistant: local llm marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("assistant: local llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveLLMLatency("local", "error", time.Since(start).Seconds())
		}
		return LLMResponse{}, fmt.Errorf("assistant: local llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if c.metrics != nil {
			c.metrics.ObserveLLMLatency("local", "error", time.Since(start).Seconds())
		}
		return LLMResponse{}, fmt.Errorf("assistant: local llm returned status %d", resp.StatusCode)
	}

	var out localGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return LLMResponse{}, fmt.Errorf("assistant: local llm decode: %w", err)
	}
	if c.metrics != nil {
		c.metrics.ObserveLLMLatency("local", "ok", time.Since(start).Seconds())
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return LLMResponse{}, fmt.Errorf("assistant: local llm returned empty response")
	}
	return LLMResponse{Text: text}, nil
}

// renderPrompt flattens system blocks and chat history into the plain-text
// prompt format the generate endpoint expects.
func renderPrompt(req LLMRequest) string {
	var b strings.Builder
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		b.WriteString(sys)
		b.WriteString("\n\n")
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case ChatRoleUser:
			b.WriteString("User: ")
		case ChatRoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}
