package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clinicware/assistant-platform/internal/observability/metrics"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	api     chatCompletionAPI
	model   string
	timeout time.Duration
	metrics *metrics.AssistantMetrics
	logger  *logging.Logger
}

// OpenAIConfig configures the remote backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty means api.openai.com
	Model   string
	Timeout time.Duration
}

// NewOpenAIClient builds the remote client. Returns nil when no API key is
// configured, which disables the remote tier.
func NewOpenAIClient(cfg OpenAIConfig, m *metrics.AssistantMetrics, logger *logging.Logger) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAIClient(openai.NewClientWithConfig(clientCfg), cfg, m, logger)
}

func newOpenAIClient(api chatCompletionAPI, cfg OpenAIConfig, m *metrics.AssistantMetrics, logger *logging.Logger) *OpenAIClient {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIClient{
		api:     api,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		metrics: m,
		logger:  logger,
	}
}

// Complete sends a chat completion request. HTTP 429 maps to ErrThrottled and
// HTTP 401 to ErrUnauthorized so callers can react with errors.Is.
func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   int(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveLLMLatency("openai", "error", time.Since(start).Seconds())
		}
		return LLMResponse{}, classifyOpenAIError(err)
	}
	if c.metrics != nil {
		c.metrics.ObserveLLMLatency("openai", "ok", time.Since(start).Seconds())
	}

	if len(resp.Choices) == 0 {
		return LLMResponse{}, fmt.Errorf("assistant: openai returned no choices")
	}

	return LLMResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("assistant: openai request failed: %w", err)
	}
	switch apiErr.HTTPStatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrThrottled, apiErr.Message)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	default:
		return fmt.Errorf("assistant: openai request failed: %w", err)
	}
}
