package assistant

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the internal message representation shared by all backends.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Backend failure classes the router reacts to. Wrapped errors are matched
// with errors.Is.
var (
	// ErrThrottled marks an HTTP 429 from a remote backend.
	ErrThrottled = errors.New("assistant: backend throttled")
	// ErrUnauthorized marks an HTTP 401; the tier is disabled for the
	// remainder of the process lifetime.
	ErrUnauthorized = errors.New("assistant: backend credentials rejected")
	// ErrCoolingDown is returned without calling the backend while the
	// circuit breaker is open.
	ErrCoolingDown = errors.New("assistant: remote backend cooling down")
)

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
