package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicware/assistant-platform/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with an optional fallback
// provider that is tried when the primary fails. Throttle and credential
// failures from the primary still surface to the caller even when the
// fallback answers, so the breaker and the permanent-disable latch see them.
type FallbackLLMClient struct {
	primary   LLMClient
	fallback  LLMClient
	onPrimary func(error)
	logger    *logging.Logger
}

// NewFallbackLLMClient creates the chain. fallback may be nil. onPrimaryErr,
// when set, observes every primary failure before the fallback runs.
func NewFallbackLLMClient(primary, fallback LLMClient, onPrimaryErr func(error), logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:   primary,
		fallback:  fallback,
		onPrimary: onPrimaryErr,
		logger:    logger,
	}
}

// Complete tries the primary, then the fallback.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	if c.onPrimary != nil {
		c.onPrimary(err)
	}

	// A cooling-down primary is a policy decision, not a provider outage:
	// still worth trying the fallback.
	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrThrottled) {
			return LLMResponse{}, err
		}
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// guardedClient decorates an LLM client with the rate-limit breaker: calls are
// refused while the breaker is open, throttle errors feed it, and a success
// closes it.
type guardedClient struct {
	inner   LLMClient
	breaker *RateLimitBreaker
}

// NewGuardedClient wraps inner with breaker enforcement.
func NewGuardedClient(inner LLMClient, breaker *RateLimitBreaker) LLMClient {
	return &guardedClient{inner: inner, breaker: breaker}
}

func (g *guardedClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if open, remaining := g.breaker.IsCoolingDown(); open {
		return LLMResponse{}, fmt.Errorf("%w: retry after %s", ErrCoolingDown, remaining.Truncate(time.Second))
	}

	resp, err := g.inner.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, ErrThrottled) {
			g.breaker.RegisterEvent()
		}
		return LLMResponse{}, err
	}
	g.breaker.Reset()
	return resp, nil
}
