package assistant

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubLLM struct {
	resp  LLMResponse
	err   error
	calls int
}

func (s *stubLLM) Complete(context.Context, LLMRequest) (LLMResponse, error) {
	s.calls++
	return s.resp, s.err
}

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &stubLLM{resp: LLMResponse{Text: "primary"}}
	fallback := &stubLLM{resp: LLMResponse{Text: "fallback"}}
	c := NewFallbackLLMClient(primary, fallback, nil, nil)

	resp, err := c.Complete(context.Background(), LLMRequest{})
	if err != nil || resp.Text != "primary" {
		t.Errorf("resp = (%q, %v), want primary", resp.Text, err)
	}
	if fallback.calls != 0 {
		t.Error("fallback should not be called")
	}
}

func TestFallbackClientFallsBack(t *testing.T) {
	primary := &stubLLM{err: errors.New("primary down")}
	fallback := &stubLLM{resp: LLMResponse{Text: "fallback"}}
	var observed error
	c := NewFallbackLLMClient(primary, fallback, func(err error) { observed = err }, nil)

	resp, err := c.Complete(context.Background(), LLMRequest{})
	if err != nil || resp.Text != "fallback" {
		t.Errorf("resp = (%q, %v), want fallback answer", resp.Text, err)
	}
	if observed == nil {
		t.Error("primary error should be observed")
	}
}

func TestFallbackClientSurfacesPrimarySentinelWhenBothFail(t *testing.T) {
	primary := &stubLLM{err: ErrThrottled}
	fallback := &stubLLM{err: errors.New("fallback down")}
	c := NewFallbackLLMClient(primary, fallback, nil, nil)

	_, err := c.Complete(context.Background(), LLMRequest{})
	if !errors.Is(err, ErrThrottled) {
		t.Errorf("err = %v, want the primary throttle sentinel", err)
	}
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	wantErr := errors.New("down")
	c := NewFallbackLLMClient(&stubLLM{err: wantErr}, nil, nil, nil)
	if _, err := c.Complete(context.Background(), LLMRequest{}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want primary error", err)
	}
}

func TestGuardedClientFeedsBreaker(t *testing.T) {
	breaker, now := newTestBreaker(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	inner := &stubLLM{err: ErrThrottled}
	c := NewGuardedClient(inner, breaker)

	for i := 0; i < 3; i++ {
		if _, err := c.Complete(context.Background(), LLMRequest{}); !errors.Is(err, ErrThrottled) {
			t.Fatalf("call %d: err = %v, want ErrThrottled", i, err)
		}
		*now = now.Add(time.Second)
	}

	// Breaker is open now; the backend must not be reached.
	callsBefore := inner.calls
	_, err := c.Complete(context.Background(), LLMRequest{})
	if !errors.Is(err, ErrCoolingDown) {
		t.Errorf("err = %v, want ErrCoolingDown", err)
	}
	if inner.calls != callsBefore {
		t.Error("backend must be skipped while cooling down")
	}
}

func TestGuardedClientResetsOnSuccess(t *testing.T) {
	breaker, now := newTestBreaker(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	breaker.RegisterEvent()
	breaker.RegisterEvent()
	*now = now.Add(time.Second)

	c := NewGuardedClient(&stubLLM{resp: LLMResponse{Text: "ok"}}, breaker)
	if _, err := c.Complete(context.Background(), LLMRequest{}); err != nil {
		t.Fatal(err)
	}

	// One more throttle event should now count as a fresh streak of 1.
	if got := breaker.RegisterEvent(); got != 1 {
		t.Errorf("streak = %d, want 1 after success reset", got)
	}
}
