package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubDispatcher struct {
	reply Reply
	err   error
}

func (s *stubDispatcher) HandleMessage(context.Context, MessageRequest) (Reply, error) {
	return s.reply, s.err
}

func (s *stubDispatcher) StartBooking(context.Context, BookingRequest) (Reply, error) {
	return s.reply, s.err
}

func (s *stubDispatcher) Shutdown(context.Context) error { return nil }

func TestHandlerChat(t *testing.T) {
	h := NewHandler(&stubDispatcher{reply: Reply{Response: "hi", Suggestions: []string{"Dr. A"}}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"userId":"u1","message":"hello"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var reply Reply
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Response != "hi" || len(reply.Suggestions) != 1 {
		t.Errorf("reply = %+v", reply)
	}
}

func TestHandlerChatValidation(t *testing.T) {
	h := NewHandler(&stubDispatcher{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing user", `{"message":"hello"}`},
		{"missing message", `{"userId":"u1"}`},
		{"blank message", `{"userId":"u1","message":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Chat(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandlerStartBooking(t *testing.T) {
	h := NewHandler(&stubDispatcher{reply: Reply{Response: "pick a date"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/book",
		strings.NewReader(`{"userId":"u1","doctorId":"d1"}`))
	rec := httptest.NewRecorder()
	h.StartBooking(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pick a date") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandlerDispatcherError(t *testing.T) {
	h := NewHandler(&stubDispatcher{err: ErrOrchestratorClosed}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"userId":"u1","message":"hello"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
