package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clinicware/assistant-platform/internal/assistant"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

type echoDispatcher struct{}

func (echoDispatcher) HandleMessage(_ context.Context, req assistant.MessageRequest) (assistant.Reply, error) {
	return assistant.Reply{Response: "echo: " + req.Message}, nil
}

func (echoDispatcher) StartBooking(_ context.Context, req assistant.BookingRequest) (assistant.Reply, error) {
	return assistant.Reply{Response: "booking " + req.DoctorID}, nil
}

func (echoDispatcher) Shutdown(context.Context) error { return nil }

func newTestRouter() http.Handler {
	return New(&Config{
		Logger:           logging.Default(),
		AssistantHandler: assistant.NewHandler(echoDispatcher{}, nil),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestChatEndpoint(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"userId":"u1","message":"hello"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "echo: hello") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestBookEndpoint(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/book",
		strings.NewReader(`{"userId":"u1","doctorId":"d1"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "booking d1") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
