package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clinicware/assistant-platform/internal/clinic"
)

type scriptedLLM struct {
	responses []LLMResponse
	errs      []error
	calls     int
}

func (s *scriptedLLM) Complete(context.Context, LLMRequest) (LLMResponse, error) {
	i := s.calls
	s.calls++
	var resp LLMResponse
	var err error
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

type routerFixture struct {
	router   *Router
	dir      *clinic.InMemoryDirectory
	sessions *SessionStore
	cache    *MemoryCache
	remote   *scriptedLLM
}

func newRouterFixture(t *testing.T, remote *scriptedLLM) *routerFixture {
	t.Helper()

	dir := clinic.NewInMemoryDirectory()
	dir.AddDoctor(clinic.Doctor{ID: "d1", Name: "Dr. Salma Hassan", Specialty: "Neurology", FeeCents: 20000, DayStart: "09:00", DayEnd: "11:00", SlotMinutes: 30})
	dir.AddPatient(clinic.Patient{ID: "p1", UserID: "u1", Name: "Layla", Email: "layla@example.com"})

	sessions := NewSessionStore(10, 30*time.Minute)
	t.Cleanup(sessions.Close)

	cache := NewMemoryCache(64)
	t.Cleanup(cache.Close)

	booking := NewBookingFlow(dir, dir, dir, nil, sessions, nil, nil)
	booking.now = func() time.Time { return time.Date(2030, 5, 19, 12, 0, 0, 0, time.UTC) }

	var remoteLLM LLMClient
	if remote != nil {
		remoteLLM = remote
	}

	r := NewRouter(RouterConfig{
		Sessions:   sessions,
		Booking:    booking,
		Knowledge:  NewKnowledgeMatcher(DefaultKnowledgeRules()),
		Triage:     NewTriageComposer(NewSpecialtyDetector(DefaultSpecialtyProfiles()), dir, 0.6, nil),
		Cache:      cache,
		RemoteLLM:  remoteLLM,
		Patients:   dir,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	return &routerFixture{router: r, dir: dir, sessions: sessions, cache: cache, remote: remote}
}

func TestRouterGreetingTier(t *testing.T) {
	remote := &scriptedLLM{}
	fx := newRouterFixture(t, remote)

	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "hello!"})
	if !strings.Contains(reply.Response, "Layla") {
		t.Errorf("reply = %q, want personalized greeting", reply.Response)
	}

	// Unknown user still gets the generic greeting.
	reply = fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "stranger", Message: "مرحبا"})
	if reply.Response != msgGreeting.ar {
		t.Errorf("reply = %q, want generic arabic greeting", reply.Response)
	}

	if remote.calls != 0 {
		t.Error("greetings must not reach the LLM")
	}
}

func TestRouterArabicSevereHeadacheSkipsLLM(t *testing.T) {
	remote := &scriptedLLM{}
	fx := newRouterFixture(t, remote)

	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "عندي صداع شديد"})
	if !strings.Contains(reply.Response, msgUrgent.ar) {
		t.Errorf("reply = %q, want the urgency notice", reply.Response)
	}
	if !strings.Contains(reply.Response, "Dr. Salma Hassan") {
		t.Errorf("reply = %q, want the neurology doctor listed", reply.Response)
	}
	if remote.calls != 0 {
		t.Error("triage answers must not reach the LLM")
	}
}

func TestRouterKnowledgeTier(t *testing.T) {
	remote := &scriptedLLM{}
	fx := newRouterFixture(t, remote)

	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "how do I reset my password?"})
	if !strings.Contains(reply.Response, "Forgot password") {
		t.Errorf("reply = %q, want the canned password answer", reply.Response)
	}
	if remote.calls != 0 {
		t.Error("knowledge answers must not reach the LLM")
	}
}

func TestRouterCacheTier(t *testing.T) {
	remote := &scriptedLLM{responses: []LLMResponse{{Text: "llm answer"}}}
	fx := newRouterFixture(t, remote)
	ctx := context.Background()

	msg := "can you recommend a good multivitamin?"
	reply := fx.router.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: msg})
	if reply.Response != "llm answer" {
		t.Fatalf("reply = %q, want the LLM answer", reply.Response)
	}
	if remote.calls != 1 {
		t.Fatalf("llm calls = %d, want 1", remote.calls)
	}

	// Asking again (even with different spacing) is served from the cache.
	reply = fx.router.HandleMessage(ctx, MessageRequest{UserID: "u2", Message: "can you recommend  a good MULTIVITAMIN?"})
	if reply.Response != "llm answer" {
		t.Errorf("reply = %q, want the cached answer", reply.Response)
	}
	if remote.calls != 1 {
		t.Errorf("llm calls = %d, want the cache to absorb the repeat", remote.calls)
	}
}

func TestRouterActiveSessionConsumesMessage(t *testing.T) {
	remote := &scriptedLLM{}
	fx := newRouterFixture(t, remote)
	ctx := context.Background()

	reply := fx.router.StartBooking(ctx, BookingRequest{UserID: "u1", DoctorID: "d1"})
	if !strings.Contains(reply.Response, "Dr. Salma Hassan") {
		t.Fatalf("start reply = %q", reply.Response)
	}

	// "hello" would normally hit the greeting tier; with an active session it
	// is a (bad) date answer instead.
	reply = fx.router.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "hello"})
	if reply.Response != msgBadDate.en {
		t.Errorf("reply = %q, want the date re-prompt", reply.Response)
	}
	if remote.calls != 0 {
		t.Error("session messages must not reach the LLM")
	}
}

func TestRouterRetriesThrottleThenSucceeds(t *testing.T) {
	remote := &scriptedLLM{
		errs:      []error{ErrThrottled, nil},
		responses: []LLMResponse{{}, {Text: "second try"}},
	}
	fx := newRouterFixture(t, remote)

	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "how much water should I drink daily?"})
	if reply.Response != "second try" {
		t.Errorf("reply = %q, want the retried answer", reply.Response)
	}
	if remote.calls != 2 {
		t.Errorf("llm calls = %d, want 2", remote.calls)
	}
}

func TestRouterDisablesRemoteTierOn401(t *testing.T) {
	remote := &scriptedLLM{errs: []error{ErrUnauthorized, nil}, responses: []LLMResponse{{}, {Text: "never"}}}
	fx := newRouterFixture(t, remote)
	ctx := context.Background()

	reply := fx.router.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "how much water should I drink daily?"})
	if reply.Response != msgApology.en {
		t.Fatalf("reply = %q, want the apology", reply.Response)
	}
	if remote.calls != 1 {
		t.Fatalf("llm calls = %d, want no retry on 401", remote.calls)
	}

	// The tier stays disabled for the rest of the process.
	fx.router.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "should I take vitamin d in winter?"})
	if remote.calls != 1 {
		t.Errorf("llm calls = %d, want the remote tier disabled", remote.calls)
	}
}

func TestRouterApologyWhenEverythingFails(t *testing.T) {
	remote := &scriptedLLM{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	fx := newRouterFixture(t, remote)

	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "how much water should I drink daily?"})
	if reply.Response != msgApology.en {
		t.Errorf("reply = %q, want the apology", reply.Response)
	}

	reply = fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "هل الشاي الأخضر مفيد؟"})
	if reply.Response != msgApology.ar {
		t.Errorf("reply = %q, want the arabic apology", reply.Response)
	}
}

func TestRouterNoRemoteLLMConfigured(t *testing.T) {
	fx := newRouterFixture(t, nil)

	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "how much water should I drink daily?"})
	if reply.Response != msgApology.en {
		t.Errorf("reply = %q, want the apology when no LLM is configured", reply.Response)
	}
}

func TestRouterEmptyMessage(t *testing.T) {
	fx := newRouterFixture(t, nil)
	reply := fx.router.HandleMessage(context.Background(), MessageRequest{UserID: "u1", Message: "   "})
	if reply.Response != msgApology.en {
		t.Errorf("reply = %q, want the apology", reply.Response)
	}
}

// Concurrent messages from one user during a booking serialize through the
// session store: the final state is a coherent step, never a corrupted one.
func TestRouterConcurrentSameUserMessages(t *testing.T) {
	fx := newRouterFixture(t, nil)
	ctx := context.Background()

	fx.router.StartBooking(ctx, BookingRequest{UserID: "u1", DoctorID: "d1"})

	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			fx.router.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "2030-05-20"})
		}()
	}
	<-done
	<-done

	s, ok := fx.sessions.Get("u1")
	if !ok {
		t.Fatal("session should still be active")
	}
	if s.Step != StepSelectTime {
		t.Errorf("step = %v, want select_time after duplicate date answers", s.Step)
	}
}
