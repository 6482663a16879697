package assistant

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicware/assistant-platform/internal/clinic"
	"github.com/clinicware/assistant-platform/internal/observability/metrics"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

const assistantSystemPrompt = "You are a clinic assistant for an appointment-booking app. Answer briefly and helpfully about clinic services, doctors and general health guidance. Never give a diagnosis; for anything serious, advise seeing a doctor. Answer in the language the user writes in."

var greetingPattern = regexp.MustCompile(`^\s*(hi|hello|hey|good (morning|afternoon|evening)|مرحبا|مرحباً|أهلا|أهلاً|السلام عليكم|صباح الخير|مساء الخير)[\s!.؟?]*$`)

// Tier labels used in logs and metrics.
const (
	tierSession   = "session"
	tierGreeting  = "greeting"
	tierTriage    = "triage"
	tierKnowledge = "knowledge"
	tierCache     = "cache"
	tierLocalLLM  = "local_llm"
	tierRemoteLLM = "remote_llm"
	tierApology   = "apology"
)

// tierResult is what each tier returns: a matched reply or a fallthrough.
type tierResult struct {
	reply   *Reply
	matched bool
}

func match(r Reply) tierResult { return tierResult{reply: &r, matched: true} }
func fallthru() tierResult { return tierResult{} }

// Router answers every message by walking a fixed tier ladder, cheapest
// first. A tier that fails for any reason falls through to the next one; the
// final tier is a static apology, so HandleMessage cannot fail.
type Router struct {
	sessions  *SessionStore
	booking   *BookingFlow
	knowledge *KnowledgeMatcher
	triage    *TriageComposer
	cache     ResponseCache
	localLLM  *LocalLLMClient
	remoteLLM LLMClient
	patients  clinic.PatientRepository

	remoteDisabled atomic.Bool // set on 401, never cleared
	maxRetries     int
	retryDelay     time.Duration

	remoteTTL time.Duration
	localTTL  time.Duration

	metrics *metrics.AssistantMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// RouterConfig wires the router's tiers. Any tier dependency may be nil; a
// nil tier always falls through.
type RouterConfig struct {
	Sessions  *SessionStore
	Booking   *BookingFlow
	Knowledge *KnowledgeMatcher
	Triage    *TriageComposer
	Cache     ResponseCache
	LocalLLM  *LocalLLMClient
	RemoteLLM LLMClient
	Patients  clinic.PatientRepository

	MaxRetries int
	RetryDelay time.Duration
	RemoteTTL  time.Duration
	LocalTTL   time.Duration

	Metrics *metrics.AssistantMetrics
	Logger  *logging.Logger
}

// NewRouter builds the tier ladder.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.RemoteTTL <= 0 {
		cfg.RemoteTTL = 30 * time.Minute
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = 5 * time.Minute
	}
	return &Router{
		sessions:   cfg.Sessions,
		booking:    cfg.Booking,
		knowledge:  cfg.Knowledge,
		triage:     cfg.Triage,
		cache:      cfg.Cache,
		localLLM:   cfg.LocalLLM,
		remoteLLM:  cfg.RemoteLLM,
		patients:   cfg.Patients,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		remoteTTL:  cfg.RemoteTTL,
		localTTL:   cfg.LocalTTL,
		metrics:    cfg.Metrics,
		logger:     logger,
		tracer:     otel.Tracer("clinicware.internal.assistant.router"),
	}
}

// HandleMessage routes one message and always returns a usable reply.
func (r *Router) HandleMessage(ctx context.Context, req MessageRequest) (reply Reply) {
	ctx, span := r.tracer.Start(ctx, "assistant.message")
	defer span.End()
	span.SetAttributes(attribute.String("assistant.user_id", req.UserID))

	lang := detectLanguage(req.Message)

	// Anything escaping a tier, panics included, degrades to the apology.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router panic recovered", "user_id", req.UserID, "panic", fmt.Sprint(rec))
			r.observeTier(tierApology)
			reply = Reply{Response: msgApology.in(lang)}
		}
	}()

	if strings.TrimSpace(req.Message) == "" {
		r.observeTier(tierApology)
		return Reply{Response: msgApology.in(lang)}
	}

	// Tier 1: an active booking session consumes the message outright.
	if r.sessions != nil && r.booking != nil && r.sessions.Active(req.UserID) {
		r.observeTier(tierSession)
		span.SetAttributes(attribute.String("assistant.tier", tierSession))
		return r.booking.Handle(ctx, req.UserID, req.Message)
	}

	tiers := []struct {
		name string
		fn   func(context.Context, MessageRequest, string) tierResult
	}{
		{tierGreeting, r.tryGreeting},
		{tierTriage, r.tryTriage},
		{tierKnowledge, r.tryKnowledge},
		{tierCache, r.tryCache},
		{tierLocalLLM, r.tryLocalLLM},
		{tierRemoteLLM, r.tryRemoteLLM},
	}

	for _, tier := range tiers {
		if res := r.runTier(ctx, tier.name, tier.fn, req, lang); res.matched {
			r.observeTier(tier.name)
			span.SetAttributes(attribute.String("assistant.tier", tier.name))
			return *res.reply
		}
	}

	r.observeTier(tierApology)
	span.SetAttributes(attribute.String("assistant.tier", tierApology))
	return Reply{Response: msgApology.in(lang)}
}

// StartBooking begins the appointment dialogue for the chosen doctor.
func (r *Router) StartBooking(ctx context.Context, req BookingRequest) Reply {
	ctx, span := r.tracer.Start(ctx, "assistant.start_booking")
	defer span.End()
	span.SetAttributes(
		attribute.String("assistant.user_id", req.UserID),
		attribute.String("assistant.doctor_id", req.DoctorID),
	)

	if r.booking == nil {
		return Reply{Response: msgApology.in(LangEnglish)}
	}
	return r.booking.Start(ctx, req.UserID, req.DoctorID, LangEnglish)
}

// runTier isolates one tier: its panic becomes a fallthrough, never an outage.
func (r *Router) runTier(ctx context.Context, name string, fn func(context.Context, MessageRequest, string) tierResult, req MessageRequest, lang string) (res tierResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tier panic recovered", "tier", name, "panic", fmt.Sprint(rec))
			res = fallthru()
		}
	}()
	return fn(ctx, req, lang)
}

func (r *Router) tryGreeting(ctx context.Context, req MessageRequest, lang string) tierResult {
	if !greetingPattern.MatchString(strings.ToLower(req.Message)) {
		return fallthru()
	}

	if r.patients != nil {
		if patient, err := r.patients.GetProfile(ctx, req.UserID); err == nil && patient != nil && patient.Name != "" {
			return match(Reply{Response: fmt.Sprintf(msgGreetingNamed.in(lang), patient.Name)})
		}
	}
	return match(Reply{Response: msgGreeting.in(lang)})
}

func (r *Router) tryTriage(ctx context.Context, req MessageRequest, _ string) tierResult {
	if r.triage == nil {
		return fallthru()
	}
	if reply, ok := r.triage.Compose(ctx, req.Message); ok {
		return match(*reply)
	}
	return fallthru()
}

func (r *Router) tryKnowledge(_ context.Context, req MessageRequest, _ string) tierResult {
	if r.knowledge == nil {
		return fallthru()
	}
	if answer, ok := r.knowledge.Match(req.Message); ok {
		return match(Reply{Response: answer})
	}
	return fallthru()
}

func (r *Router) tryCache(ctx context.Context, req MessageRequest, _ string) tierResult {
	if r.cache == nil {
		return fallthru()
	}
	if answer, ok := r.cache.Get(ctx, CacheKey(req.Message, "")); ok {
		r.observeCache(true)
		return match(Reply{Response: answer})
	}
	r.observeCache(false)
	return fallthru()
}

func (r *Router) tryLocalLLM(ctx context.Context, req MessageRequest, _ string) tierResult {
	if r.localLLM == nil || !r.localLLM.Available(ctx) {
		return fallthru()
	}

	resp, err := r.localLLM.Complete(ctx, r.llmRequest(req.Message))
	if err != nil {
		r.logger.Warn("local LLM failed", "error", err)
		return fallthru()
	}

	r.storeCached(ctx, req.Message, resp.Text, r.localTTL, ExpireAbsolute)
	return match(Reply{Response: resp.Text})
}

func (r *Router) tryRemoteLLM(ctx context.Context, req MessageRequest, _ string) tierResult {
	if r.remoteLLM == nil || r.remoteDisabled.Load() {
		return fallthru()
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fallthru()
			case <-time.After(backoffDelay(r.retryDelay, attempt)):
			}
		}

		resp, err := r.remoteLLM.Complete(ctx, r.llmRequest(req.Message))
		if err == nil {
			r.storeCached(ctx, req.Message, resp.Text, r.remoteTTL, ExpireSliding)
			return match(Reply{Response: resp.Text})
		}
		lastErr = err

		switch {
		case errors.Is(err, ErrUnauthorized):
			// Bad credentials will not heal; stop spending requests on them.
			r.remoteDisabled.Store(true)
			r.logger.Error("remote LLM credentials rejected, tier disabled for process lifetime", "error", err)
			return fallthru()
		case errors.Is(err, ErrCoolingDown):
			return fallthru()
		case errors.Is(err, ErrThrottled):
			continue
		default:
			r.logger.Warn("remote LLM failed", "attempt", attempt, "error", err)
			return fallthru()
		}
	}

	r.logger.Warn("remote LLM exhausted retries", "error", lastErr)
	return fallthru()
}

func (r *Router) llmRequest(message string) LLMRequest {
	return LLMRequest{
		System:      []string{assistantSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: message}},
		MaxTokens:   512,
		Temperature: 0.4,
	}
}

func (r *Router) storeCached(ctx context.Context, message, answer string, ttl time.Duration, mode ExpiryMode) {
	if r.cache == nil || answer == "" {
		return
	}
	if err := r.cache.Set(ctx, CacheKey(message, ""), answer, ttl, mode); err != nil {
		r.logger.Warn("cache store failed", "error", err)
	}
}

// backoffDelay is exponential with jitter: base*2^(attempt-1) plus up to 25%.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func (r *Router) observeTier(tier string) {
	if r.metrics != nil {
		r.metrics.ObserveTier(tier)
	}
}

func (r *Router) observeCache(hit bool) {
	if r.metrics != nil {
		r.metrics.ObserveCache(hit)
	}
}
