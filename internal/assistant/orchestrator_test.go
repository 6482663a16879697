package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	mu        sync.Mutex
	messages  []MessageRequest
	bookings  []BookingRequest
	deadlines []time.Time
}

func (s *stubEngine) HandleMessage(ctx context.Context, req MessageRequest) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, req)
	if deadline, ok := ctx.Deadline(); ok {
		s.deadlines = append(s.deadlines, deadline)
	}
	return Reply{Response: "echo: " + req.Message}
}

func (s *stubEngine) StartBooking(_ context.Context, req BookingRequest) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, req)
	return Reply{Response: "booking " + req.DoctorID}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *stubEngine) {
	t.Helper()
	engine := &stubEngine{}
	o := NewOrchestrator(engine, NewMemoryQueue(16), nil,
		WithWorkerCount(2),
		WithReceiveWaitSeconds(1),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	})
	return o, engine
}

func TestOrchestratorRoundTrip(t *testing.T) {
	o, engine := newTestOrchestrator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := o.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply.Response)

	reply, err = o.StartBooking(ctx, BookingRequest{UserID: "u1", DoctorID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, "booking d1", reply.Response)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Len(t, engine.messages, 1)
	assert.Len(t, engine.bookings, 1)
}

func TestOrchestratorConcurrentCallers(t *testing.T) {
	o, engine := newTestOrchestrator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "hi"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Len(t, engine.messages, callers)
}

func TestOrchestratorCarriesCallerDeadline(t *testing.T) {
	o, engine := newTestOrchestrator(t)

	deadline := time.Now().Add(30 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	_, err := o.HandleMessage(ctx, MessageRequest{UserID: "u1", Message: "hi"})
	require.NoError(t, err)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.deadlines, 1, "worker should see the caller's deadline")
	assert.WithinDuration(t, deadline, engine.deadlines[0], time.Second)
}

func TestOrchestratorShutdownRejectsWork(t *testing.T) {
	engine := &stubEngine{}
	o := NewOrchestrator(engine, NewMemoryQueue(16), nil, WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))

	callCtx, callCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer callCancel()
	_, err := o.HandleMessage(callCtx, MessageRequest{UserID: "u1", Message: "hi"})
	assert.Error(t, err, "dispatcher should reject work after shutdown")
}
