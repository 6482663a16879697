package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/assistant-platform/pkg/logging"
)

// Dispatcher exposes the queue-backed entrypoints used by the HTTP handlers.
type Dispatcher interface {
	HandleMessage(ctx context.Context, req MessageRequest) (Reply, error)
	StartBooking(ctx context.Context, req BookingRequest) (Reply, error)
	Shutdown(ctx context.Context) error
}

// ErrOrchestratorClosed indicates the dispatcher is no longer accepting work.
var ErrOrchestratorClosed = errors.New("assistant: orchestrator closed")

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Orchestrator routes assistant work through a queue before invoking the
// router engine. This lets development point at an in-memory queue and
// production at SQS without touching the HTTP handlers. Per-user ordering
// still holds: the session store serializes by user key regardless of which
// worker picks the job up.
//
// Replies travel back through an in-process pending map, so every worker for
// a queue must run inside the process that enqueued the job. SQS mode
// therefore assumes one API instance per queue URL; scaling out requires a
// queue per instance. The caller's deadline rides along in the payload so a
// worker stops spending LLM and store calls on a request nobody is waiting
// for anymore.
type Orchestrator struct {
	engine Service
	queue  queueClient
	logger *logging.Logger

	cfg orchestratorConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending sync.Map // jobID -> chan dispatchResult
}

var _ Dispatcher = (*Orchestrator)(nil)

const (
	defaultWorkers          = 2
	defaultReceiveWait      = 2  // seconds
	defaultReceiveMax       = 5  // messages
	maxReceiveWaitSeconds   = 20 // SQS limit
	maxReceiveBatchMessages = 10
)

type orchestratorConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// OrchestratorOption configures the dispatcher.
type OrchestratorOption func(*orchestratorConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait time for ReceiveMessage calls.
func WithReceiveWaitSeconds(seconds int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxReceiveWaitSeconds {
			seconds = maxReceiveWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize overrides how many messages each poll should return.
func WithReceiveBatchSize(size int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchMessages {
			size = maxReceiveBatchMessages
		}
		cfg.receiveBatchSize = size
	}
}

// NewOrchestrator wires a queue-backed dispatcher around the supplied engine.
func NewOrchestrator(engine Service, queue queueClient, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if engine == nil {
		panic("assistant: engine cannot be nil")
	}
	if queue == nil {
		panic("assistant: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := orchestratorConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		engine: engine,
		queue:  queue,
		logger: logger,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < cfg.workers; i++ {
		o.wg.Add(1)
		go o.runWorker(i + 1)
	}

	return o
}

// HandleMessage enqueues a chat turn and blocks until a worker processed it.
func (o *Orchestrator) HandleMessage(ctx context.Context, req MessageRequest) (Reply, error) {
	return o.enqueue(ctx, jobTypeMessage, req, BookingRequest{})
}

// StartBooking enqueues a booking-start job and blocks until it is processed.
func (o *Orchestrator) StartBooking(ctx context.Context, req BookingRequest) (Reply, error) {
	return o.enqueue(ctx, jobTypeBooking, MessageRequest{}, req)
}

// Shutdown stops worker goroutines and notifies any pending callers.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	o.pending.Range(func(key, value any) bool {
		if ch, ok := value.(chan dispatchResult); ok {
			select {
			case ch <- dispatchResult{err: ErrOrchestratorClosed}:
			default:
			}
		}
		o.pending.Delete(key)
		return true
	})

	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, kind jobType, msgReq MessageRequest, bookReq BookingRequest) (Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	jobID := uuid.NewString()
	payload := queuePayload{
		ID:      jobID,
		Kind:    kind,
		Message: msgReq,
		Booking: bookReq,
	}
	if deadline, ok := ctx.Deadline(); ok {
		payload.Deadline = deadline.UnixMilli()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: failed to encode payload: %w", err)
	}

	resultCh := make(chan dispatchResult, 1)
	o.pending.Store(jobID, resultCh)
	defer o.pending.Delete(jobID)

	if err := o.queue.Send(ctx, string(body)); err != nil {
		return Reply{}, fmt.Errorf("assistant: failed to enqueue job: %w", err)
	}

	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case res := <-resultCh:
		return res.reply, res.err
	}
}

func (o *Orchestrator) runWorker(workerID int) {
	defer o.wg.Done()
	o.logger.Debug("assistant orchestrator worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-o.ctx.Done():
			o.logger.Debug("assistant orchestrator worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := o.queue.Receive(o.ctx, o.cfg.receiveBatchSize, o.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			o.logger.Error("failed to receive assistant jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			o.handleQueueMessage(msg)
		}
	}
}

func (o *Orchestrator) handleQueueMessage(msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		o.logger.Error("failed to decode assistant job", "error", err)
		o.deleteMessage(msg.ReceiptHandle)
		return
	}

	jobCtx := o.ctx
	if payload.Deadline > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithDeadline(o.ctx, time.UnixMilli(payload.Deadline))
		defer cancel()
	}

	var (
		reply Reply
		err   error
	)

	switch payload.Kind {
	case jobTypeMessage:
		reply = o.engine.HandleMessage(jobCtx, payload.Message)
	case jobTypeBooking:
		reply = o.engine.StartBooking(jobCtx, payload.Booking)
	default:
		err = fmt.Errorf("assistant: unknown job type %q", payload.Kind)
	}

	o.deleteMessage(msg.ReceiptHandle)
	o.deliverResult(payload.ID, reply, err)
}

func (o *Orchestrator) deleteMessage(receiptHandle string) {
	deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.queue.Delete(deleteCtx, receiptHandle); err != nil {
		o.logger.Error("failed to delete assistant job", "error", err)
	}
}

func (o *Orchestrator) deliverResult(jobID string, reply Reply, err error) {
	value, ok := o.pending.Load(jobID)
	if !ok {
		o.logger.Debug("no waiting caller for assistant job", "job_id", jobID)
		return
	}

	ch, ok := value.(chan dispatchResult)
	if !ok {
		o.logger.Error("assistant orchestrator pending map corrupted", "job_id", jobID)
		o.pending.Delete(jobID)
		return
	}

	select {
	case ch <- dispatchResult{reply: reply, err: err}:
	default:
	}
}

type dispatchResult struct {
	reply Reply
	err   error
}

type jobType string

const (
	jobTypeMessage jobType = "message"
	jobTypeBooking jobType = "booking"
)

type queuePayload struct {
	ID      string         `json:"id"`
	Kind    jobType        `json:"kind"`
	Message MessageRequest `json:"message,omitempty"`
	Booking BookingRequest `json:"booking,omitempty"`
	// Deadline is the caller's context deadline in unix milliseconds, zero
	// when the caller had none.
	Deadline int64 `json:"deadline,omitempty"`
}
