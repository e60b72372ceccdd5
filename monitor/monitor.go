/*
Package monitor tracks remote filter jobs to completion.

A Monitor runs one filter operation at a time through a Transport (poll or
push) and exposes its progress through a ResultModel. Starting a new
operation abandons the previous one: its context is canceled, which stops
the poll loop or closes the channel, and its model is discarded.
*/
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/monitoring"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Transport drives one job to a terminal state while reporting into model.
// Run completes the model on success and returns the terminal error otherwise.
type Transport interface {
	Name() string
	Run(ctx context.Context, req types.FilterRequest, model *ResultModel) error
}

// OutcomeRecorder receives the terminal outcome of every operation
type OutcomeRecorder interface {
	RecordOutcome(transport, outcome, detail string)
}

// Monitor owns the current filter operation
type Monitor struct {
	transport Transport
	logger    *logrus.Logger
	outcomes  OutcomeRecorder

	root     context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	current  *ResultModel
	cancelOp context.CancelFunc
}

// Option configures a Monitor
type Option func(*Monitor)

// WithOutcomeRecorder reports terminal outcomes to r
func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(m *Monitor) {
		m.outcomes = r
	}
}

// New creates a monitor over transport
func New(transport Transport, logger *logrus.Logger, opts ...Option) *Monitor {
	root, stop := context.WithCancel(context.Background())
	m := &Monitor{
		transport: transport,
		logger:    logger,
		root:      root,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TransportName returns the name of the configured transport
func (m *Monitor) TransportName() string {
	return m.transport.Name()
}

// Start validates req, abandons the current operation and runs a new one in
// the background. Validation failures are returned before any network call.
func (m *Monitor) Start(req types.FilterRequest) (*ResultModel, error) {
	req, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}

	model := NewResultModel(uuid.NewString(), m.transport.Name(), req)
	ctx, cancel := context.WithCancel(m.root)

	m.mu.Lock()
	if m.cancelOp != nil {
		m.cancelOp()
	}
	m.current = model
	m.cancelOp = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.execute(ctx, req, model)
	}()

	return model, nil
}

// Run validates req and runs one operation in the foreground. The model is
// returned even when the operation fails so callers can render its last state.
func (m *Monitor) Run(ctx context.Context, req types.FilterRequest, subscribers ...func(Snapshot)) (*ResultModel, error) {
	req, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}

	model := NewResultModel(uuid.NewString(), m.transport.Name(), req)
	for _, fn := range subscribers {
		model.Subscribe(fn)
	}

	m.mu.Lock()
	m.current = model
	m.mu.Unlock()

	return model, m.execute(ctx, req, model)
}

// Current returns the model of the latest operation, nil if none was started
func (m *Monitor) Current() *ResultModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close abandons the current operation and waits for background work to exit
func (m *Monitor) Close() {
	m.stop()
	m.wg.Wait()
}

// execute runs the transport and settles the model with the outcome
func (m *Monitor) execute(ctx context.Context, req types.FilterRequest, model *ResultModel) error {
	start := time.Now()
	name := m.transport.Name()
	log := m.logger.WithFields(logrus.Fields{
		"operation_id": model.operationID,
		"transport":    name,
	})

	ctx, span := monitoring.CreateSpan(ctx, "filter "+name)
	defer span.End()
	monitoring.SetSpanAttributes(span, map[string]interface{}{
		"operation_id": model.operationID,
		"transport":    name,
		"scope.list":   req.List,
		"scope.users":  len(req.Users),
	})

	monitoring.UpdateActiveOperations(1)
	defer monitoring.UpdateActiveOperations(-1)

	log.WithField("question", req.Question).Info("Starting filter operation")
	err := m.transport.Run(ctx, req, model)
	settle(model, err)

	outcome := Kind(err)
	if err == nil {
		outcome = string(types.StatusCompleted)
		snap := model.Snapshot()
		if snap.Final != nil {
			passed := snap.Final.Passed()
			monitoring.RecordResultItems(passed, len(snap.Final.Items)-passed)
		}
	} else {
		monitoring.SetSpanError(span, err)
	}

	duration := time.Since(start)
	monitoring.RecordFilterOutcome(name, outcome, duration.Seconds())
	if m.outcomes != nil {
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		m.outcomes.RecordOutcome(name, outcome, detail)
	}

	entry := log.WithFields(logrus.Fields{
		"outcome":     outcome,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case err == nil:
		entry.Info("Filter operation completed")
	case errors.Is(err, context.Canceled):
		entry.Info("Filter operation abandoned")
	default:
		entry.WithError(err).Error("Filter operation failed")
	}
	return err
}

// settle moves the model to the terminal state matching err
func settle(model *ResultModel, err error) {
	if err == nil {
		return
	}
	var timedOut *TimedOutError
	if errors.As(err, &timedOut) {
		model.Timeout(err)
		return
	}
	model.Fail(err)
}
