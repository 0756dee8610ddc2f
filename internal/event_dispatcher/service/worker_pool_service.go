package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

// WorkerPoolDispatchService bounds how many events are dispatched at once
type WorkerPoolDispatchService struct {
	baseService DispatchService
	pool        *ants.Pool
	logger      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]*dispatchCall
}

// dispatchCall is shared by every caller waiting on the same event
type dispatchCall struct {
	done chan struct{}
	err  error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolDispatchService(
	baseService DispatchService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolDispatchService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolDispatchService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		inFlight:    make(map[string]*dispatchCall),
	}, nil
}

// Dispatch runs the event on a pooled worker and waits for its result. A
// redelivery of an event that is still in flight waits for the first run
// instead of dispatching twice.
func (s *WorkerPoolDispatchService) Dispatch(ctx context.Context, event *transfer.Event) error {
	eventID := event.EventID.String()

	s.mu.Lock()
	if running, ok := s.inFlight[eventID]; ok {
		s.mu.Unlock()
		s.logger.Debug("Event already in flight, waiting for it", "event_id", eventID)
		return s.wait(ctx, running)
	}
	call := &dispatchCall{done: make(chan struct{})}
	s.inFlight[eventID] = call
	s.mu.Unlock()

	eventCopy := *event

	err := s.pool.Submit(func() {
		err := s.baseService.Dispatch(ctx, &eventCopy)
		s.finish(eventID, call, err)
	})
	if err != nil {
		s.finish(eventID, call, err)
		s.logger.Error("Failed to submit event to worker pool", "event_id", eventID, "error", err)
		return fmt.Errorf("failed to submit event %s to worker pool: %w", eventID, err)
	}

	return s.wait(ctx, call)
}

func (s *WorkerPoolDispatchService) finish(eventID string, call *dispatchCall, err error) {
	call.err = err
	s.mu.Lock()
	delete(s.inFlight, eventID)
	s.mu.Unlock()
	close(call.done)
}

func (s *WorkerPoolDispatchService) wait(ctx context.Context, call *dispatchCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool once running dispatches finish
func (s *WorkerPoolDispatchService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolDispatchService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolDispatchService) Capacity() int {
	return s.pool.Cap()
}
