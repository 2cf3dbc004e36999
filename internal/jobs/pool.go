package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// PoolStatus reports current pool state.
type PoolStatus struct {
	Name       string `json:"name" yaml:"name"`
	Workers    int    `json:"workers" yaml:"workers"`
	InFlight   int    `json:"in_flight" yaml:"in_flight"`
	QueueDepth int    `json:"queue_depth" yaml:"queue_depth"`
	Completed  int64  `json:"completed" yaml:"completed"`
	Failed     int64  `json:"failed" yaml:"failed"`
}

// PoolConfig configures a new pool.
type PoolConfig struct {
	Name        string
	Logger      *slog.Logger
	WorkerCount int // Number of worker goroutines (default: 1)
	QueueSize   int // Queue size (default: 256)
	Handler     Handler
}

// Pool manages a set of workers sharing a single queue. Backend throttling
// happens inside the backends; the pool only bounds concurrency.
type Pool struct {
	name        string
	logger      *slog.Logger
	workerCount int
	handler     Handler

	queue   chan *WorkUnit
	results chan WorkResult

	inFlight  atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a new pool. Units may be submitted before Start.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = "extract"
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}

	return &Pool{
		name:        name,
		logger:      logger.With("pool", name, "workers", workerCount),
		workerCount: workerCount,
		handler:     cfg.Handler,
		queue:       make(chan *WorkUnit, queueSize),
		results:     make(chan WorkResult, queueSize),
	}
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Results delivers one WorkResult per processed unit.
func (p *Pool) Results() <-chan WorkResult {
	return p.results
}

// Start begins the pool's processing. Blocks until ctx cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Debug("pool starting")

	for i := 0; i < p.workerCount; i++ {
		go p.worker(ctx)
	}

	<-ctx.Done()
	p.logger.Debug("pool stopping")
}

// worker processes work units from the shared queue.
func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case unit := <-p.queue:
			p.inFlight.Add(1)
			result := p.process(ctx, unit)
			p.inFlight.Add(-1)

			select {
			case p.results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit adds a work unit to the pool's queue.
func (p *Pool) Submit(unit *WorkUnit) error {
	if unit == nil {
		return ErrNilWorkUnit
	}
	if unit.Enqueued.IsZero() {
		unit.Enqueued = time.Now()
	}
	select {
	case p.queue <- unit:
		p.logger.Debug("pool accepted unit", "unit_id", unit.ID, "source", unit.Source, "queue_len", len(p.queue))
		return nil
	default:
		p.logger.Warn("pool queue full", "unit_id", unit.ID, "source", unit.Source)
		return fmt.Errorf("%w: %s", ErrWorkerQueueFull, p.name)
	}
}

// Status returns current pool status.
func (p *Pool) Status() PoolStatus {
	return PoolStatus{
		Name:       p.name,
		Workers:    p.workerCount,
		InFlight:   int(p.inFlight.Load()),
		QueueDepth: len(p.queue),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
	}
}

// process executes a work unit.
func (p *Pool) process(ctx context.Context, unit *WorkUnit) WorkResult {
	start := time.Now()
	result := WorkResult{Unit: unit}

	if p.handler == nil {
		result.Status = StatusFailed
		result.Error = fmt.Errorf("no handler registered for pool %s", p.name)
		p.failed.Add(1)
		return result
	}

	value, err := p.handler(ctx, unit)
	result.Duration = time.Since(start)
	switch {
	case err == nil:
		result.Status = StatusCompleted
		result.Value = value
		p.completed.Add(1)
		p.logger.Debug("work unit completed", "unit_id", unit.ID, "duration", result.Duration)
	case errors.Is(err, context.Canceled):
		result.Status = StatusCancelled
		result.Error = err
	default:
		result.Status = StatusFailed
		result.Error = err
		p.failed.Add(1)
		p.logger.Debug("work unit failed", "unit_id", unit.ID, "error", err)
	}
	return result
}
