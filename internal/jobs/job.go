// Package jobs runs extraction work units on a fixed pool of workers.
package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrWorkerQueueFull is returned when a pool cannot accept more work.
var ErrWorkerQueueFull = errors.New("worker queue full")

// ErrNilWorkUnit is returned when attempting to submit a nil work unit.
var ErrNilWorkUnit = errors.New("cannot submit nil work unit")

// Status represents the outcome of a work unit.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// WorkUnit is one document to extract.
type WorkUnit struct {
	ID       string // unique per submission
	Source   string // file path or label
	Enqueued time.Time
}

// WorkResult is the outcome of a work unit.
type WorkResult struct {
	Unit     *WorkUnit
	Status   Status
	Value    any
	Error    error
	Duration time.Duration
}

// Handler processes one work unit.
type Handler func(ctx context.Context, unit *WorkUnit) (any, error)
