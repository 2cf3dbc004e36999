// Package metrics aggregates the backend call log into latency, token and
// success statistics, grouped by prompt version or provider.
package metrics

import (
	"context"

	"github.com/rohit-sws/timetable/internal/llmcall"
)

// Query computes statistics over a call store.
type Query struct {
	store *llmcall.Store
}

// NewQuery creates a new metrics query helper.
func NewQuery(store *llmcall.Store) *Query {
	return &Query{store: store}
}

// GroupBy selects how calls are bucketed.
type GroupBy string

const (
	ByPromptHash GroupBy = "prompt_hash"
	ByPromptKey  GroupBy = "prompt_key"
	ByProvider   GroupBy = "provider"
	ByModel      GroupBy = "model"
)

func (g GroupBy) key(c *llmcall.Call) string {
	switch g {
	case ByPromptKey:
		return c.PromptKey
	case ByProvider:
		return c.Provider
	case ByModel:
		return c.Model
	default:
		return c.PromptHash
	}
}

// GetDetailedStats returns statistics for every call matching the filter.
func (q *Query) GetDetailedStats(ctx context.Context, f llmcall.QueryFilter) (*DetailedStats, error) {
	calls, err := q.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return Compute(calls), nil
}

// Grouped returns statistics per group, for example one entry per prompt
// version to compare success rates before and after a prompt change.
func (q *Query) Grouped(ctx context.Context, f llmcall.QueryFilter, by GroupBy) (map[string]*DetailedStats, error) {
	calls, err := q.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]llmcall.Call)
	for i := range calls {
		k := by.key(&calls[i])
		buckets[k] = append(buckets[k], calls[i])
	}

	out := make(map[string]*DetailedStats, len(buckets))
	for k, group := range buckets {
		out[k] = Compute(group)
	}
	return out, nil
}
