package llmcall

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is an append-only JSON Lines log of backend calls.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to path. The parent directory is created
// on first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the log file location.
func (s *Store) Path() string { return s.path }

// Append writes one call record.
func (s *Store) Append(call *Call) error {
	if call == nil {
		return nil
	}
	line, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("failed to encode call: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create call log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write call log: %w", err)
	}
	return nil
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	PromptKey  string
	PromptHash string
	Provider   string
	Model      string
	After      *time.Time
	Before     *time.Time
	Success    *bool
	Limit      int // most recent N after filtering (0 = all)
}

func (f QueryFilter) match(c *Call) bool {
	switch {
	case f.PromptKey != "" && c.PromptKey != f.PromptKey,
		f.PromptHash != "" && c.PromptHash != f.PromptHash,
		f.Provider != "" && c.Provider != f.Provider,
		f.Model != "" && c.Model != f.Model,
		f.Success != nil && c.Success != *f.Success,
		f.After != nil && !c.Timestamp.After(*f.After),
		f.Before != nil && !c.Timestamp.Before(*f.Before):
		return false
	}
	return true
}

// List returns calls matching the filter in log order. A missing log is an
// empty result. Lines that fail to decode are skipped.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			continue
		}
		if filter.match(&c) {
			calls = append(calls, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call log: %w", err)
	}

	if filter.Limit > 0 && len(calls) > filter.Limit {
		calls = calls[len(calls)-filter.Limit:]
	}
	return calls, nil
}
