package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// validKeyPattern matches valid prompt keys (alphanumeric with dots, underscores).
var validKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._]*$`)

// Registry holds the embedded prompts by key.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]EmbeddedPrompt
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{prompts: make(map[string]EmbeddedPrompt)}
}

// Register adds a prompt, computing its hash and variables when missing.
func (r *Registry) Register(p EmbeddedPrompt) error {
	if !validKeyPattern.MatchString(p.Key) {
		return fmt.Errorf("invalid prompt key: %q", p.Key)
	}
	if p.Hash == "" {
		p.Hash = HashText(p.Text)
	}
	if p.Variables == nil {
		p.Variables = ExtractVariables(p.Text)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.Key] = p
	return nil
}

// Get returns the prompt registered under key.
func (r *Registry) Get(key string) (EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[key]
	return p, ok
}

// All returns every registered prompt sorted by key.
func (r *Registry) All() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EmbeddedPrompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
