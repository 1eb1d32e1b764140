package job

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/jobcore"
)

// Type names a kind of job. The set of accepted types is closed and held
// by a [Registry].
type Type string

// Platform job types registered by [DefaultRegistry].
const (
	TypeAuctionImport      Type = "auction.import"
	TypeAuctionExport      Type = "auction.export"
	TypeNotificationFanout Type = "notification.fanout"
	TypeSearchReindex      Type = "search.reindex"
	TypeWorkflowMultistep  Type = "workflow.multistep"
)

// Registry maps job types to their default options.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[Type]Options
}

// NewRegistry creates an empty job type registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[Type]Options),
	}
}

// DefaultRegistry returns a registry holding the platform job types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeAuctionImport, WithMaxRetryCount(5))
	r.Register(TypeAuctionExport)
	r.Register(TypeNotificationFanout, WithPriority(PriorityHigh))
	r.Register(TypeSearchReindex, WithPriority(PriorityLow))
	r.Register(TypeWorkflowMultistep, WithMaxRetryCount(1))
	return r
}

// Register adds or replaces a job type.
func (r *Registry) Register(t Type, opts ...Option) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = o
}

// Lookup returns the options for t.
// Returns false if t is not registered.
func (r *Registry) Lookup(t Type) (Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.types[t]
	return o, ok
}

// Validate returns an error wrapping [jobcore.ErrUnknownJobType] when t is
// not registered.
func (r *Registry) Validate(t Type) error {
	if _, ok := r.Lookup(t); !ok {
		return fmt.Errorf("%w: %q", jobcore.ErrUnknownJobType, t)
	}
	return nil
}

// Types returns all registered job types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, k int) bool { return types[i] < types[k] })
	return types
}
