package providers

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Adapter

import (
	"context"
	"fmt"
	"sync"

	"idsearch/internal/lookup/models"
)

// Protocol defines the transport an adapter speaks to its backend
type Protocol string

const (
	ProtocolHTTP     Protocol = "http"
	ProtocolPostgres Protocol = "postgres"
)

// MatchMode names a way an adapter can match a term
type MatchMode string

const (
	MatchExactEmail MatchMode = "exact_email"
	MatchLocalPart  MatchMode = "local_part"
	MatchNamePrefix MatchMode = "name_prefix"
	MatchFuzzyName  MatchMode = "fuzzy_name"
	MatchExtension  MatchMode = "extension"
)

// Capabilities describes what an adapter supports
type Capabilities struct {
	Protocol   Protocol
	Version    string // Backend API or schema version
	MatchModes []MatchMode
	// MaxCandidates bounds the candidate list of a Multiple result
	MaxCandidates int
}

// Adapter is the interface every identity source implements.
//
// Search must honour ctx cancellation and must never panic across the
// boundary on backend errors: failures are returned as models.Failed.
type Adapter interface {
	// Name returns the unique source name (models.SourceDirectory, ...)
	Name() string

	// Capabilities returns what this adapter supports
	Capabilities() Capabilities

	// Search looks up one normalized query
	Search(ctx context.Context, q models.Query) models.ProviderResult
}

// HealthChecker is implemented by adapters that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Registry maintains the registered adapters in registration order
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Adapter),
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if name == "" {
		return fmt.Errorf("adapter name is required")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}
	r.byName[name] = a
	r.adapters = append(r.adapters, a)
	return nil
}

// MustRegister registers every adapter, panicking on a duplicate.
// Use only at wiring time.
func (r *Registry) MustRegister(adapters ...Adapter) *Registry {
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

// Get retrieves an adapter by name
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// All returns all registered adapters
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Adapter, len(r.adapters))
	copy(result, r.adapters)
	return result
}

// Names returns adapter names in registration order
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, 0, len(all))
	for _, a := range all {
		names = append(names, a.Name())
	}
	return names
}

// HealthCheck probes every adapter that supports it. Adapters without a
// health probe report nil.
func (r *Registry) HealthCheck(ctx context.Context) map[string]error {
	all := r.All()
	healthResults := make(map[string]error, len(all))

	for _, a := range all {
		if hc, ok := a.(HealthChecker); ok {
			healthResults[a.Name()] = hc.Health(ctx)
			continue
		}
		healthResults[a.Name()] = nil
	}

	return healthResults
}
