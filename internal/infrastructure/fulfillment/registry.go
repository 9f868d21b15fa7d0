package fulfillment

import (
	"fmt"
	"slices"
	"sync"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
)

// Registry maps provider codes to adapters
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderCode]domain.FulfillmentProvider
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(providers ...domain.FulfillmentProvider) *Registry {
	r := &Registry{providers: make(map[domain.ProviderCode]domain.FulfillmentProvider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the adapter for its code
func (r *Registry) Register(p domain.FulfillmentProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Code()] = p
}

// Get returns the adapter for code
func (r *Registry) Get(code domain.ProviderCode) (domain.FulfillmentProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotRegistered, code)
	}
	return p, nil
}

// Tester returns the connection tester for code, if the adapter has one
func (r *Registry) Tester(code domain.ProviderCode) (domain.ConnectionTester, bool) {
	p, err := r.Get(code)
	if err != nil {
		return nil, false
	}
	t, ok := p.(domain.ConnectionTester)
	return t, ok
}

// Codes lists the registered providers
func (r *Registry) Codes() []domain.ProviderCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProviderCode, 0, len(r.providers))
	for _, code := range append(slices.Clone(domain.Priority), domain.ProviderStandard) {
		if _, ok := r.providers[code]; ok {
			out = append(out, code)
		}
	}
	return out
}
