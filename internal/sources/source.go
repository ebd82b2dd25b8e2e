package sources

import (
	"context"

	"github.com/helixir/article-search-service/internal/domain"
)

// Adapter is implemented by every article provider client. Adapters
// translate between the provider's wire format and domain.Article and
// surface failures as errors; they never panic across this boundary.
type Adapter interface {
	// Search queries the provider for articles matching term.
	// limit caps the number of records requested from the provider and
	// offset positions the page for repeated attempts. Implementations
	// must respect context cancellation, apply their pacing before
	// every outbound call, drop records without titles, and treat
	// placeholder or too-short abstracts as absent.
	Search(ctx context.Context, term string, limit, offset int) ([]*domain.Article, error)

	// Descriptor returns the routing characteristics of this source.
	Descriptor() domain.SourceDescriptor
}

// Registry holds the configured adapters in registration order. Order
// matters: the router breaks ranking ties by configuration position.
// The registry is populated once at startup and read-only afterwards,
// so it needs no locking.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an adapter. Registering the same source twice is a
// configuration error; the later registration wins at routing time
// only through its worse tie-break position.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// Adapters returns the registered adapters in registration order.
// The returned slice must not be modified.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.adapters)
}
