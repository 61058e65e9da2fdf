package polyauth

import (
	"fmt"

	"go.uber.org/zap"
)

// Registry resolves providers by id. It is built once by the application's
// composition root and is read-only afterwards, so lookups need no locking.
type Registry struct {
	byID   map[string]Provider
	order  []Provider
	logger *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{byID: make(map[string]Provider), logger: logger}
}

// Register adds a provider. Registering two providers under the same id is
// a configuration error and the application must not start; MustRegister is
// the usual entry point for composition roots.
func (r *Registry) Register(p Provider) error {
	if _, dup := r.byID[p.ID()]; dup {
		r.logger.Error("duplicate provider registration", zap.String("provider", p.ID()))
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.ID())
	}
	r.byID[p.ID()] = p
	r.order = append(r.order, p)
	r.logger.Info("registered identity provider",
		zap.String("provider", p.ID()),
		zap.String("method", string(p.Method())))
	return nil
}

// MustRegister registers every provider and panics on a duplicate id.
func (r *Registry) MustRegister(providers ...Provider) {
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the providers in registration order, so login pages can
// render a deterministic provider list.
func (r *Registry) All() []Provider {
	out := make([]Provider, len(r.order))
	copy(out, r.order)
	return out
}
