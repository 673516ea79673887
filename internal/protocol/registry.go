package protocol

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Registry routes requests to protocols by URL scheme.
type Registry struct {
	protocols map[string]Protocol
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		protocols: make(map[string]Protocol),
	}
}

// Register adds p for each of its schemes, replacing earlier registrations.
func (r *Registry) Register(p Protocol) {
	for _, s := range p.Schemes() {
		r.protocols[strings.ToLower(s)] = p
	}
}

// Get returns the protocol for a scheme.
func (r *Registry) Get(scheme string) (Protocol, bool) {
	p, ok := r.protocols[strings.ToLower(scheme)]

	return p, ok
}

// Execute implements the Dispatcher interface for *Registry.
func (r *Registry) Execute(ctx context.Context, req *Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	p, ok := r.Get(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("%q: %w", u.Scheme, ErrUnsupportedScheme)
	}

	if err = p.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return p.Execute(ctx, req)
}

// Schemes returns all registered schemes.
func (r *Registry) Schemes() []string {
	schemes := make([]string, 0, len(r.protocols))
	for s := range r.protocols {
		schemes = append(schemes, s)
	}

	return schemes
}
