package loader

import (
	"context"
	"sync"
)

// Resolver produces packages; *Loader is the production implementation.
type Resolver interface {
	Resolve(ctx context.Context, req Request, onProgress ProgressFunc) (*Package, error)
}

// Registry memoizes resolved packages by version and mode for the lifetime
// of the process, so restarts and additional tabs reuse one image.
type Registry struct {
	resolver Resolver

	mu       sync.Mutex
	packages map[string]*Package
}

// NewRegistry creates a Registry on top of resolver.
func NewRegistry(resolver Resolver) *Registry {
	return &Registry{
		resolver: resolver,
		packages: make(map[string]*Package),
	}
}

// Get returns the memoized package for req, resolving it on first use.
// Failures are not memoized.
func (r *Registry) Get(ctx context.Context, req Request, onProgress ProgressFunc) (*Package, error) {
	r.mu.Lock()
	pkg, ok := r.packages[req.key()]
	r.mu.Unlock()
	if ok {
		return pkg, nil
	}

	pkg, err := r.resolver.Resolve(ctx, req, onProgress)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have won the race; keep the first.
	if existing, ok := r.packages[req.key()]; ok {
		return existing, nil
	}
	r.packages[req.key()] = pkg
	return pkg, nil
}

// Forget drops every memoized package for version.
func (r *Registry) Forget(version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, pkg := range r.packages {
		if pkg.Version == version {
			delete(r.packages, key)
		}
	}
}

// Len returns the number of memoized packages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packages)
}
