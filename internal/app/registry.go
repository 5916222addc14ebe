package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// ScanBasePackage is the component-scan root the entry point passes to Run.
// Modules registered at or below it are started.
const ScanBasePackage = "primephil"

// ErrNoModules is returned by Run when the scan root selects nothing.
var ErrNoModules = errors.New("no modules registered under scan base")

// Module contributes routes to the shared router.
type Module interface {
	Register(r chi.Router)
}

// ModuleFactory builds a module from the shared dependencies.
type ModuleFactory func(ctx context.Context, c *Container) (Module, error)

// Registration is one entry in a Registry.
type Registration struct {
	Namespace string
	Factory   ModuleFactory
}

// Registry maps namespaces to module factories.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]ModuleFactory
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]ModuleFactory)}
}

// Register adds a factory. It panics on an empty namespace, a nil factory or
// a namespace that is already taken.
func (r *Registry) Register(namespace string, factory ModuleFactory) {
	namespace = strings.Trim(strings.TrimSpace(namespace), "/")
	if namespace == "" {
		panic("app: RegisterModule namespace is empty")
	}
	if factory == nil {
		panic("app: RegisterModule factory is nil for " + namespace)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.modules[namespace]; dup {
		panic("app: RegisterModule called twice for " + namespace)
	}
	r.modules[namespace] = factory
}

// Modules returns the registrations at or below scanBase, sorted by
// namespace. "primephil" selects "primephil/x" but not "primephilx".
func (r *Registry) Modules(scanBase string) []Registration {
	scanBase = strings.Trim(strings.TrimSpace(scanBase), "/")
	if scanBase == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Registration
	for ns, factory := range r.modules {
		if ns == scanBase || strings.HasPrefix(ns, scanBase+"/") {
			out = append(out, Registration{Namespace: ns, Factory: factory})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out
}

var defaultRegistry = NewRegistry()

// RegisterModule registers a module with the process-wide registry. Call it
// from an init function, the way database/sql drivers register themselves.
func RegisterModule(namespace string, factory ModuleFactory) {
	defaultRegistry.Register(namespace, factory)
}

// Modules lists the process-wide registrations selected by scanBase.
func Modules(scanBase string) []Registration {
	return defaultRegistry.Modules(scanBase)
}
