package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/richardliu001/pix-settlement/internal/apperr"
)

// Registry selects an adapter by its configured provider name.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
	def      string
}

func NewRegistry(defaultName string, gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway), def: defaultName}
	for _, g := range gws {
		r.Register(g)
	}
	return r
}

func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Get returns the named adapter; an empty name selects the default.
func (r *Registry) Get(name string) (Gateway, error) {
	if name == "" {
		name = r.def
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[name]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("unknown payment provider %q", name))
	}
	return g, nil
}

func (r *Registry) Default() (Gateway, error) { return r.Get("") }

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gateways))
	for n := range r.gateways {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
