package setup

import (
	"sort"
	"sync"
)

// Registry maps class names to setups. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	setups map[string]*Setup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{setups: make(map[string]*Setup)}
}

// Register adds or replaces the setup of s.ClassName().
func (r *Registry) Register(s *Setup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setups[s.className] = s
}

// Setup returns the setup of className.
func (r *Registry) Setup(className string) (*Setup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.setups[className]
	if !ok {
		return nil, &NoSetupError{Class: className}
	}
	return s, nil
}

// Composite returns the composite setup over the given classes.
func (r *Registry) Composite(classNames ...string) (*CompositeSetup, error) {
	setups := make([]*Setup, 0, len(classNames))
	for _, name := range classNames {
		s, err := r.Setup(name)
		if err != nil {
			return nil, err
		}
		setups = append(setups, s)
	}
	return NewComposite(setups...), nil
}

// Classes lists registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.setups))
	for name := range r.setups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
