package project

import (
	"sort"
	"sync"
)

// Registry maps project keys to their current bundle. Put swaps a whole
// Project in one step; readers holding the previous Project keep using it.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{projects: make(map[string]*Project)}
}

// Get returns the current bundle for key.
func (r *Registry) Get(key string) (*Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[key]
	return p, ok
}

// Put installs p, replacing any previous bundle with the same key.
func (r *Registry) Put(p *Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.Key()] = p
}

// Remove takes a project offline.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, key)
}

// Keys returns the keys of all online projects, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.projects))
	for k := range r.projects {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of online projects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}
