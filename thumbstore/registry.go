package thumbstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps absolute paths to the store of the source root that owns them.
type Registry struct {
	mu     sync.RWMutex
	stores []*Store // longest root first
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds root backed by db. Registering the same root twice fails.
func (r *Registry) Register(root string, db DB) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs = filepath.Clean(abs)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.root == abs {
			return nil, fmt.Errorf("thumbstore: root %s already registered", abs)
		}
	}
	s := NewStore(abs, db)
	r.stores = append(r.stores, s)
	sort.SliceStable(r.stores, func(i, j int) bool {
		return len(r.stores[i].root) > len(r.stores[j].root)
	})
	return s, nil
}

// Resolve returns the store owning abs and abs relative to that root,
// slash separated. Roots match on whole path segments only.
func (r *Registry) Resolve(abs string) (*Store, string, error) {
	p := filepath.Clean(abs)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		if p == s.root {
			return s, "", nil
		}
		prefix := s.root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(p, prefix) {
			return s, filepath.ToSlash(p[len(prefix):]), nil
		}
	}
	return nil, "", ErrNoRoot
}

// Roots lists the registered roots, longest first.
func (r *Registry) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.stores))
	for i, s := range r.stores {
		out[i] = s.root
	}
	return out
}

// Close closes every registered store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.stores = nil
	return errors.Join(errs...)
}
