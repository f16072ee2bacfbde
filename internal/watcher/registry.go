package watcher

import (
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Registry maps importers to the resolved glob patterns of their calls.
// It answers which importers must be transformed again when a file is
// added or removed.
type Registry struct {
	root string

	mu       sync.RWMutex
	patterns map[string][]string
}

// NewRegistry creates a Registry for a project root. Patterns that are not
// absolute are matched against paths relative to root.
func NewRegistry(root string) *Registry {
	return &Registry{
		root:     strings.TrimSuffix(root, "/"),
		patterns: make(map[string][]string),
	}
}

// Update replaces the patterns of an importer. An empty list removes it.
func (r *Registry) Update(importer string, patterns []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(patterns) == 0 {
		delete(r.patterns, importer)
		return
	}
	r.patterns[importer] = append([]string(nil), patterns...)
}

// Remove forgets an importer.
func (r *Registry) Remove(importer string) {
	r.mu.Lock()
	delete(r.patterns, importer)
	r.mu.Unlock()
}

// Patterns returns the patterns registered for importer.
func (r *Registry) Patterns(importer string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.patterns[importer]...)
}

// Importers returns all registered importers, sorted.
func (r *Registry) Importers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.patterns))
	for imp := range r.patterns {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

// Affected returns the importers, sorted, with a positive pattern matching
// file and no negated pattern excluding it. An importer never matches
// itself.
func (r *Registry) Affected(file string) []string {
	rel := strings.TrimPrefix(file, r.root+"/")

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for imp, patterns := range r.patterns {
		if imp != file && matches(patterns, file, rel) {
			out = append(out, imp)
		}
	}
	sort.Strings(out)
	return out
}

func matches(patterns []string, abs, rel string) bool {
	hit := false
	for _, p := range patterns {
		neg := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		target := rel
		if strings.HasPrefix(p, "/") {
			target = abs
		}
		ok, _ := doublestar.Match(p, target)
		if !ok {
			continue
		}
		if neg {
			return false
		}
		hit = true
	}
	return hit
}
