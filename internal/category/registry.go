package category

import (
	"strings"
	"sync"
)

// DefaultCategories are the built-in category keys and display labels.
// Deployments extend the set via config.yaml custom_categories or by
// logging errors in a new category, which auto-registers it.
var DefaultCategories = map[string]string{
	"database":           "Database",
	"api":                "API",
	"frontend":           "Frontend/Browser",
	"server":             "Server",
	"worker":             "Background Worker",
	"test":               "Tests",
	"content_processing": "Content Processing",
}

// Registry maps category keys to display labels and tracks which
// categories are enabled for logging. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	labels   map[string]string
	flags    map[string]bool
	tracking bool
}

// NewRegistry builds a registry seeded with the default categories,
// merged with extra labels and per-category enable flags (typically
// from config.yaml).
func NewRegistry(extra map[string]string, flags map[string]bool, trackingEnabled bool) *Registry {
	labels := make(map[string]string, len(DefaultCategories)+len(extra))
	for k, v := range DefaultCategories {
		labels[k] = v
	}
	for k, v := range extra {
		labels[k] = v
	}
	f := make(map[string]bool, len(flags))
	for k, v := range flags {
		f[k] = v
	}
	return &Registry{labels: labels, flags: f, tracking: trackingEnabled}
}

// Enabled reports whether errors in the given category should be
// stored. False when tracking is globally off; categories without an
// explicit flag default to enabled.
func (r *Registry) Enabled(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.tracking {
		return false
	}
	if v, ok := r.flags[key]; ok {
		return v
	}
	return true
}

// SetEnabled sets the per-category enable flag.
func (r *Registry) SetEnabled(key string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[key] = on
}

// Register upserts a category label.
func (r *Registry) Register(key, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels[key] = label
}

// Label returns the display label for key. Unknown keys are
// auto-registered with a title-cased fallback derived from the key,
// so every category ever stored stays resolvable. The fallback is a
// deliberate convenience for ad-hoc categories, not validation.
func (r *Registry) Label(key string) string {
	r.mu.RLock()
	if label, ok := r.labels[key]; ok {
		r.mu.RUnlock()
		return label
	}
	r.mu.RUnlock()

	label := titleLabel(key)
	r.mu.Lock()
	if existing, ok := r.labels[key]; ok {
		label = existing
	} else {
		r.labels[key] = label
	}
	r.mu.Unlock()
	return label
}

// Labels returns a copy of the full key → label map.
func (r *Registry) Labels() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.labels))
	for k, v := range r.labels {
		out[k] = v
	}
	return out
}

// titleLabel turns "content_processing" into "Content Processing".
func titleLabel(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
