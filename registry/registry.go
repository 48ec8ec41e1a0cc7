// Package registry implements the process-wide extension -> format
// descriptor mapping used to dispatch Open() to the right slide-reader
// plug-in.
package registry

import (
	"strings"
	"sync"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Capability is a bit flag describing a format's feature surface.
type Capability uint32

const (
	SupportsReadRegion Capability = 1 << iota
	OverlappingTiles
	MultiChannel
	AssociatedImages
	QuickHash
)

// Has reports whether c includes all bits of want.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Factory opens a slide reader given a path. The concrete return type is
// left as `any` here to avoid an import cycle with the root package (which
// depends on registry to implement Open); callers type-assert to
// fastslide.SlideReader.
type Factory func(path string) (any, error)

// FormatDescriptor describes one registered format.
type FormatDescriptor struct {
	PrimaryExtension string
	Aliases          []string
	FormatName       string
	Capabilities     Capability
	Factory          Factory
}

// Registry is a reader-writer-lock-protected extension -> descriptor map.
type Registry struct {
	mu      sync.RWMutex
	byExt   map[string]FormatDescriptor
	formats map[string]FormatDescriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byExt: map[string]FormatDescriptor{}, formats: map[string]FormatDescriptor{}}
}

// normalizeExt lowercases ext and ensures a leading dot.
func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Register adds a descriptor under its primary extension and all aliases.
func (r *Registry) Register(d FormatDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[d.FormatName] = d
	r.byExt[normalizeExt(d.PrimaryExtension)] = d
	for _, a := range d.Aliases {
		r.byExt[normalizeExt(a)] = d
	}
}

// Lookup finds the descriptor registered for ext (with or without a
// leading dot).
func (r *Registry) Lookup(ext string) (FormatDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byExt[normalizeExt(ext)]
	if !ok {
		return FormatDescriptor{}, ferror.Newf(ferror.NotFound, "registry: no format registered for extension %q", ext)
	}
	return d, nil
}

// Formats lists all distinct registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.formats))
	for name := range r.formats {
		out = append(out, name)
	}
	return out
}

// Extensions lists all registered extensions (including aliases).
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

// ByCapability filters registered formats to those whose capabilities
// include all of want.
func (r *Registry) ByCapability(want Capability) []FormatDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []FormatDescriptor
	for _, d := range r.formats {
		if d.Capabilities.Has(want) {
			out = append(out, d)
		}
	}
	return out
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry singleton.
func Global() *Registry {
	globalOnce.Do(func() { global = New() })
	return global
}
