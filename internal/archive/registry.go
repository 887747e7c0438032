package archive

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry maps formats to their writers.
type Registry struct {
	mu      sync.RWMutex
	writers map[Format]Writer
}

func NewRegistry() *Registry {
	return &Registry{
		writers: make(map[Format]Writer),
	}
}

// Register installs w for format, replacing any previous writer.
func (r *Registry) Register(format Format, w Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[format] = w
}

// Lookup returns the writer for format or an *UnsupportedFormatError
// listing the registered formats.
func (r *Registry) Lookup(format Format) (Writer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.writers[format]
	if !ok {
		return nil, &UnsupportedFormatError{Format: format, Available: r.available()}
	}
	return w, nil
}

func (r *Registry) Available() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available()
}

func (r *Registry) available() []Format {
	formats := lo.Keys(r.writers)
	slices.Sort(formats)
	return formats
}
