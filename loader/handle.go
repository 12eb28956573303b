package loader

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle is a successfully opened module owned by a Registry.
type Handle struct {
	// ID identifies the handle in logs and audit events.
	ID uuid.UUID

	// Path is the path the module was opened from.
	Path string

	// LoadedAt is when the module was opened.
	LoadedAt time.Time

	mu       sync.Mutex
	module   Module
	released bool
}

// NewHandle wraps an opened module. Registry.Load is the usual way to obtain
// a handle; NewHandle serves callers that open modules themselves and hand
// them over with Registry.Register.
func NewHandle(path string, m Module) *Handle {
	return &Handle{
		ID:       uuid.New(),
		Path:     path,
		LoadedAt: time.Now(),
		module:   m,
	}
}

// Lookup resolves an exported symbol. It reports false when the symbol is
// absent or the handle has been released.
func (h *Handle) Lookup(name string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, false
	}
	sym, err := h.module.Lookup(name)
	if err != nil || sym == nil {
		return nil, false
	}
	return sym, true
}

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// release closes the module once. Later calls are no-ops.
func (h *Handle) release() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return false, nil
	}
	h.released = true
	err := h.module.Close()
	h.module = nil
	return true, err
}

// LogValue implements slog.LogValuer.
func (h *Handle) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", h.ID.String()),
		slog.String("path", h.Path),
	)
}
