package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tebeka/atexit"
)

var (
	// ErrOpen wraps failures of the native loader.
	ErrOpen = errors.New("loader: open module")

	// ErrRegistryClosed is returned by Load after Shutdown.
	ErrRegistryClosed = errors.New("loader: registry shut down")

	// ErrReleased is returned when a released module is used.
	ErrReleased = errors.New("loader: module released")
)

// Registry owns every module opened for plugin loading and releases each
// exactly once at shutdown.
//
// # Thread Safety
//
// A single mutex guards the handle list, the shutdown-hook flag and the
// closed flag. The lock is held across open-and-register, so loads from
// different goroutines are serialized and no handle can slip in after
// Shutdown has started.
type Registry struct {
	mu             sync.Mutex
	handles        []*Handle
	hookRegistered bool
	closed         bool

	opener       Opener
	registerExit func(func())
	logger       *slog.Logger
	metrics      *metrics
}

// Option configures a Registry.
type Option func(*registryOptions)

type registryOptions struct {
	opener       Opener
	registerExit func(func())
	logger       *slog.Logger
	registerer   prometheus.Registerer
}

// WithOpener sets the native loader. The default is GoPluginOpener.
func WithOpener(o Opener) Option {
	return func(opts *registryOptions) {
		opts.opener = o
	}
}

// WithExitRegistrar sets the function used to schedule Shutdown at process
// exit. The default is atexit.Register; the hosting process must then leave
// through atexit.Exit for the hook to run.
func WithExitRegistrar(register func(func())) Option {
	return func(opts *registryOptions) {
		opts.registerExit = register
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(opts *registryOptions) {
		opts.logger = l
	}
}

// WithRegisterer exports load metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(opts *registryOptions) {
		opts.registerer = reg
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := registryOptions{
		opener:       GoPluginOpener{},
		registerExit: func(f func()) { atexit.Register(f) },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Registry{
		opener:       o.opener,
		registerExit: o.registerExit,
		logger:       o.logger,
		metrics:      newMetrics(o.registerer),
	}
}

// Initialize schedules Shutdown at process exit. Only the first call has any
// effect.
func (r *Registry) Initialize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hookRegistered {
		return
	}
	if r.registerExit != nil {
		r.registerExit(func() {
			if err := r.Shutdown(); err != nil {
				r.logger.Warn("plugin registry shutdown", "error", err)
			}
		})
	}
	r.hookRegistered = true
}

// Load opens the module at path and registers its handle.
func (r *Registry) Load(path string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.metrics.loads.WithLabelValues(outcomeClosed).Inc()
		return nil, ErrRegistryClosed
	}

	m, err := r.opener.Open(path)
	if err != nil {
		r.metrics.loads.WithLabelValues(outcomeFailure).Inc()
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	if m == nil {
		r.metrics.loads.WithLabelValues(outcomeFailure).Inc()
		return nil, fmt.Errorf("%w %s: opener returned no module", ErrOpen, path)
	}

	h := NewHandle(path, m)
	r.appendLocked(h)
	r.metrics.loads.WithLabelValues(outcomeSuccess).Inc()
	r.logger.Debug("plugin module loaded", "handle", h)
	return h, nil
}

// Register adds an already opened handle. It fails after Shutdown.
func (r *Registry) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	r.appendLocked(h)
	return nil
}

// appendLocked must be called with mu held.
func (r *Registry) appendLocked(h *Handle) {
	r.handles = append(r.handles, h)
	r.metrics.handles.Inc()
}

// Shutdown releases every handle in insertion order and clears the
// registry. Calling it again is a no-op.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	var errs []error
	for _, h := range r.handles {
		released, err := h.release()
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", h.Path, err))
		}
		if released {
			r.metrics.releases.Inc()
			r.metrics.handles.Dec()
		}
	}
	if n := len(r.handles); n > 0 {
		r.logger.Debug("plugin modules released", "count", n)
	}
	r.handles = nil
	return errors.Join(errs...)
}

// Len returns the number of handles currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Handles returns a snapshot of the held handles in insertion order.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Handle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Closed reports whether Shutdown has run.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
