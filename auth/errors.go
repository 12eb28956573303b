package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleLoad is returned when the plugin module cannot be opened.
	ErrModuleLoad = errors.New("auth: plugin module could not be loaded")

	// ErrEntrypointMissing is returned when the module exports no usable
	// constructor.
	ErrEntrypointMissing = errors.New("auth: plugin entrypoint not found")

	// ErrEntrypointSignature is returned when a constructor symbol exists
	// but has an unsupported type.
	ErrEntrypointSignature = errors.New("auth: plugin entrypoint has unsupported signature")

	// ErrConstructorRefused is returned when the plugin constructor returns
	// no strategy or an error.
	ErrConstructorRefused = errors.New("auth: plugin constructor returned no strategy")

	// ErrConstructorPanic is returned when the plugin constructor panics.
	ErrConstructorPanic = errors.New("auth: plugin constructor panicked")
)

// PluginError describes why a plugin could not produce a strategy.
type PluginError struct {
	// Path is the module path passed to the factory.
	Path string

	// Symbol is the entrypoint involved, if any.
	Symbol string

	// Err is one of the sentinel errors, possibly wrapping the cause.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%v (module %s, symbol %s)", e.Err, e.Path, e.Symbol)
	}
	return fmt.Sprintf("%v (module %s)", e.Err, e.Path)
}

// Unwrap returns the underlying error.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// IsPluginError returns true if err is a PluginError.
func IsPluginError(err error) bool {
	var pe *PluginError
	return errors.As(err, &pe)
}

// joinCause wraps cause under sentinel so both match errors.Is.
func joinCause(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
