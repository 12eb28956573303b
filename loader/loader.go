package loader

import (
	"fmt"
	"plugin"
	"sync"
)

// Module is one opened native module.
type Module interface {
	// Lookup resolves an exported symbol. It returns an error when the
	// symbol does not exist.
	Lookup(name string) (any, error)

	// Close releases the module. It is called exactly once by the registry.
	Close() error
}

// Opener opens native modules by path.
type Opener interface {
	Open(path string) (Module, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Module, error)

// Open implements Opener.
func (f OpenerFunc) Open(path string) (Module, error) {
	return f(path)
}

// GoPluginOpener opens modules built with -buildmode=plugin.
//
// The Go runtime cannot unload a plugin. Close drops the reference to the
// symbol table so no further lookups reach the module; the code stays mapped
// until the process exits.
type GoPluginOpener struct{}

// Open implements Opener.
func (GoPluginOpener) Open(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &goModule{path: path, p: p}, nil
}

type goModule struct {
	mu   sync.Mutex
	path string
	p    *plugin.Plugin
}

func (m *goModule) Lookup(name string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.p == nil {
		return nil, fmt.Errorf("module %s: %w", m.path, ErrReleased)
	}
	sym, err := m.p.Lookup(name)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (m *goModule) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.p = nil
	return nil
}
