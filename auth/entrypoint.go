package auth

import (
	"errors"
	"fmt"

	"github.com/smnsjas/go-msgauth/loader"
)

// Exported symbol names a plugin module may provide.
const (
	// SymbolCreate takes the raw parameter string. It is optional.
	SymbolCreate = "Create"

	// SymbolCreateFromMap takes parsed parameters.
	SymbolCreateFromMap = "CreateFromMap"
)

// StringConstructor builds a strategy from the raw parameter string.
type StringConstructor func(params string) (Strategy, error)

// MapConstructor builds a strategy from parsed parameters.
type MapConstructor func(params ParamMap) (Strategy, error)

// lookupResult tags the outcome of resolving one entrypoint.
type lookupResult int

const (
	symbolAbsent lookupResult = iota
	symbolMismatch
	symbolFound
)

// resolveStringConstructor looks up SymbolCreate on h.
func resolveStringConstructor(h *loader.Handle) (StringConstructor, lookupResult) {
	sym, ok := h.Lookup(SymbolCreate)
	if !ok {
		return nil, symbolAbsent
	}

	var fn StringConstructor
	switch v := sym.(type) {
	case func(string) Strategy:
		fn = adaptString(v)
	case *func(string) Strategy:
		if v != nil && *v != nil {
			fn = adaptString(*v)
		}
	case func(string) (Strategy, error):
		fn = v
	case *func(string) (Strategy, error):
		if v != nil && *v != nil {
			fn = *v
		}
	}
	if fn == nil {
		return nil, symbolMismatch
	}
	return fn, symbolFound
}

// resolveMapConstructor looks up SymbolCreateFromMap on h.
func resolveMapConstructor(h *loader.Handle) (MapConstructor, lookupResult) {
	sym, ok := h.Lookup(SymbolCreateFromMap)
	if !ok {
		return nil, symbolAbsent
	}

	var fn MapConstructor
	switch v := sym.(type) {
	case func(ParamMap) Strategy:
		fn = adaptMap(v)
	case *func(ParamMap) Strategy:
		if v != nil && *v != nil {
			fn = adaptMap(*v)
		}
	case func(map[string]string) Strategy:
		fn = func(p ParamMap) (Strategy, error) { return v(p), nil }
	case *func(map[string]string) Strategy:
		if v != nil && *v != nil {
			inner := *v
			fn = func(p ParamMap) (Strategy, error) { return inner(p), nil }
		}
	case func(ParamMap) (Strategy, error):
		fn = v
	case *func(ParamMap) (Strategy, error):
		if v != nil && *v != nil {
			fn = *v
		}
	}
	if fn == nil {
		return nil, symbolMismatch
	}
	return fn, symbolFound
}

func adaptString(f func(string) Strategy) StringConstructor {
	return func(s string) (Strategy, error) { return f(s), nil }
}

func adaptMap(f func(ParamMap) Strategy) MapConstructor {
	return func(p ParamMap) (Strategy, error) { return f(p), nil }
}

// invoke runs a plugin constructor, turning a nil result, a returned error
// or a panic into an error. The method name is read here as well, so a
// strategy that panics on first use is reported like a panicking
// constructor.
func invoke(build func() (Strategy, error)) (s Strategy, method string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, method = nil, ""
			err = fmt.Errorf("%w: %v", ErrConstructorPanic, r)
		}
	}()

	s, err = build()
	if err != nil {
		return nil, "", errors.Join(ErrConstructorRefused, err)
	}
	if s == nil {
		return nil, "", ErrConstructorRefused
	}
	return s, s.MethodName(), nil
}
