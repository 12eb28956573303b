// Package auth loads runtime-selected authentication strategies for a
// messaging client.
package auth

// MethodNone is the method name of the disabled strategy.
const MethodNone = "none"

// Strategy is a named authentication mechanism.
//
// The transport uses MethodName to pick wire-level behavior and polls
// Provider for credential material on its own schedule. A Strategy is never
// mutated after construction.
type Strategy interface {
	// MethodName returns the authentication method announced to the server.
	MethodName() string

	// Provider returns the credential provider owned by this strategy.
	Provider() Provider
}

// basicStrategy is the Strategy returned by NewStrategy.
type basicStrategy struct {
	name     string
	provider Provider
}

// NewStrategy creates an immutable Strategy. A nil provider is replaced by
// NoneProvider.
func NewStrategy(name string, provider Provider) Strategy {
	if provider == nil {
		provider = NoneProvider{}
	}
	return &basicStrategy{name: name, provider: provider}
}

// MethodName implements Strategy.
func (s *basicStrategy) MethodName() string {
	return s.name
}

// Provider implements Strategy.
func (s *basicStrategy) Provider() Provider {
	return s.provider
}

// Disabled returns a fresh strategy that supplies no credentials on any
// channel. It is used when no plugin is configured.
func Disabled() Strategy {
	return &disabledStrategy{}
}

// disabledStrategy reports MethodNone and a NoneProvider.
type disabledStrategy struct{}

// MethodName implements Strategy.
func (*disabledStrategy) MethodName() string {
	return MethodNone
}

// Provider implements Strategy.
func (*disabledStrategy) Provider() Provider {
	return NoneProvider{}
}

// IsDisabled reports whether s is nil or the disabled strategy.
func IsDisabled(s Strategy) bool {
	if s == nil {
		return true
	}
	_, ok := s.(*disabledStrategy)
	return ok
}
