package auth

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Sentinel is returned by every Credentials accessor whose channel has no data.
const Sentinel = "none"

// Credentials is the credential material a strategy exposes to the transport.
// Each channel is optional; a nil descriptor means the channel is unavailable.
type Credentials struct {
	// TLS holds the client certificate used for mutual TLS.
	TLS *TLSCredential

	// HTTP holds the header-based authentication used on HTTP lookups.
	HTTP *HTTPCredential

	// Command holds the data sent in the binary protocol CONNECT command.
	Command *CommandToken
}

// TLSCredential identifies a client certificate and its private key.
//
// Certificates and PrivateKey hold either PEM text or a path to a PEM file.
type TLSCredential struct {
	Certificates string
	PrivateKey   string
}

// HTTPCredential describes header-based authentication.
type HTTPCredential struct {
	// AuthType names the HTTP authentication scheme (e.g. "Bearer").
	AuthType string

	// Headers holds one or more "Name: value" lines separated by newlines.
	Headers string
}

// CommandToken is opaque authentication data carried in-band by the
// binary protocol.
type CommandToken struct {
	Data string
}

// Provider exposes per-channel credential material on demand.
//
// The transport calls Credentials repeatedly, from its own goroutines, for
// the whole lifetime of a connection. Implementations must be safe for
// concurrent use.
type Provider interface {
	Credentials() Credentials
}

// NoneProvider is the base Provider. It reports every channel unavailable.
type NoneProvider struct{}

// Credentials implements Provider.
func (NoneProvider) Credentials() Credentials {
	return Credentials{}
}

// StaticProvider returns the same Credentials on every call.
type StaticProvider struct {
	creds Credentials
}

// NewStaticProvider creates a Provider that always returns creds.
func NewStaticProvider(creds Credentials) *StaticProvider {
	return &StaticProvider{creds: creds}
}

// Credentials implements Provider.
func (p *StaticProvider) Credentials() Credentials {
	return p.creds
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() Credentials

// Credentials implements Provider.
func (f ProviderFunc) Credentials() Credentials {
	return f()
}

// HasDataForTLS reports whether the TLS channel carries data.
func (c Credentials) HasDataForTLS() bool {
	return c.TLS != nil
}

// TLSCertificates returns the certificate chain, or Sentinel.
func (c Credentials) TLSCertificates() string {
	if c.TLS == nil {
		return Sentinel
	}
	return c.TLS.Certificates
}

// TLSPrivateKey returns the private key, or Sentinel.
func (c Credentials) TLSPrivateKey() string {
	if c.TLS == nil {
		return Sentinel
	}
	return c.TLS.PrivateKey
}

// HasDataForHTTP reports whether the HTTP channel carries data.
func (c Credentials) HasDataForHTTP() bool {
	return c.HTTP != nil
}

// HTTPAuthType returns the HTTP auth scheme, or Sentinel.
func (c Credentials) HTTPAuthType() string {
	if c.HTTP == nil {
		return Sentinel
	}
	return c.HTTP.AuthType
}

// HTTPHeaders returns the raw header lines, or Sentinel.
func (c Credentials) HTTPHeaders() string {
	if c.HTTP == nil {
		return Sentinel
	}
	return c.HTTP.Headers
}

// HasDataFromCommand reports whether the command channel carries data.
func (c Credentials) HasDataFromCommand() bool {
	return c.Command != nil
}

// CommandData returns the command token, or Sentinel.
func (c Credentials) CommandData() string {
	if c.Command == nil {
		return Sentinel
	}
	return c.Command.Data
}

// Certificate loads the key pair. PEM text is parsed directly; anything
// else is treated as a pair of file paths.
func (t *TLSCredential) Certificate() (*tls.Certificate, error) {
	var (
		cert tls.Certificate
		err  error
	)
	if isPEM(t.Certificates) && isPEM(t.PrivateKey) {
		cert, err = tls.X509KeyPair([]byte(t.Certificates), []byte(t.PrivateKey))
	} else {
		cert, err = tls.LoadX509KeyPair(t.Certificates, t.PrivateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	return &cert, nil
}

// LogValue implements slog.LogValuer. Key material is never logged.
func (t *TLSCredential) LogValue() slog.Value {
	certs := t.Certificates
	if isPEM(certs) {
		certs = "[PEM]"
	}
	return slog.GroupValue(
		slog.String("certificates", certs),
		slog.String("private_key", "[REDACTED]"),
	)
}

func isPEM(s string) bool {
	return strings.Contains(s, "-----BEGIN ")
}

// Header parses the header lines into an http.Header.
func (h *HTTPCredential) Header() (http.Header, error) {
	header := make(http.Header)
	for _, line := range strings.Split(h.Headers, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}

// LogValue implements slog.LogValuer. Header values are never logged.
func (h *HTTPCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("auth_type", h.AuthType),
		slog.String("headers", "[REDACTED]"),
	)
}

// LogValue implements slog.LogValuer.
func (c *CommandToken) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
