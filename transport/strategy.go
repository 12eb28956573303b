package transport

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/smnsjas/go-msgauth/auth"
)

// strategyRoundTripper adds the strategy's HTTP header lines to requests.
type strategyRoundTripper struct {
	base     http.RoundTripper
	strategy auth.Strategy
	logger   *slog.Logger
	warnOnce sync.Once
}

// RoundTrip implements http.RoundTripper.
func (rt *strategyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	creds := rt.strategy.Provider().Credentials()
	if !creds.HasDataForHTTP() {
		return rt.base.RoundTrip(req)
	}

	header, err := creds.HTTP.Header()
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("transport: %s strategy: %w", rt.strategy.MethodName(), err)
	}

	// Warn if sending credentials over non-HTTPS (they are easily readable)
	if req.URL.Scheme != "https" {
		rt.warnOnce.Do(func() {
			rt.logger.Warn("sending strategy credentials over a non-HTTPS connection",
				"method", rt.strategy.MethodName(), "host", req.URL.Host)
		})
	}

	// Clone the request to avoid mutating the original
	reqCopy := req.Clone(req.Context())
	for name, values := range header {
		reqCopy.Header.Del(name)
		for _, v := range values {
			reqCopy.Header.Add(name, v)
		}
	}

	rt.logger.Debug("applied strategy headers",
		"method", rt.strategy.MethodName(), "auth_type", creds.HTTPAuthType(), "count", len(header))
	return rt.base.RoundTrip(reqCopy)
}

// ClientCertificateFunc returns a tls.Config.GetClientCertificate callback
// that polls s on every handshake. When the strategy has no TLS data an
// empty certificate is sent, which lets the server decide whether a client
// certificate is required.
func ClientCertificateFunc(s auth.Strategy) func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return clientCertificateFunc(s, nil)
}

// clientCertificateFunc is ClientCertificateFunc with a fallback: when the
// strategy has no TLS data the certificate configured in fallback is used,
// chosen the way crypto/tls chooses from Config.Certificates.
func clientCertificateFunc(s auth.Strategy, fallback *tls.Config) func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return func(cri *tls.CertificateRequestInfo) (*tls.Certificate, error) {
		creds := s.Provider().Credentials()
		if creds.HasDataForTLS() {
			cert, err := creds.TLS.Certificate()
			if err != nil {
				return nil, fmt.Errorf("%s strategy: %w", s.MethodName(), err)
			}
			return cert, nil
		}

		if fallback == nil {
			return &tls.Certificate{}, nil
		}
		if fallback.GetClientCertificate != nil {
			return fallback.GetClientCertificate(cri)
		}
		for i := range fallback.Certificates {
			if cri.SupportsCertificate(&fallback.Certificates[i]) == nil {
				return &fallback.Certificates[i], nil
			}
		}
		return &tls.Certificate{}, nil
	}
}

// ConnectAuth returns the authentication fields of a binary protocol
// CONNECT command: the method name and, when the command channel carries
// data, the auth data. ok is false when no data should be sent.
func ConnectAuth(s auth.Strategy) (method string, data []byte, ok bool) {
	if s == nil {
		s = auth.Disabled()
	}
	creds := s.Provider().Credentials()
	if !creds.HasDataFromCommand() {
		return s.MethodName(), nil, false
	}
	return s.MethodName(), []byte(creds.CommandData()), true
}
