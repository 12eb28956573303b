package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-msgauth/auth"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// baseTransport unwraps the strategy round tripper.
func baseTransport(t *testing.T, tr *HTTPTransport) *http.Transport {
	t.Helper()
	rt, ok := tr.client.Transport.(*strategyRoundTripper)
	if !ok {
		t.Fatal("transport is not wrapped by the strategy round tripper")
	}
	base, ok := rt.base.(*http.Transport)
	if !ok {
		t.Fatal("base transport is not *http.Transport")
	}
	return base
}

// bearerStrategy carries token on the HTTP and command channels only.
func bearerStrategy(token string) auth.Strategy {
	return auth.NewStrategy("token", auth.NewStaticProvider(auth.Credentials{
		HTTP:    &auth.HTTPCredential{AuthType: "Bearer", Headers: "Authorization: Bearer " + token},
		Command: &auth.CommandToken{Data: token},
	}))
}

// selfSignedPEM returns a throwaway client certificate and key as PEM text.
func selfSignedPEM(t *testing.T, cn string) (certPEM, keyPEM string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM
}

func selfSignedCert(t *testing.T, cn string) tls.Certificate {
	t.Helper()
	certPEM, keyPEM := selfSignedPEM(t, cn)
	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	require.NoError(t, err)
	return cert
}

// newClientAuthServer starts a TLS server that demands a client certificate
// and answers with its common name. The returned pool trusts the server.
func newClientAuthServer(t *testing.T) (*httptest.Server, *x509.CertPool) {
	t.Helper()

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
	}))
	server.TLS = &tls.Config{ClientAuth: tls.RequireAnyClientCert}
	server.StartTLS()
	t.Cleanup(server.Close)

	pool := x509.NewCertPool()
	pool.AddCert(server.Certificate())
	return server, pool
}
