package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-msgauth/auth"
)

// TestNewHTTPTransport verifies transport creation with default settings.
func TestNewHTTPTransport(t *testing.T) {
	tr := NewHTTPTransport()
	if tr == nil {
		t.Fatal("NewHTTPTransport returned nil")
	}
	if tr.client == nil {
		t.Error("client is nil")
	}
	if !auth.IsDisabled(tr.Strategy()) {
		t.Errorf("default strategy = %q, want disabled", tr.Strategy().MethodName())
	}
}

// TestHTTPTransport_WithTimeout verifies timeout configuration.
func TestHTTPTransport_WithTimeout(t *testing.T) {
	timeout := 30 * time.Second
	tr := NewHTTPTransport(WithTimeout(timeout))

	if tr.client.Timeout != timeout {
		t.Errorf("got timeout %v, want %v", tr.client.Timeout, timeout)
	}
}

// TestHTTPTransport_WithInsecureSkipVerify verifies TLS skip verify configuration.
func TestHTTPTransport_WithInsecureSkipVerify(t *testing.T) {
	tr := NewHTTPTransport(WithInsecureSkipVerify(true))

	httpTransport := baseTransport(t, tr)
	if httpTransport.TLSClientConfig == nil {
		t.Fatal("TLSClientConfig is nil")
	}
	if !httpTransport.TLSClientConfig.InsecureSkipVerify {
		t.Error("InsecureSkipVerify is false, want true")
	}
}

// TestHTTPTransport_WithTLSConfig verifies custom TLS configuration.
func TestHTTPTransport_WithTLSConfig(t *testing.T) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS10,
		ServerName: "broker.example.com",
	}
	tr := NewHTTPTransport(WithTLSConfig(tlsCfg))

	httpTransport := baseTransport(t, tr)
	if httpTransport.TLSClientConfig.ServerName != "broker.example.com" {
		t.Error("TLSClientConfig does not carry the provided settings")
	}
	if httpTransport.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", httpTransport.TLSClientConfig.MinVersion)
	}
	if httpTransport.TLSClientConfig.GetClientCertificate != nil {
		t.Error("disabled strategy must not install a client certificate callback")
	}
	if tlsCfg.MinVersion != tls.VersionTLS10 {
		t.Error("caller's TLS config was modified")
	}
}

// TestHTTPTransport_WithTLSConfig_Strategy verifies the callback lands on the
// transport's copy only.
func TestHTTPTransport_WithTLSConfig_Strategy(t *testing.T) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	tr := NewHTTPTransport(WithTLSConfig(tlsCfg), WithStrategy(bearerStrategy("abc")))

	assert.NotNil(t, baseTransport(t, tr).TLSClientConfig.GetClientCertificate)
	assert.Nil(t, tlsCfg.GetClientCertificate)
}

// TestHTTPTransport_Get verifies basic request execution.
func TestHTTPTransport_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if a := r.Header.Get("Accept"); a != ContentTypeJSON {
			t.Errorf("unexpected Accept: %s", a)
		}
		if h := r.Header.Get("Authorization"); h != "" {
			t.Errorf("disabled strategy sent Authorization: %s", h)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	resp, err := tr.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(string(resp), "ok") {
		t.Errorf("unexpected response: %s", resp)
	}
}

// TestHTTPTransport_Get_WithContext verifies context cancellation.
func TestHTTPTransport_Get_WithContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewHTTPTransport()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tr.Get(ctx, server.URL)
	if err == nil {
		t.Error("expected context deadline exceeded error")
	}
}

// TestHTTPTransport_Get_Error verifies error handling for failed requests.
func TestHTTPTransport_Get_Error(t *testing.T) {
	tr := NewHTTPTransport()

	_, err := tr.Get(context.Background(), "http://localhost:1")
	if err == nil {
		t.Error("expected connection error")
	}
}

func TestHTTPTransport_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) }},
		{http.StatusForbidden, func(t *testing.T, err error) { assert.Contains(t, err.Error(), "403") }},
		{http.StatusInternalServerError, func(t *testing.T, err error) { assert.Contains(t, err.Error(), "broker down") }},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("broker down"))
			}))
			defer server.Close()

			_, err := NewHTTPTransport().Get(context.Background(), server.URL)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestHTTPTransport_StrategyHeaders(t *testing.T) {
	var (
		mu  sync.Mutex
		got http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		got = r.Header.Clone()
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	s := auth.NewStrategy("custom", auth.NewStaticProvider(auth.Credentials{
		HTTP: &auth.HTTPCredential{AuthType: "Custom", Headers: "X-Auth-Token: abc\nX-Tenant: acme"},
	}))
	tr := NewHTTPTransport(WithStrategy(s))

	_, err := tr.Get(context.Background(), server.URL)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "abc", got.Get("X-Auth-Token"))
	assert.Equal(t, "acme", got.Get("X-Tenant"))
	assert.Equal(t, ContentTypeJSON, got.Get("Accept"))
	assert.Same(t, s, tr.Strategy())
}

func TestHTTPTransport_PollsProviderPerRequest(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Header.Get("Authorization"))
	}))
	defer server.Close()

	var n atomic.Int32
	s := auth.NewStrategy("rotating", auth.ProviderFunc(func() auth.Credentials {
		if n.Add(1) == 1 {
			return auth.Credentials{HTTP: &auth.HTTPCredential{AuthType: "Bearer", Headers: "Authorization: Bearer one"}}
		}
		return auth.Credentials{HTTP: &auth.HTTPCredential{AuthType: "Bearer", Headers: "Authorization: Bearer two"}}
	}))
	tr := NewHTTPTransport(WithStrategy(s))

	for i := 0; i < 2; i++ {
		_, err := tr.Get(context.Background(), server.URL)
		require.NoError(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer one", "Bearer two"}, seen)
}

func TestHTTPTransport_MalformedHeadersFailRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	s := auth.NewStrategy("broken", auth.NewStaticProvider(auth.Credentials{
		HTTP: &auth.HTTPCredential{Headers: "not a header"},
	}))

	_, err := NewHTTPTransport(WithStrategy(s)).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken strategy")
	assert.Zero(t, hits.Load(), "request must not be sent")
}

func TestStrategyRoundTripper_DoesNotMutateRequest(t *testing.T) {
	var base roundTripFunc = func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		return nil, errors.New("stop")
	}
	rt := &strategyRoundTripper{base: base, strategy: bearerStrategy("abc"), logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "http://broker/admin", nil)
	_, _ = rt.RoundTrip(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestClientCertificateFunc(t *testing.T) {
	t.Run("no tls data sends empty certificate", func(t *testing.T) {
		cert, err := ClientCertificateFunc(auth.Disabled())(&tls.CertificateRequestInfo{})
		require.NoError(t, err)
		assert.Empty(t, cert.Certificate)
	})

	t.Run("fallback callback is consulted without tls data", func(t *testing.T) {
		want := &tls.Certificate{Certificate: [][]byte{[]byte("der")}}
		fallback := &tls.Config{GetClientCertificate: func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return want, nil
		}}
		got, err := clientCertificateFunc(bearerStrategy("abc"), fallback)(&tls.CertificateRequestInfo{})
		require.NoError(t, err)
		assert.Same(t, want, got)
	})

	t.Run("unreadable files fail the handshake", func(t *testing.T) {
		s := auth.NewStrategy("tls", auth.NewStaticProvider(auth.Credentials{
			TLS: &auth.TLSCredential{Certificates: "/no/cert.pem", PrivateKey: "/no/key.pem"},
		}))
		_, err := ClientCertificateFunc(s)(&tls.CertificateRequestInfo{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tls strategy")
	})
}

func TestConnectAuth(t *testing.T) {
	method, data, ok := ConnectAuth(bearerStrategy("abc"))
	assert.True(t, ok)
	assert.Equal(t, "token", method)
	assert.Equal(t, []byte("abc"), data)

	method, data, ok = ConnectAuth(auth.Disabled())
	assert.False(t, ok)
	assert.Equal(t, auth.MethodNone, method)
	assert.Nil(t, data)

	method, _, ok = ConnectAuth(nil)
	assert.False(t, ok)
	assert.Equal(t, auth.MethodNone, method)
}

func TestReadAllPooled(t *testing.T) {
	body := strings.Repeat("x", 3*defaultBufferSize)
	got, err := readAllPooled(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	got2, err := readAllPooled(strings.NewReader("short"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(got2))
	assert.Equal(t, body, string(got), "returned slices do not alias the pool")
}

func TestStrategyRoundTripper_WarnsOnceOverPlainHTTP(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	var base roundTripFunc = func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}
	rt := &strategyRoundTripper{base: base, strategy: bearerStrategy("abc"), logger: logger}

	for i := 0; i < 3; i++ {
		_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://broker/admin", nil))
		require.NoError(t, err)
	}
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://broker/admin", nil))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(buf.String(), "non-HTTPS"))
	assert.NotContains(t, buf.String(), "abc")
}

func TestHTTPTransport_ClientCertificates(t *testing.T) {
	configured := selfSignedCert(t, "configured")
	strategyCertPEM, strategyKeyPEM := selfSignedPEM(t, "from-strategy")
	tlsStrategy := auth.NewStrategy("tls", auth.NewStaticProvider(auth.Credentials{
		TLS: &auth.TLSCredential{Certificates: strategyCertPEM, PrivateKey: strategyKeyPEM},
	}))

	tests := []struct {
		name     string
		strategy auth.Strategy
		certs    []tls.Certificate
		wantCN   string
		wantErr  bool
	}{
		{name: "configured certificate without strategy", certs: []tls.Certificate{configured}, wantCN: "configured"},
		{name: "strategy without tls data falls back", strategy: bearerStrategy("abc"), certs: []tls.Certificate{configured}, wantCN: "configured"},
		{name: "strategy certificate wins", strategy: tlsStrategy, certs: []tls.Certificate{configured}, wantCN: "from-strategy"},
		{name: "strategy certificate alone", strategy: tlsStrategy, wantCN: "from-strategy"},
		{name: "no certificate anywhere", strategy: bearerStrategy("abc"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, pool := newClientAuthServer(t)

			opts := []HTTPTransportOption{
				WithTLSConfig(&tls.Config{RootCAs: pool, Certificates: tt.certs}),
				WithLogger(discardLogger()),
			}
			if tt.strategy != nil {
				opts = append(opts, WithStrategy(tt.strategy))
			}

			body, err := NewHTTPTransport(opts...).Get(context.Background(), server.URL)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCN, string(body))
		})
	}
}
