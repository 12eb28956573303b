// Command authtoken is a plugin module providing the "token" strategy: a
// bearer token sent in the CONNECT command and as an Authorization header on
// HTTP lookups.
//
// Build with:
//
//	go build -buildmode=plugin -o authtoken.so ./plugins/authtoken
//
// Map parameters (exactly one source):
//
//	token          the token itself
//	file           path of a file holding the token, re-read on every use
//	secretKey      HS256 key used to mint a JWT for subject
//	secretKeyFile  file holding the HS256 key
//
// Minting parameters: subject (required with a key) and expiry (a Go
// duration, default no expiry).
//
// Create additionally accepts the raw forms "token:<token>",
// "file:<path>" and a bare token.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smnsjas/go-msgauth/auth"
)

// MethodToken is the method name announced to the server.
const MethodToken = "token"

const (
	paramToken         = "token"
	paramFile          = "file"
	paramSecretKey     = "secretKey"
	paramSecretKeyFile = "secretKeyFile"
	paramSubject       = "subject"
	paramExpiry        = "expiry"

	// refreshBefore re-mints a JWT this long before it expires, capped at a
	// quarter of the token lifetime.
	refreshBefore = 30 * time.Second
)

var errNoSource = errors.New("authtoken: one of token, file, secretKey or secretKeyFile is required")

// Create builds the token strategy from a raw parameter string.
func Create(params string) (auth.Strategy, error) {
	switch {
	case strings.HasPrefix(params, paramToken+":") && !strings.Contains(params, ","):
		return CreateFromMap(auth.ParamMap{paramToken: strings.TrimPrefix(params, paramToken+":")})
	case strings.HasPrefix(params, paramFile+":") && !strings.Contains(params, ","):
		return CreateFromMap(auth.ParamMap{paramFile: strings.TrimPrefix(params, paramFile+":")})
	case params != "" && !strings.ContainsAny(params, ":,"):
		return CreateFromMap(auth.ParamMap{paramToken: params})
	default:
		return CreateFromMap(auth.ParseParams(params))
	}
}

// CreateFromMap builds the token strategy from parsed parameters.
func CreateFromMap(params auth.ParamMap) (auth.Strategy, error) {
	src, err := newSource(params)
	if err != nil {
		return nil, err
	}
	return auth.NewStrategy(MethodToken, &tokenProvider{source: src}), nil
}

// tokenSource returns the current token.
type tokenSource func() (string, error)

func newSource(params auth.ParamMap) (tokenSource, error) {
	switch {
	case params[paramToken] != "":
		tok := params[paramToken]
		return func() (string, error) { return tok, nil }, nil

	case params[paramFile] != "":
		path := params[paramFile]
		return func() (string, error) {
			b, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read token file: %w", err)
			}
			return strings.TrimSpace(string(b)), nil
		}, nil

	case params[paramSecretKey] != "" || params[paramSecretKeyFile] != "":
		return newJWTSource(params)

	default:
		return nil, errNoSource
	}
}

func newJWTSource(params auth.ParamMap) (tokenSource, error) {
	key := []byte(params[paramSecretKey])
	if path := params[paramSecretKeyFile]; len(key) == 0 && path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("authtoken: read secret key: %w", err)
		}
		key = []byte(strings.TrimSpace(string(b)))
	}
	if len(key) == 0 {
		return nil, errors.New("authtoken: empty secret key")
	}

	subject := params[paramSubject]
	if subject == "" {
		return nil, errors.New("authtoken: subject is required to mint a token")
	}

	var ttl time.Duration
	if s := params[paramExpiry]; s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("authtoken: invalid expiry %q", s)
		}
		ttl = d
	}

	m := &minter{key: key, subject: subject, ttl: ttl, now: time.Now}
	return m.token, nil
}

// minter signs HS256 tokens and caches them until shortly before expiry.
type minter struct {
	key     []byte
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	current string
	expires time.Time
}

func (m *minter) token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.current != "" && (m.ttl == 0 || now.Before(m.expires.Add(-m.refreshMargin()))) {
		return m.current, nil
	}

	claims := jwt.RegisteredClaims{
		Subject:  m.subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if m.ttl > 0 {
		m.expires = now.Add(m.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(m.expires)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	m.current = signed
	return signed, nil
}

func (m *minter) refreshMargin() time.Duration {
	return min(refreshBefore, m.ttl/4)
}

// tokenProvider serves the token on the HTTP and command channels. A token
// that cannot be obtained makes both channels unavailable for that poll.
type tokenProvider struct {
	source tokenSource
}

func (p *tokenProvider) Credentials() auth.Credentials {
	tok, err := p.source()
	if err != nil || tok == "" {
		slog.Default().Warn("authtoken: token unavailable", "error", err)
		return auth.Credentials{}
	}

	return auth.Credentials{
		HTTP: &auth.HTTPCredential{
			AuthType: "Bearer",
			Headers:  "Authorization: Bearer " + tok,
		},
		Command: &auth.CommandToken{Data: tok},
	}
}

func main() {}
