package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-msgauth/auth"
	"github.com/smnsjas/go-msgauth/transport"
)

func TestCreateFromMap(t *testing.T) {
	s, err := CreateFromMap(auth.ParamMap{paramUser: "admin", paramPassword: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, MethodBasic, s.MethodName())

	creds := s.Provider().Credentials()
	assert.Equal(t, "Basic", creds.HTTPAuthType())
	assert.Equal(t, "Authorization: Basic YWRtaW46czNjcmV0", creds.HTTPHeaders())
	assert.Equal(t, "admin:s3cret", creds.CommandData())
	assert.False(t, creds.HasDataForTLS())
}

func TestCreateFromMap_MissingParams(t *testing.T) {
	for _, p := range []auth.ParamMap{{}, {paramUser: "admin"}, {paramPassword: "x"}} {
		s, err := CreateFromMap(p)
		assert.Nil(t, s)
		assert.Error(t, err)
	}
}

func TestBasicCredentialsReachServer(t *testing.T) {
	var user, pass string
	var ok bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	defer server.Close()

	s, err := CreateFromMap(auth.ParamMap{paramUser: "admin", paramPassword: "s3cret"})
	require.NoError(t, err)

	_, err = transport.NewHTTPTransport(transport.WithStrategy(s)).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "s3cret", pass)
}
