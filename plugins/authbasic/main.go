// Command authbasic is a plugin module providing the "basic" strategy: a
// user name and password sent as HTTP Basic credentials on lookups and as
// "user:password" in the CONNECT command.
//
// Build with:
//
//	go build -buildmode=plugin -o authbasic.so ./plugins/authbasic
//
// Parameters: userId and password. Neither may contain ":" or ",", so
// passwords with those characters must be passed through the map form.
package main

import (
	"encoding/base64"
	"errors"

	"github.com/smnsjas/go-msgauth/auth"
)

// MethodBasic is the method name announced to the server.
const MethodBasic = "basic"

const (
	paramUser     = "userId"
	paramPassword = "password"
)

// CreateFromMap builds the basic strategy.
func CreateFromMap(params auth.ParamMap) (auth.Strategy, error) {
	user, pass := params[paramUser], params[paramPassword]
	if user == "" || pass == "" {
		return nil, errors.New("authbasic: userId and password are required")
	}

	// Build the basic auth value: base64(username:password)
	pair := user + ":" + pass
	encoded := base64.StdEncoding.EncodeToString([]byte(pair))

	return auth.NewStrategy(MethodBasic, auth.NewStaticProvider(auth.Credentials{
		HTTP: &auth.HTTPCredential{
			AuthType: "Basic",
			Headers:  "Authorization: Basic " + encoded,
		},
		Command: &auth.CommandToken{Data: pair},
	})), nil
}

func main() {}
