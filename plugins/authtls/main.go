// Command authtls is a plugin module providing the "tls" strategy: the
// client authenticates with a certificate presented during the TLS
// handshake.
//
// Build with:
//
//	go build -buildmode=plugin -o authtls.so ./plugins/authtls
//
// Parameters:
//
//	tlsCertFile  path to (or PEM text of) the client certificate chain
//	tlsKeyFile   path to (or PEM text of) the client private key
//
// Only CreateFromMap is exported, so parameter strings are parsed by the
// factory.
package main

import "github.com/smnsjas/go-msgauth/auth"

// MethodTLS is the method name announced to the server.
const MethodTLS = "tls"

const (
	paramCertFile = "tlsCertFile"
	paramKeyFile  = "tlsKeyFile"
)

// CreateFromMap builds the tls strategy. It returns nil when either
// parameter is missing.
func CreateFromMap(params auth.ParamMap) auth.Strategy {
	cert, key := params[paramCertFile], params[paramKeyFile]
	if cert == "" || key == "" {
		return nil
	}

	return auth.NewStrategy(MethodTLS, auth.NewStaticProvider(auth.Credentials{
		TLS: &auth.TLSCredential{
			Certificates: cert,
			PrivateKey:   key,
		},
	}))
}

func main() {}
