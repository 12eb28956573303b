// Package auth provides authentication strategies for messaging client
// connections, loaded at runtime from plugin modules.
//
// # Channels
//
// A Strategy owns one Provider. The transport polls the Provider for
// Credentials whenever it needs them; each channel is optional:
//
//   - TLS: client certificate and key for mutual TLS
//   - HTTP: header lines added to HTTP lookup requests
//   - Command: opaque data carried in the binary CONNECT command
//
// Disabled returns the built-in "none" strategy, which reports every channel
// unavailable.
//
// # Plugins
//
// A plugin is a Go module built with -buildmode=plugin that exports one or
// both constructors:
//
//	func CreateFromMap(params auth.ParamMap) auth.Strategy
//	func Create(params string) auth.Strategy
//
// Either may instead return (auth.Strategy, error). CreateFromMap is
// required for the map path; Create is optional and, when absent,
// Factory.CreateFromString parses the string with ParseParams and falls back
// to CreateFromMap.
//
// Parameter strings use the "key1:value1,key2:value2" format. Segments that
// do not split into exactly one non-empty key and one non-empty value are
// dropped.
//
// # Usage
//
//	reg := loader.NewRegistry()
//	defer reg.Shutdown()
//
//	factory := auth.NewFactory(reg, auth.WithLogger(logger))
//	strategy, err := factory.CreateFromString("/usr/lib/msgauth/authtls.so",
//	    "tlsCertFile:/etc/client.pem,tlsKeyFile:/etc/client-key.pem")
//	if err != nil {
//	    // strategy is nil; errors.Is(err, auth.ErrModuleLoad) etc.
//	}
//
//	creds := strategy.Provider().Credentials()
//	if creds.HasDataForTLS() {
//	    cert, err := creds.TLS.Certificate()
//	    ...
//	}
package auth
