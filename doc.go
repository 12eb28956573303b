// Package msgauth loads authentication strategies for a messaging client
// from plugin modules chosen at runtime.
//
// A deployment names a module path and a parameter string; the client gets
// back a Strategy that tells the transport which method to announce and
// which credentials to present on each channel.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  cmd/authprobe  Load a plugin and report its channels   │
//	├─────────────────────────────────────────────────────────┤
//	│  transport/     HTTP headers, TLS certs, CONNECT data   │
//	├─────────────────────────────────────────────────────────┤
//	│  auth/          Strategy, Credentials, Factory          │
//	├─────────────────────────────────────────────────────────┤
//	│  loader/        Module registry and shutdown            │
//	└─────────────────────────────────────────────────────────┘
//
// Sample plugins live under plugins/: authtls, authtoken and authbasic.
//
// # Quick Start
//
//	reg := loader.NewRegistry()
//	f := auth.NewFactory(reg)
//
//	s, err := f.FromConfig(auth.Config{
//	    PluginPath: "/opt/msgauth/authtoken.so",
//	    Params:     "token:abc123",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tr := transport.NewHTTPTransport(transport.WithStrategy(s))
//	body, err := tr.Get(ctx, "https://broker:8443/admin/v2/clusters")
//
// Modules stay loaded until the registry shuts down. By default that happens
// when the process leaves through atexit.Exit.
package msgauth
