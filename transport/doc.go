// Package transport connects an auth.Strategy to the client's wire
// protocols.
//
// The transport layer handles:
//   - HTTP lookups carrying the strategy's header lines
//   - TLS handshakes presenting the strategy's client certificate
//   - the method name and auth data of the binary CONNECT command
package transport
