// Package cryptoutils builds the TLS contexts of the service from the ssl section of
// the service configuration: the server side terminating the HTTPS listener and the
// client side used to reach the discovery service. It also generates self-signed
// key pairs for local development and tests.
package cryptoutils
