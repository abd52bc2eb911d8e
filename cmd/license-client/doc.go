// Package main (cmd/license-client) validates a license key against a
// license server, binding it to this machine's fingerprint on first use.
//
// Example usage:
//
//	license-client validate --server http://127.0.0.1:8000 --key ABC-123
//	license-client fingerprint
package main
