// Package common holds process-wide helpers shared by all binaries:
// logger construction and build version information.
package common

// Version is set at build time via -ldflags.
var Version = "dev"

// PackageName identifies the service in metrics and logs.
const PackageName = "attestation-gateway"
