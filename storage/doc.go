// Package storage provides CloudStorage backends for metadata objects.
//
// Backends are specified using URI format:
//
//	[scheme]://[host][/path][?params]
//
// Supported URI schemes:
//
//   - s3://bucket-name/prefix/?region=us-west-2&endpoint=...
//   - file:///var/lib/gateway/metadata/
//
// The S3 backend serves cloud deployments and generates genuine pre-signed
// GET URLs. The file backend serves local development and tests; its
// "pre-signed" URLs are plain file URLs with a synthetic signature query so
// callers observe the same shape in both environments.
package storage
