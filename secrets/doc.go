// Package secrets provides SecretStore implementations. Secrets (token
// encryption keys, salts, metadata object paths) are provisioned by an
// external system; the gateway only reads them. Two backends exist: a
// static in-memory store for development and tests, and a HashiCorp Vault
// KV v2 store for production deployments.
package secrets
