/*
Package httpserver provides the gateway's HTTP surface: request routing,
authentication and proof-of-attestation middleware, the uniform response
envelope, health state, and server lifecycle management.

# Endpoints

	POST /attest              - operator role; verify proof, issue token
	GET  /key/refresh         - operator role + attestation token
	GET  /key/acl/refresh     - operator role + attestation token
	GET  /salt/refresh        - operator role + attestation token
	GET  /clients/refresh     - operator role + attestation token
	GET  /operators/refresh   - operator role + attestation token
	GET  /partners/refresh    - operator role + attestation token
	GET  /ops/healthcheck     - no auth

# Response Envelope

Success and error bodies are serialized in exactly one place so handlers
cannot drift apart in format:

	{"status": "success", "body": ...}
	{"status": "<error status>", "message": "..."}

Metadata refresh endpoints return the raw JSON document instead of the
envelope, matching what operator nodes consume.

# Health

Health state is an explicit object owned by the process bootstrap:
unhealthy at construction, healthy once the listener binds, unhealthy
with a reason on bind failure.
*/
package httpserver
