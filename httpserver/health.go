package httpserver

import (
	"go.uber.org/atomic"
)

// Health tracks process health for /ops/healthcheck. It is owned by the
// process bootstrap and injected into both the server-start path and the
// healthcheck handler; no package-level instance exists.
type Health struct {
	healthy atomic.Bool
	reason  atomic.String
}

// NewHealth creates a health state that starts unhealthy.
func NewHealth() *Health {
	h := &Health{}
	h.reason.Store("not started")
	return h
}

// SetHealthy marks the process healthy.
func (h *Health) SetHealthy() {
	h.reason.Store("")
	h.healthy.Store(true)
}

// SetUnhealthy marks the process unhealthy with a reason.
func (h *Health) SetUnhealthy(reason string) {
	h.reason.Store(reason)
	h.healthy.Store(false)
}

// Healthy reports current health.
func (h *Health) Healthy() bool {
	return h.healthy.Load()
}

// Reason returns the last recorded unhealthy reason.
func (h *Health) Reason() string {
	return h.reason.Load()
}
