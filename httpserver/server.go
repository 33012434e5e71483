package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/trustedcore/attestation-gateway/interfaces"
	"github.com/trustedcore/attestation-gateway/metadata"
	"github.com/trustedcore/attestation-gateway/metrics"
)

// HTTPServerConfig holds listener and lifecycle settings.
type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server owns the API listener, the metrics listener and the health
// state handed in by the bootstrap.
type Server struct {
	cfg    *HTTPServerConfig
	log    *slog.Logger
	health *Health

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

// New creates a server around the given handler. The health state stays
// unhealthy until RunInBackground binds the listener.
func New(cfg *HTTPServerConfig, handler *Handler, metricsSrv *metrics.MetricsServer, health *Health) (*Server, error) {
	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		health:     health,
		metricsSrv: metricsSrv,
		handler:    handler,
	}

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	h := srv.handler

	mux.With(srv.httpLogger).Post("/attest",
		h.WithRole(interfaces.RoleOperator, h.HandleAttest))

	refreshRoutes := map[string]metadata.Category{
		"/key/refresh":       metadata.CategoryKey,
		"/key/acl/refresh":   metadata.CategoryKeyACL,
		"/salt/refresh":      metadata.CategorySalt,
		"/clients/refresh":   metadata.CategoryClient,
		"/operators/refresh": metadata.CategoryOperator,
		"/partners/refresh":  metadata.CategoryPartner,
	}
	for route, category := range refreshRoutes {
		mux.With(srv.httpLogger).Get(route,
			h.WithRole(interfaces.RoleOperator, h.WithAttestation(h.MetadataHandler(category))))
	}

	mux.With(srv.httpLogger).Get("/ops/healthcheck", srv.handleHealthCheck)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// handleHealthCheck reports process health: "OK" with 200 when healthy,
// the recorded reason with 503 otherwise.
func (srv *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if srv.health.Healthy() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(srv.health.Reason()))
}

// RunInBackground binds the listeners and serves until Shutdown. Health
// flips to healthy only after the API listener binds; a bind failure
// records its reason instead.
func (srv *Server) RunInBackground() {
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
	listener, err := net.Listen("tcp", srv.cfg.ListenAddr)
	if err != nil {
		srv.log.Error("HTTP server failed to bind", "err", err)
		srv.health.SetUnhealthy(err.Error())
		return
	}
	srv.health.SetHealthy()

	go func() {
		if err := srv.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
			srv.health.SetUnhealthy(err.Error())
		}
	}()
}

// Shutdown drains and gracefully stops both listeners.
func (srv *Server) Shutdown() {
	srv.health.SetUnhealthy("shutting down")
	if srv.cfg.DrainDuration > 0 {
		srv.log.Info("Waiting for load balancers to drain", "duration", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
