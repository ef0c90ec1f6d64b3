package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"resumetailor/internal/config"
	"resumetailor/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully. Observability, TLS and file watchers are set up first.
func (s *Server) Start(ctx context.Context) error {
	om, err := observability.NewObservabilityManager(
		observability.GetObservabilityConfig(s.AppConfig, s.Version), s.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer s.shutdownObservability(om)

	httpServer, err := s.setupHTTPServer(om)
	if err != nil {
		return err
	}

	s.startWatchers(om)
	defer s.stopWatchers()

	s.displayServerInfo(httpServer)

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return s.serve(ctx, httpServer, listener)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) (*http.Server, error) {
	tlsConfig, err := s.buildTLSConfig(om)
	if err != nil {
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}

	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(om),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}, nil
}

// startWatchers reloads prompt files on change, and certificates from disk
// or Vault when TLS reload is on. A watcher that fails to start is logged
// and skipped.
func (s *Server) startWatchers(om *observability.ObservabilityManager) {
	debounce := s.AppConfig.Server.DebounceDelay
	metrics := om.GetMetrics()

	if s.AppConfig.Server.WatchPrompts && s.deps.Prompts != nil {
		if files := s.deps.Prompts.Files(); len(files) > 0 {
			prompts := s.deps.Prompts
			s.addWatcher(NewFileWatcher("prompts", files, debounce, func() {
				err := prompts.Reload()
				metrics.RecordReload(context.Background(), observability.ReloadPrompts, err == nil)
				if err != nil {
					s.Logger.LogError(err, "Failed to reload prompts, keeping the previous ones")
					return
				}
				s.Logger.Info("Prompts reloaded", "files", len(files))
			}, s.Logger))
		}
	}

	if s.certs == nil || !s.TLSConfig.Reload {
		return
	}
	if files := s.certs.files(); len(files) > 0 {
		s.addWatcher(NewFileWatcher("certificates", files, debounce, s.certs.reload, s.Logger))
	}

	vaultCfg := s.AppConfig.Vault
	if vaultCfg.Enabled && vaultCfg.Secrets.TLSCerts != "" {
		client, err := config.NewVaultClient(vaultCfg, s.Logger)
		if err != nil {
			s.Logger.LogError(err, "Vault certificate watching disabled")
			return
		}
		s.addWatcher(NewVaultWatcher(client, vaultCfg.Secrets.TLSCerts, vaultCfg.PollInterval, s.certs.reloadContent, s.Logger))
	}
}

func (s *Server) addWatcher(w watcher) {
	if err := w.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start watcher", "watcher", w.Status()["name"])
		return
	}
	s.watchers = append(s.watchers, w)
}

func (s *Server) stopWatchers() {
	for _, w := range s.watchers {
		if err := w.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop watcher", "watcher", w.Status()["name"])
		}
	}
	s.watchers = nil
}

// serve accepts connections on listener until ctx is done.
func (s *Server) serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", listener.Addr().String(),
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// certificates come from TLSConfig.GetCertificate
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if !ok {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}
