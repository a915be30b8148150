package osmtrail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Server serves tracks over HTTP.
type Server struct {
	svc    *Service
	logger *zap.Logger
	http   *http.Server
}

// NewServer builds the HTTP server for svc listening on port.
func NewServer(svc *Service, port int) *Server {
	s := &Server{svc: svc, logger: svc.Logger.Named("http")}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/relations/{id}/{file}", s.handleRelationExport)
	mux.HandleFunc("GET /api/relations", s.handleFindRelations)
	return mux
}

// Start listens in the background. Listen errors other than a clean
// shutdown are logged and reported on the returned channel.
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
			errc <- err
		}
	}()
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	return errc
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// HandleGracefulShutdown blocks until SIGINT, SIGTERM or a server error,
// then shuts the server down.
func (s *Server) HandleGracefulShutdown(errc <-chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		s.logger.Info("shutdown signal received")
	case err, ok := <-errc:
		if ok && err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown error", zap.Error(err))
		return err
	}
	s.logger.Info("server shut down successfully")
	return nil
}
