package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/transfer-verification-engine/internal/api_gateway/handler"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

const maxHeaderBytes = 64 << 10

// Server exposes the transfer engine over HTTP
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer wires the handlers for the customer, account and operator routes
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	transferService service.TransferService,
	accountService service.AccountService,
	checks map[string]HealthChecker,
) *Server {
	if cfg.Application.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	setupRouter(log, httpRouter, cfg.Auth,
		handler.NewAccountHandler(log, accountService),
		handler.NewTransferHandler(log, transferService),
		handler.NewAdminHandler(log, transferService),
		checks,
	)

	return &Server{
		logger:     log,
		httpRouter: httpRouter,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           httpRouter,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start listens on the configured port and blocks until Stop
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Stop. A clean shutdown returns nil.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("HTTP server listening", "addr", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop refuses new connections and waits until ctx expires for in-flight
// gate submissions to finish
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
