package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/coupons/internal/shell/api"
	"github.com/artpar/coupons/internal/shell/coupons"
	"github.com/artpar/coupons/internal/shell/seed"
	"github.com/artpar/coupons/internal/shell/store"
	"go.uber.org/zap"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitHTTPServerError = 4
	ExitSeedError       = 5
)

// =============================================================================
// Server
// =============================================================================

// Server represents the coupons application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	logger     *zap.Logger
}

// NewServer opens the store and builds the HTTP server.
func NewServer(cfg *Config, logger *zap.Logger) (*Server, error) {
	s, err := store.Open(cfg.Database.StoreOptions())
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	handler := api.NewHandler(api.Config{
		Store:   s,
		Coupons: cfg.Coupons.options(),
		Logger:  logger,
		Version: Version,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		logger:     logger,
	}, nil
}

func (c CouponsConfig) options() coupons.Options {
	return coupons.Options{LockDuplicateCheck: c.LockDuplicateCheck}
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			zap.String("address", s.config.Server.Address()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", zap.Stringer("signal", sig))
	case err := <-errCh:
		s.Close()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.Close()

	s.logger.Info("shutdown complete")
	return nil
}

// Close releases the database connection.
func (s *Server) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", zap.Error(err))
	}
}

// Seed imports the coupons listed in the YAML file at path.
func (s *Server) Seed(ctx context.Context, path string) error {
	creator := coupons.NewCreateCoupon(s.store, s.config.Coupons.options(), s.logger.Named("coupons"))
	importer := seed.NewImporter(creator, s.logger.Named("seed"))

	res, err := importer.ImportFile(ctx, path)
	if err != nil {
		return &ServerError{
			Op:       "Seed",
			Err:      err,
			ExitCode: ExitSeedError,
		}
	}

	s.logger.Info("seed import complete",
		zap.String("file", path),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
