// Package sandbox ties the sandbox components together into one process.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/affiliateplus/storefront/sandbox/internal/api"
	"github.com/affiliateplus/storefront/sandbox/internal/auth"
	"github.com/affiliateplus/storefront/sandbox/internal/config"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

const shutdownTimeout = 30 * time.Second

// Sandbox is the sandbox payments backend process.
type Sandbox struct {
	cfg          *config.Config
	store        store.Store
	authProvider auth.Provider
	api          *api.Server
	logger       *slog.Logger
}

// New creates a sandbox from configuration: it opens the store, bootstraps
// the initial users and builds the API.
func New(cfg *config.Config, logger *slog.Logger) (*Sandbox, error) {
	db, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	authProvider, err := auth.NewProvider(cfg.Auth, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init auth provider: %w", err)
	}
	if err := authProvider.Bootstrap(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap auth: %w", err)
	}

	var loginProvider auth.LoginProvider
	if lp, ok := authProvider.(auth.LoginProvider); ok {
		loginProvider = lp
	}

	sb := &Sandbox{
		cfg:          cfg,
		store:        db,
		authProvider: authProvider,
		api:          api.NewServer(db, authProvider, loginProvider, cfg, logger),
		logger:       logger.With("component", "sandbox"),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			sb.logger.Warn("CORS allowed_origins contains wildcard '*', restrict it outside local development")
			break
		}
	}
	return sb, nil
}

// Handler returns the sandbox's HTTP handler.
func (sb *Sandbox) Handler() http.Handler {
	return sb.api.Handler()
}

// Run listens on the configured address and serves until ctx is canceled.
func (sb *Sandbox) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", sb.cfg.Server.Addr)
	if err != nil {
		_ = sb.store.Close()
		return fmt.Errorf("listen %s: %w", sb.cfg.Server.Addr, err)
	}
	return sb.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully and
// closes the store.
func (sb *Sandbox) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           sb.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sb.api.StartBackgroundTasks(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sb.logger.Info("sandbox listening", "addr", ln.Addr().String(), "auth", sb.authProvider.Name(), "storage", sb.cfg.Storage.Driver)
		var err error
		if sb.cfg.Server.TLSCert != "" && sb.cfg.Server.TLSKey != "" {
			err = srv.ServeTLS(ln, sb.cfg.Server.TLSCert, sb.cfg.Server.TLSKey)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sb.logger.Info("shutting down sandbox gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sb.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		}
		return nil
	})

	err := g.Wait()
	sb.logger.Info("closing store")
	if cerr := sb.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}
