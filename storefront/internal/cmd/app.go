package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/checkout"
	"github.com/affiliateplus/storefront/storefront/internal/config"
	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
	"github.com/affiliateplus/storefront/storefront/internal/payments"
	"github.com/affiliateplus/storefront/storefront/internal/sdk"
	"github.com/affiliateplus/storefront/storefront/internal/session"
	"github.com/affiliateplus/storefront/storefront/internal/widget"
)

// app is a fully wired storefront.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	bus      *eventbus.Bus
	client   *payments.Client
	session  *session.Store
	gate     *rbac.Gate
	catalog  *catalog.Catalog
	checkout *checkout.Orchestrator

	closers []io.Closer
}

// appOptions select how the app talks to the terminal.
type appOptions struct {
	// interactive sends logs to the log file and the event bus instead of stderr.
	interactive bool
	// pageURL is told where the browser checkout page is waiting.
	pageURL func(url string)
}

// newApp loads the config and the saved session and wires every component.
func newApp(ctx context.Context, cmd *cobra.Command, args []string, opts appOptions) (*app, error) {
	configPath := resolveConfigPath(cmd, args)
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, bus: eventbus.New()}

	logger, closer, err := newLogger(cfg.Logging, opts.interactive, a.bus)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	logger.Info("storefront starting", "version", version, "config", configPath, "widget", cfg.Checkout.Widget)

	table := rbac.DefaultTable()
	if cfg.PermissionsFile != "" {
		if table, err = rbac.LoadTable(cfg.PermissionsFile); err != nil {
			a.Close()
			return nil, err
		}
	}

	tok, err := session.LoadToken(cfg.SessionFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	if tok.ServerURL != "" && tok.ServerURL != cfg.Server.URL {
		a.Close()
		return nil, fmt.Errorf("saved session is for %s, run `storefront login` for %s", tok.ServerURL, cfg.Server.URL)
	}

	a.client, err = payments.NewClient(cfg.Server, tok.Token, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	user, err := a.client.Me(ctx)
	if err != nil {
		a.Close()
		var svcErr *payments.Error
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("session expired, run `storefront login`")
		}
		return nil, fmt.Errorf("fetch session user: %w", err)
	}

	a.session = session.NewStore(user, a.bus, logger)
	a.gate = rbac.NewGate(table, a.session.Role)
	a.catalog = catalog.New(cfg.Catalog)

	loader := sdk.NewLoader(cfg.Razorpay.SDKURL, cfg.Razorpay.SDKBundle, nil, logger)

	var w checkout.Widget
	switch cfg.Checkout.Widget {
	case config.WidgetSandbox:
		w = widget.NewSandbox(a.client, cfg.Checkout.SandboxDismiss, logger)
	default:
		b := widget.NewBrowser(cfg.Checkout.CallbackAddr, loader, cfg.Checkout.ShouldOpenBrowser(), logger)
		b.OnURL = func(url string) {
			a.bus.PublishType(eventbus.WidgetPage, url)
			if opts.pageURL != nil {
				opts.pageURL(url)
			}
		}
		w = b
	}

	a.checkout = checkout.New(checkout.Deps{
		Loader:  loader,
		API:     a.client,
		Widget:  w,
		Session: a.session,
		Plans:   a.catalog,
		Bus:     a.bus,
	}, checkout.Options{
		KeyID:      cfg.Razorpay.KeyID,
		BrandName:  cfg.Checkout.BrandName,
		ThemeColor: cfg.Checkout.ThemeColor,
	}, logger)

	return a, nil
}

// Close releases the log file and the event bus.
func (a *app) Close() {
	a.bus.Close()
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// newLogger builds the slog logger. Interactive runs log to the configured
// file and mirror records onto the bus for the page's log panel.
func newLogger(cfg config.LoggingConfig, interactive bool, bus *eventbus.Bus) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	if !interactive {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var inner slog.Handler
	if cfg.Format == "text" {
		inner = slog.NewTextHandler(f, opts)
	} else {
		inner = slog.NewJSONHandler(f, opts)
	}
	return slog.New(eventbus.NewSlogHandler(inner, bus)), f, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// resolveConfigPath returns the config file path from (in priority order):
// 1. Positional argument
// 2. --config / -c flag
// 3. The per-user default location
func resolveConfigPath(cmd *cobra.Command, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	return config.DefaultConfigPath()
}

func defaultConfigHint() string {
	return config.DefaultConfigPath()
}
