package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/storefront/internal/tui/shop"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [config-file]",
		Short: "Open the checkout page (default when no subcommand is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, args, appOptions{interactive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	err = shop.Run(ctx, shop.Deps{
		Checkout: a.checkout,
		Session:  a.session,
		Gate:     a.gate,
		Catalog:  a.catalog,
		Brand:    a.cfg.Checkout.BrandName,
	}, a.bus)

	a.logger.Info("storefront stopped")
	return err
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
