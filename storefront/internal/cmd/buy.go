package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/checkout"
)

func newBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <credits>",
		Short: "Buy a credit pack without opening the page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			credits, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("credits must be a number: %w", err)
			}
			return runFlow(cmd, rbac.PermBuyCredits, func(ctx context.Context, a *app) checkout.State {
				if !a.catalog.IsValidPack(credits) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Available packs: %v\n", a.catalog.CreditPacks())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Buying %s\n", catalog.PackLabel(credits))
				}
				return a.checkout.BuyCredits(ctx, credits)
			})
		},
	}
}

func newSubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <plan>",
		Short: "Subscribe to a plan without opening the page",
		Long:  "Subscribe to a plan by key, e.g. UNLIMITED_MONTHLY. `storefront plans` lists them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd, rbac.PermSubscribe, func(ctx context.Context, a *app) checkout.State {
				if plan, ok := a.catalog.Lookup(args[0]); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Subscribing to %s (%s)\n", plan.PlanName, plan.Price)
				}
				return a.checkout.Subscribe(ctx, args[0])
			})
		},
	}
}

// runFlow wires a headless app, loads the SDK and runs one checkout flow,
// printing its outcome. A flow that ends in an error message fails the
// command.
func runFlow(cmd *cobra.Command, permission string, fn func(ctx context.Context, a *app) checkout.State) error {
	ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	a, err := newApp(ctx, cmd, nil, appOptions{
		pageURL: func(url string) {
			fmt.Fprintf(out, "Complete the payment in your browser: %s\n", url)
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.gate.CanRender(permission) {
		return fmt.Errorf("role %q is not allowed to do this", a.session.Role())
	}

	a.checkout.Mount(ctx)
	return report(out, fn(ctx, a))
}

// report prints the settled state. A dismissed widget is not an error.
func report(w io.Writer, st checkout.State) error {
	switch {
	case st.ErrorMessage != "":
		return fmt.Errorf("%s", st.ErrorMessage)
	case st.SuccessMessage != "":
		fmt.Fprintln(w, st.SuccessMessage)
	case st.Phase == checkout.PhaseIdle:
		fmt.Fprintln(w, "Checkout closed, nothing was charged.")
	}
	return nil
}
