package cmd

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd creates the root cobra command for storefront.
// A bare invocation in a TTY runs the init wizard when no config exists yet,
// otherwise it opens the checkout page.
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Affiliate++ storefront: buy credit packs and subscribe from the terminal",
		Long:  "storefront drives the Affiliate++ checkout against the payments backend and the Razorpay widget.",
		// Bare invocation uses smart default logic.
		RunE:          runDefault,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newBuyCmd())
	root.AddCommand(newSubscribeCmd())
	root.AddCommand(newPlansCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default: "+defaultConfigHint()+")")

	return root
}
