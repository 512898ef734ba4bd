package cmd

import (
	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/pkg/cli"
	"github.com/affiliateplus/storefront/storefront/internal/wizard"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard to generate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				if f := cmd.Root().PersistentFlags().Lookup("config"); f != nil && f.Changed {
					output = f.Value.String()
				}
			}
			_, err := wizard.New(cli.DefaultPrompter()).Run(output)
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "", "output config file path (default: "+defaultConfigHint()+")")
	return cmd
}
