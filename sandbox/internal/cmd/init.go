package cmd

import (
	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/pkg/cli"
	"github.com/affiliateplus/storefront/sandbox/internal/wizard"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard to generate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			defaults, _ := cmd.Flags().GetBool("defaults")

			p := cli.DefaultPrompter()
			p.Out = cmd.OutOrStdout()
			w := wizard.New(p)
			var err error
			if defaults {
				_, err = w.RunDefaults(output)
			} else {
				_, err = w.Run(output)
			}
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "", "output config file path (default: "+wizard.DefaultOutput+")")
	cmd.Flags().Bool("defaults", false, "generate config non-interactively using env vars and generated secrets")
	return cmd
}
