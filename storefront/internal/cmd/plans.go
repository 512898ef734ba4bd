package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/config"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List credit packs and subscription plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(cmd, nil))
			if err != nil {
				return err
			}
			cat := catalog.New(cfg.Catalog)
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Credit packs:")
			for _, n := range cat.CreditPacks() {
				fmt.Fprintf(out, "  %s\n", catalog.PackLabel(n))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Plans:")
			for _, key := range cat.Keys() {
				p, _ := cat.Lookup(key)
				fmt.Fprintf(out, "  %-20s %s  %s/%s\n", key, p.PlanName, p.Price, p.Period)
				if len(p.Features) > 0 {
					fmt.Fprintf(out, "  %-20s %s\n", "", strings.Join(p.Features, ", "))
				}
			}
			return nil
		},
	}
}
