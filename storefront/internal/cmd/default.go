package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runDefault implements the bare `storefront` (no subcommand) behavior:
//   - no config? → run init wizard
//   - otherwise → open the checkout page
func runDefault(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runRun(cmd, args)
	}

	if _, err := os.Stat(resolveConfigPath(cmd, args)); os.IsNotExist(err) {
		initCmd := newInitCmd()
		initCmd.SetContext(cmd.Context())
		return initCmd.RunE(initCmd, nil)
	}
	return runRun(cmd, args)
}
