package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/config"
	"github.com/affiliateplus/storefront/storefront/internal/session"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the storefront configuration",
		RunE:  runConfigShow,
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config, the saved session and the permission table",
		RunE:  runConfigShow,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open the config in $EDITOR and validate it afterwards",
		RunE:  runConfigEdit,
	})
	return configCmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath := resolveConfigPath(cmd, nil)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Env overrides are already applied, so this is what `run` would use.
	masked := *cfg
	masked.Razorpay.KeyID = maskKeyID(cfg.Razorpay.KeyID)
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config: %s\n\n%s\n\n", configPath, data)
	printSession(out, cfg)

	table := rbac.DefaultTable()
	source := "built-in"
	if cfg.PermissionsFile != "" {
		if table, err = rbac.LoadTable(cfg.PermissionsFile); err != nil {
			return err
		}
		source = cfg.PermissionsFile
	}
	printPermissions(out, source, table)
	return nil
}

func printSession(out io.Writer, cfg *config.Config) {
	_, _ = fmt.Fprintf(out, "Session: %s\n", cfg.SessionFile)
	tok, err := session.LoadToken(cfg.SessionFile)
	switch {
	case errors.Is(err, session.ErrNoToken):
		_, _ = fmt.Fprintln(out, "  not signed in")
	case err != nil:
		_, _ = fmt.Fprintf(out, "  unreadable: %v\n", err)
	case tok.ServerURL != "" && tok.ServerURL != cfg.Server.URL:
		_, _ = fmt.Fprintf(out, "  saved for %s, not %s; run `storefront login`\n", tok.ServerURL, cfg.Server.URL)
	default:
		who := tok.Email
		if who == "" {
			who = "unknown user"
		}
		_, _ = fmt.Fprintf(out, "  signed in as %s (token %s)\n", who, strings.Repeat("*", min(len(tok.Token), 8)))
	}
	_, _ = fmt.Fprintln(out)
}

func printPermissions(out io.Writer, source string, table rbac.Table) {
	_, _ = fmt.Fprintf(out, "Permissions: %s\n", source)
	roles := make([]string, 0, len(table))
	for role := range table {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	for _, role := range roles {
		var granted []string
		for perm, ok := range table[role] {
			if ok {
				granted = append(granted, perm)
			}
		}
		slices.Sort(granted)
		list := strings.Join(granted, ", ")
		if list == "" {
			list = "(none)"
		}
		_, _ = fmt.Fprintf(out, "  %-12s %s\n", role, list)
	}
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := resolveConfigPath(cmd, nil)

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", editor, err)
	}

	if _, err := config.Load(configPath); err != nil {
		return fmt.Errorf("%s was saved but is not valid: %w", configPath, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Config OK.")
	return nil
}

// maskKeyID hides a checkout key id but keeps its mode prefix (rzp_test_ or
// rzp_live_) and last four characters visible.
func maskKeyID(key string) string {
	prefix := ""
	for _, p := range []string{"rzp_test_", "rzp_live_"} {
		if strings.HasPrefix(key, p) {
			prefix, key = p, key[len(p):]
			break
		}
	}
	if len(key) <= 4 {
		return prefix + strings.Repeat("*", len(key))
	}
	return prefix + strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
