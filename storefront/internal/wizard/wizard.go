// Package wizard provides the interactive `storefront init` setup.
package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/affiliateplus/storefront/pkg/cli"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/config"
)

var widgetDescriptions = map[string]string{
	config.WidgetBrowser: "Razorpay checkout in your browser",
	config.WidgetSandbox: "Simulated payments against a sandbox backend",
}

var orderedWidgets = []string{config.WidgetBrowser, config.WidgetSandbox}

// Wizard drives the interactive storefront config setup.
type Wizard struct {
	p *cli.Prompter
}

// New creates a Wizard using the given Prompter.
func New(p *cli.Prompter) *Wizard {
	return &Wizard{p: p}
}

// Run asks for the storefront settings and writes the config file. It returns
// the path written.
func (w *Wizard) Run(outputPath string) (string, error) {
	out := w.p.Out
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Affiliate++ Storefront - Configuration Wizard")
	fmt.Fprintln(out, strings.Repeat("─", 46))
	fmt.Fprintln(out)

	cfg := &config.Config{}

	fmt.Fprintln(out, "Payments Backend")
	cfg.Server.URL = w.p.Ask("  Server URL", "http://localhost:5001")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checkout")
	options := make([]string, len(orderedWidgets))
	for i, k := range orderedWidgets {
		options[i] = fmt.Sprintf("%s - %s", k, widgetDescriptions[k])
	}
	chosen := w.p.Choose("  Payment widget", options, 0)
	cfg.Checkout.Widget = orderedWidgets[slices.Index(options, chosen)]

	var envKey string
	if cfg.Checkout.Widget == config.WidgetBrowser {
		key := w.p.AskRequired("  Razorpay key id")
		if key == "" {
			return "", fmt.Errorf("razorpay key id is required for the browser widget")
		}
		if w.p.Confirm("  Keep the key in a .env file next to the config instead?", true) {
			envKey = key
		} else {
			cfg.Razorpay.KeyID = key
		}
		if !w.p.Confirm("  Open the system browser automatically?", true) {
			no := false
			cfg.Checkout.OpenBrowser = &no
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Catalog")
	packs := w.p.AskInts("  Credit packs", catalog.DefaultCreditPacks)
	if !slices.Equal(packs, catalog.DefaultCreditPacks) {
		cfg.Catalog.CreditPacks = packs
	}
	cfg.PermissionsFile = w.p.Ask("  Permission table file (empty for built-in roles)", "")
	fmt.Fprintln(out)

	cfg.Logging.Level = w.p.Ask("Log level (debug/info/warn/error)", "info")

	if outputPath == "" {
		outputPath = w.p.Ask("Config file output path", config.DefaultConfigPath())
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(out, "\n  Config written to %s\n", outputPath)

	if envKey != "" {
		envPath := filepath.Join(filepath.Dir(outputPath), ".env")
		if err := writeEnv(envPath, config.EnvRazorpayKeyID, envKey); err != nil {
			return "", err
		}
		fmt.Fprintf(out, "  Razorpay key written to %s\n", envPath)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Next steps:")
	fmt.Fprintf(out, "    storefront login --config %s\n", outputPath)
	fmt.Fprintf(out, "    storefront run --config %s\n\n", outputPath)
	return outputPath, nil
}

// writeEnv sets key in the .env file at path, keeping any other entries.
func writeEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		env = map[string]string{}
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}
