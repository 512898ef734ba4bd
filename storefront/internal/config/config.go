// Package config handles storefront configuration loading and validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/affiliateplus/storefront/pkg/protocol"
)

// DefaultSDKURL is where the checkout SDK is side-loaded from.
const DefaultSDKURL = "https://checkout.razorpay.com/v1/checkout.js"

// Widget kinds.
const (
	WidgetBrowser = "browser"
	WidgetSandbox = "sandbox"
)

// Environment variables that override file settings.
const (
	EnvServerURL     = "STOREFRONT_SERVER_URL"
	EnvRazorpayKeyID = "STOREFRONT_RAZORPAY_KEY_ID"
	envRazorpayKey   = "RAZORPAY_KEY_ID"
)

// Config is the top-level storefront configuration.
type Config struct {
	Server          ServerConfig   `json:"server"`
	Razorpay        RazorpayConfig `json:"razorpay"`
	Checkout        CheckoutConfig `json:"checkout"`
	Catalog         CatalogConfig  `json:"catalog,omitempty"`
	PermissionsFile string         `json:"permissions_file,omitempty"` // YAML role → permission table; built-in table when empty
	SessionFile     string         `json:"session_file,omitempty"`     // where `login` stores the session token
	Logging         LoggingConfig  `json:"logging"`
}

// ServerConfig points at the payments backend.
type ServerConfig struct {
	URL           string `json:"url"`                       // e.g. "http://localhost:5001"
	TLSSkipVerify bool   `json:"tls_skip_verify,omitempty"` // dev only
}

// RazorpayConfig holds the public checkout settings.
type RazorpayConfig struct {
	KeyID     string `json:"key_id"`
	SDKURL    string `json:"sdk_url,omitempty"`
	SDKBundle string `json:"sdk_bundle,omitempty"` // pre-seeded copy of the SDK; skips the network fetch when present
}

// CheckoutConfig controls the payment widget.
type CheckoutConfig struct {
	Widget         string `json:"widget,omitempty"`        // "browser" (default) or "sandbox"
	CallbackAddr   string `json:"callback_addr,omitempty"` // loopback listener for the browser widget
	OpenBrowser    *bool  `json:"open_browser,omitempty"`  // default true
	BrandName      string `json:"brand_name,omitempty"`
	ThemeColor     string `json:"theme_color,omitempty"`
	SandboxDismiss bool   `json:"sandbox_dismiss,omitempty"` // sandbox widget simulates the user closing the widget
}

// CatalogConfig overrides the built-in credit packs and plan registry.
type CatalogConfig struct {
	CreditPacks []int                 `json:"credit_packs,omitempty"`
	Plans       map[string]PlanConfig `json:"plans,omitempty"`
}

// PlanConfig describes one subscription plan.
type PlanConfig struct {
	PlanName    string   `json:"plan_name"`
	Description string   `json:"description"`
	Price       string   `json:"price,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // "json" or "text"
	File   string `json:"file,omitempty"`   // log destination while the TUI owns the terminal
}

// ShouldOpenBrowser reports whether the browser widget launches the system browser.
func (c CheckoutConfig) ShouldOpenBrowser() bool {
	return c.OpenBrowser == nil || *c.OpenBrowser
}

// Load reads a config file, applies .env and environment overrides, then
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// A .env next to the config wins over one in the working directory; neither is required.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvRazorpayKeyID); v != "" {
		c.Razorpay.KeyID = v
	} else if v := os.Getenv(envRazorpayKey); v != "" && c.Razorpay.KeyID == "" {
		c.Razorpay.KeyID = v
	}
}

func (c *Config) validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	switch c.Checkout.Widget {
	case "", WidgetBrowser:
		if c.Razorpay.KeyID == "" {
			return fmt.Errorf("razorpay.key_id is required for the browser widget")
		}
	case WidgetSandbox:
	default:
		return fmt.Errorf("checkout.widget must be %q or %q", WidgetBrowser, WidgetSandbox)
	}
	for i, n := range c.Catalog.CreditPacks {
		if n <= 0 {
			return fmt.Errorf("catalog.credit_packs[%d] must be positive", i)
		}
	}
	for key, plan := range c.Catalog.Plans {
		if plan.PlanName == "" {
			return fmt.Errorf("catalog.plans.%s.plan_name is required", key)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Checkout.Widget == "" {
		c.Checkout.Widget = WidgetBrowser
	}
	if c.Razorpay.SDKURL == "" {
		c.Razorpay.SDKURL = DefaultSDKURL
		if c.Checkout.Widget == WidgetSandbox {
			c.Razorpay.SDKURL = strings.TrimRight(c.Server.URL, "/") + protocol.RouteSandboxSDK
		}
	}
	if c.Checkout.CallbackAddr == "" {
		c.Checkout.CallbackAddr = "127.0.0.1:0"
	}
	if c.Checkout.BrandName == "" {
		c.Checkout.BrandName = "Affiliate++"
	}
	if c.Checkout.ThemeColor == "" {
		c.Checkout.ThemeColor = "#3399cc"
	}
	if c.SessionFile == "" {
		c.SessionFile = DefaultSessionFile()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(os.TempDir(), "storefront.log")
	}
}

// DefaultConfigPath returns the config location used when none is given.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront", "config.json")
	}
	return "storefront.json"
}

// DefaultSessionFile returns the default location of the stored session token.
func DefaultSessionFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront", "session.json")
	}
	return ".storefront-session.json"
}
