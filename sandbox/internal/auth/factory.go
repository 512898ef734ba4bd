package auth

import (
	"fmt"

	"github.com/affiliateplus/storefront/sandbox/internal/config"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

// NewProvider creates an auth Provider based on configuration.
func NewProvider(cfg config.AuthConfig, s store.Store) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderJWKS:
		return NewJWKSProvider(cfg, s)
	case config.ProviderBuiltin, "":
		return NewService(s, cfg), nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %q", cfg.Provider)
	}
}
