package auth

import (
	"context"

	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

// Identity is the unified identity representation for all auth providers.
type Identity struct {
	UserID string // sandbox user ID, also for users first seen through an external issuer
	Email  string
	Role   string // rbac role: "admin", "developer" or "viewer"
}

// Provider validates bearer tokens and returns identities.
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Identity, error)
	Bootstrap(ctx context.Context) error
	Name() string
}

// LoginProvider is implemented by providers that support email/password login.
type LoginProvider interface {
	Login(ctx context.Context, email, password string) (string, *store.User, error)
}
