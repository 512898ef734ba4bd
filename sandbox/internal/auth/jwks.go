package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/affiliateplus/storefront/sandbox/internal/config"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

// JWKSProvider validates tokens issued by an external identity provider,
// verified against the issuer's published key set. Users are provisioned in
// the store on first sight with the configured default role.
type JWKSProvider struct {
	issuer      string
	keys        func(ctx context.Context) jwt.Keyfunc
	store       store.Store
	defaultRole string

	provision singleflight.Group
}

// NewJWKSProvider creates a JWKSProvider that fetches keys from
// {issuer}/.well-known/jwks.json and refreshes them in the background.
func NewJWKSProvider(cfg config.AuthConfig, s store.Store) (*JWKSProvider, error) {
	if cfg.JWKSIssuer == "" {
		return nil, fmt.Errorf("jwks issuer URL is required")
	}

	jwksURL := strings.TrimRight(cfg.JWKSIssuer, "/") + "/.well-known/jwks.json"
	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}
	return newJWKSProvider(cfg, s, jwks.KeyfuncCtx), nil
}

func newJWKSProvider(cfg config.AuthConfig, s store.Store, keys func(ctx context.Context) jwt.Keyfunc) *JWKSProvider {
	return &JWKSProvider{
		issuer:      cfg.JWKSIssuer,
		keys:        keys,
		store:       s,
		defaultRole: cfg.DefaultRole,
	}
}

// ValidateToken parses an externally issued JWT and returns the Identity of
// the matching sandbox user.
func (p *JWKSProvider) ValidateToken(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, p.keys(ctx),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}
	sub := claimStr(claims, "sub")
	if sub == "" {
		return nil, ErrUnauthorized
	}

	user, err := p.userFor(ctx, sub, claims)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// userFor finds or creates the user for an external subject. Concurrent
// first requests for one subject share a single insert.
func (p *JWKSProvider) userFor(ctx context.Context, sub string, claims jwt.MapClaims) (*store.User, error) {
	v, err, _ := p.provision.Do(sub, func() (any, error) {
		existing, err := p.store.GetUserByExternalID(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("lookup external user: %w", err)
		}
		if existing != nil {
			return existing, nil
		}

		email := claimStr(claims, "email")
		if email == "" {
			email = sub + "@" + strings.TrimPrefix(strings.TrimPrefix(p.issuer, "https://"), "http://")
		}
		user := &store.User{
			ID:         uuid.New().String(),
			ExternalID: sub,
			Name:       displayName(claims, email),
			Email:      email,
			Role:       p.defaultRole,
			CreatedAt:  time.Now().UTC(),
		}
		if err := p.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("provision external user: %w", err)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.User), nil
}

// Bootstrap is a no-op (users are managed externally).
func (p *JWKSProvider) Bootstrap(ctx context.Context) error {
	return nil
}

// Name returns the provider name.
func (p *JWKSProvider) Name() string { return config.ProviderJWKS }

func displayName(claims jwt.MapClaims, fallback string) string {
	switch {
	case claimStr(claims, "name") != "":
		return claimStr(claims, "name")
	case claimStr(claims, "given_name") != "" || claimStr(claims, "family_name") != "":
		return strings.TrimSpace(claimStr(claims, "given_name") + " " + claimStr(claims, "family_name"))
	}
	return strings.SplitN(fallback, "@", 2)[0]
}

// claimStr extracts a string claim or returns "".
func claimStr(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
