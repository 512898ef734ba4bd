package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/affiliateplus/storefront/sandbox/internal/config"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

const testSecret = "test-secret-at-least-32-chars-long"

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestAuthService(t *testing.T, users ...config.InitialUser) (*Service, store.Store) {
	t.Helper()
	s := newTestStore(t)
	svc := NewService(s, config.AuthConfig{
		JWTSecret:    testSecret,
		JWTExpiry:    config.Duration{Duration: time.Hour},
		InitialUsers: users,
	})
	return svc, s
}

var asha = config.InitialUser{Name: "Asha", Email: "asha@example.com", Password: "correct-horse", Role: "admin", Credits: 50}

func TestBootstrap(t *testing.T) {
	svc, s := newTestAuthService(t, asha, config.InitialUser{Email: "dev@example.com", Password: "pw", Role: "developer"})
	ctx := context.Background()

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	user, err := s.GetUserByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil {
		t.Fatal("initial user not created")
	}
	if user.Role != "admin" || user.Credits != 50 || user.Name != "Asha" {
		t.Errorf("unexpected user: %+v", user)
	}

	dev, _ := s.GetUserByEmail(ctx, "dev@example.com")
	if dev == nil || dev.Name != "dev" || dev.Role != "developer" {
		t.Errorf("expected name from email local part, got %+v", dev)
	}

	// Second bootstrap is idempotent and keeps balances.
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap (idempotent): %v", err)
	}
	again, _ := s.GetUserByEmail(ctx, "asha@example.com")
	if again.ID != user.ID {
		t.Error("bootstrap recreated an existing user")
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newTestAuthService(t, asha)
	ctx := context.Background()
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}

	token, user, err := svc.Login(ctx, "ASHA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if user.Email != "asha@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}

	id, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id.UserID != user.ID || id.Role != "admin" || id.Email != "asha@example.com" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestAuthService(t, asha)
	ctx := context.Background()
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Login(ctx, "asha@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredStr, _ := expired.SignedString([]byte(testSecret))

	otherKey := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "u1"})
	otherKeyStr, _ := otherKey.SignedString([]byte("another-secret-that-is-long-enough"))

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "admin"})
	noUserStr, _ := noUser.SignedString([]byte(testSecret))

	for name, tok := range map[string]string{
		"expired":   expiredStr,
		"wrong key": otherKeyStr,
		"no uid":    noUserStr,
		"garbage":   "not-a-jwt",
	} {
		if _, err := svc.ValidateToken(ctx, tok); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func newTestJWKSProvider(t *testing.T) (*JWKSProvider, store.Store, []byte) {
	t.Helper()
	s := newTestStore(t)
	key := []byte("issuer-signing-key")
	p := newJWKSProvider(config.AuthConfig{
		Provider:    config.ProviderJWKS,
		JWKSIssuer:  "https://id.example.com",
		DefaultRole: "viewer",
	}, s, func(context.Context) jwt.Keyfunc {
		return func(*jwt.Token) (any, error) { return key, nil }
	})
	return p, s, key
}

func issue(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestJWKSProvider_ProvisionsOnFirstSight(t *testing.T) {
	p, s, key := newTestJWKSProvider(t)
	ctx := context.Background()

	tok := issue(t, key, jwt.MapClaims{
		"iss":   "https://id.example.com",
		"sub":   "user_abc",
		"email": "ext@example.com",
		"name":  "Ext User",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := p.ValidateToken(ctx, tok)
			if err != nil {
				t.Errorf("ValidateToken: %v", err)
				return
			}
			ids[i] = id.UserID
		}(i)
	}
	wg.Wait()

	user, err := s.GetUserByExternalID(ctx, "user_abc")
	if err != nil || user == nil {
		t.Fatalf("expected provisioned user, got %v, %v", user, err)
	}
	if user.Role != "viewer" || user.Name != "Ext User" || user.Email != "ext@example.com" {
		t.Errorf("unexpected provisioned user: %+v", user)
	}
	for _, id := range ids {
		if id != "" && id != user.ID {
			t.Errorf("identity %q does not match provisioned user %q", id, user.ID)
		}
	}
}

func TestJWKSProvider_Rejects(t *testing.T) {
	p, _, key := newTestJWKSProvider(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Unix()

	cases := map[string]jwt.MapClaims{
		"wrong issuer": {"iss": "https://evil.example.com", "sub": "a", "exp": exp},
		"no expiry":    {"iss": "https://id.example.com", "sub": "a"},
		"no subject":   {"iss": "https://id.example.com", "exp": exp},
	}
	for name, claims := range cases {
		if _, err := p.ValidateToken(ctx, issue(t, key, claims)); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestNewProvider(t *testing.T) {
	s := newTestStore(t)

	p, err := NewProvider(config.AuthConfig{JWTSecret: testSecret}, s)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != config.ProviderBuiltin {
		t.Errorf("expected builtin provider, got %s", p.Name())
	}
	if _, ok := p.(LoginProvider); !ok {
		t.Error("builtin provider must support login")
	}

	if _, err := NewProvider(config.AuthConfig{Provider: "ldap"}, s); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewProvider(config.AuthConfig{Provider: config.ProviderJWKS}, s); err == nil {
		t.Error("expected error for jwks without issuer")
	}
}
