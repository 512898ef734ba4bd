package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/storefront/internal/config"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.ServerConfig{URL: srv.URL + "/"}, "", slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCreateOrder(t *testing.T) {
	var got protocol.CreateOrderRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != protocol.RouteCreateOrder {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(protocol.CreateOrderResponse{
			Order: protocol.Order{ID: "o1", Amount: 10000, Currency: "INR"},
		})
	}))

	order, err := c.CreateOrder(context.Background(), 100)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if got.Credits != 100 {
		t.Errorf("sent credits = %d, want 100", got.Credits)
	}
	if order.ID != "o1" || order.Amount != 10000 || order.Currency != "INR" {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestServiceErrorMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message":"insufficient funds"}`))
	}))

	_, err := c.CreateOrder(context.Background(), 10)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if msg := ServiceMessage(err); msg != "insufficient funds" {
		t.Errorf("ServiceMessage() = %q", msg)
	}
}

func TestServiceErrorWithoutMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.VerifySubscription(context.Background(), "sub_1")
	if err == nil {
		t.Fatal("expected error")
	}
	if msg := ServiceMessage(err); msg != "" {
		t.Errorf("ServiceMessage() = %q, want empty for a non-JSON body", msg)
	}
}

func TestServiceMessage_NonServiceError(t *testing.T) {
	if msg := ServiceMessage(fmt.Errorf("dial: %w", errors.New("refused"))); msg != "" {
		t.Errorf("ServiceMessage() = %q", msg)
	}
	wrapped := fmt.Errorf("verify: %w", &Error{StatusCode: 400, Message: "bad signature"})
	if msg := ServiceMessage(wrapped); msg != "bad signature" {
		t.Errorf("ServiceMessage(wrapped) = %q", msg)
	}
}

func TestLoginAdoptsTokenAndCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(protocol.RouteLogin, func(w http.ResponseWriter, r *http.Request) {
		var req protocol.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "alice@example.com" || req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: protocol.SessionCookie, Value: "cookie-tok", Path: "/"})
		_ = json.NewEncoder(w).Encode(protocol.LoginResponse{
			Token: "bearer-tok",
			User:  protocol.User{ID: "u1", Email: req.Email, Role: "admin"},
		})
	})
	mux.HandleFunc(protocol.RouteMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bearer-tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if ck, err := r.Cookie(protocol.SessionCookie); err != nil || ck.Value != "cookie-tok" {
			t.Errorf("expected session cookie, got %v %v", ck, err)
		}
		_ = json.NewEncoder(w).Encode(protocol.UserResponse{User: protocol.User{ID: "u1", Credits: 42}})
	})
	c := newTestClient(t, mux)

	if _, err := c.Login(context.Background(), "alice@example.com", "wrong"); ServiceMessage(err) != "invalid credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if c.Token() != "" {
		t.Error("failed login must not set a token")
	}

	resp, err := c.Login(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.Role != "admin" || c.Token() != "bearer-tok" {
		t.Errorf("unexpected login result: %+v token=%q", resp, c.Token())
	}

	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Credits != 42 {
		t.Errorf("Credits = %d", me.Credits)
	}
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.CreateSubscription(ctx, "UNLIMITED_YEARLY"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
