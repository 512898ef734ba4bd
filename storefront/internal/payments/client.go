// Package payments is the storefront's client for the backend payment service.
package payments

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/storefront/internal/config"
)

// Error is a non-2xx response from the payment service.
type Error struct {
	StatusCode int
	Message    string // the service's reported message; empty when the body had none
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment service: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("payment service: HTTP %d", e.StatusCode)
}

// ServiceMessage returns the message the service reported for err, or "" when
// err did not come from a service response or the response carried none.
func ServiceMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// Client talks to the payment service with the session's ambient credentials:
// a cookie jar for the session cookie plus an optional bearer token.
//
// Requests have no timeout of their own; they end when the backend answers or
// the caller's context is cancelled.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	token string
}

// NewClient creates a client for the service at cfg.URL.
func NewClient(cfg config.ServerConfig, token string, logger *slog.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev only
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		http:    &http.Client{Jar: jar, Transport: transport},
		logger:  logger.With("component", "payments"),
		token:   token,
	}, nil
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CreateOrder asks the service for a provider order covering credits.
func (c *Client) CreateOrder(ctx context.Context, credits int) (protocol.Order, error) {
	var resp protocol.CreateOrderResponse
	err := c.post(ctx, protocol.RouteCreateOrder, protocol.CreateOrderRequest{Credits: credits}, &resp)
	return resp.Order, err
}

// VerifyOrder submits a completed order payment and returns the updated user.
func (c *Client) VerifyOrder(ctx context.Context, req protocol.VerifyOrderRequest) (protocol.User, error) {
	var resp protocol.UserResponse
	err := c.post(ctx, protocol.RouteVerifyOrder, req, &resp)
	return resp.User, err
}

// CreateSubscription asks the service for a provider subscription on planName.
func (c *Client) CreateSubscription(ctx context.Context, planName string) (protocol.ProviderSubscription, error) {
	var resp protocol.CreateSubscriptionResponse
	err := c.post(ctx, protocol.RouteCreateSubscription, protocol.CreateSubscriptionRequest{PlanName: planName}, &resp)
	return resp.Subscription, err
}

// VerifySubscription activates an authorized subscription and returns the
// updated user.
func (c *Client) VerifySubscription(ctx context.Context, subscriptionID string) (protocol.User, error) {
	var resp protocol.UserResponse
	err := c.post(ctx, protocol.RouteVerifySubscription, protocol.VerifySubscriptionRequest{SubscriptionID: subscriptionID}, &resp)
	return resp.User, err
}

// Login authenticates with email and password. On success the returned token
// is also adopted as this client's bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (protocol.LoginResponse, error) {
	var resp protocol.LoginResponse
	if err := c.post(ctx, protocol.RouteLogin, protocol.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return resp, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

// Me returns the user the current session belongs to.
func (c *Client) Me(ctx context.Context) (protocol.User, error) {
	var resp protocol.UserResponse
	err := c.do(ctx, http.MethodGet, protocol.RouteMe, nil, &resp)
	return resp.User, err
}

// SandboxPay asks a sandbox backend to play the payment provider and complete
// a payment for req.
func (c *Client) SandboxPay(ctx context.Context, req protocol.SandboxPayRequest) (protocol.PaymentResponse, error) {
	var resp protocol.PaymentResponse
	err := c.post(ctx, protocol.RouteSandboxPay, req, &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, route string, body, out any) error {
	return c.do(ctx, http.MethodPost, route, body, out)
}

func (c *Client) do(ctx context.Context, method, route string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", route, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reader)
	if err != nil {
		return fmt.Errorf("build %s: %w", route, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var er protocol.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er); err == nil {
			apiErr.Message = er.Message
		}
		c.logger.Debug("request failed", "route", route, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", route, err)
	}
	return nil
}
