// Package protocol defines the JSON messages exchanged between the storefront
// and the payments backend, and between the storefront and the payment widget.
//
// Field names follow the payments backend and the Razorpay checkout SDK, so
// they are snake_case on the wire.
package protocol

import "time"

// Backend routes.
const (
	RouteLogin              = "/auth/login"
	RouteMe                 = "/auth/me"
	RouteCreateOrder        = "/payments/create-order"
	RouteVerifyOrder        = "/payments/verify-order"
	RouteCreateSubscription = "/payments/create-subscription"
	RouteVerifySubscription = "/payments/verify-subscription"
	RouteSandboxPay         = "/sandbox/pay"
	RouteSandboxSDK         = "/sandbox/checkout.js"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

// --- Users ---

// User is the session user as returned by the backend. The storefront treats
// it as an opaque record and only ever replaces it wholesale.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Role         string        `json:"role"`
	Credits      int64         `json:"credits"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Subscription is a user's recurring plan.
type Subscription struct {
	ID        string    `json:"id"`
	PlanName  string    `json:"plan_name"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Subscription statuses.
const (
	SubscriptionCreated       = "created"
	SubscriptionAuthenticated = "authenticated"
	SubscriptionActive        = "active"
)

// LoginRequest is the body of RouteLogin.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by RouteLogin.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserResponse wraps a user; returned by RouteMe and both verify routes.
type UserResponse struct {
	User User `json:"user"`
}

// ErrorResponse is the body of every non-2xx backend response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// --- Orders (one-time credit packs) ---

// CreateOrderRequest is the body of RouteCreateOrder.
type CreateOrderRequest struct {
	Credits int `json:"credits"`
}

// Order is a provider order created for a credit purchase. Amount is in the
// smallest currency unit.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrderResponse is returned by RouteCreateOrder.
type CreateOrderResponse struct {
	Order Order `json:"order"`
}

// VerifyOrderRequest is the body of RouteVerifyOrder.
type VerifyOrderRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	Credits           int    `json:"credits"`
}

// --- Subscriptions ---

// CreateSubscriptionRequest is the body of RouteCreateSubscription.
type CreateSubscriptionRequest struct {
	PlanName string `json:"plan_name"`
}

// ProviderSubscription is the provider-side subscription handle.
type ProviderSubscription struct {
	ID string `json:"id"`
}

// CreateSubscriptionResponse is returned by RouteCreateSubscription.
type CreateSubscriptionResponse struct {
	Subscription ProviderSubscription `json:"subscription"`
}

// VerifySubscriptionRequest is the body of RouteVerifySubscription.
type VerifySubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

// --- Widget ---

// CheckoutOptions configures one payment widget invocation. Exactly one of
// OrderID (credit pack) or SubscriptionID (plan) is set.
type CheckoutOptions struct {
	Key            string            `json:"key"`
	Amount         int64             `json:"amount,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	OrderID        string            `json:"order_id,omitempty"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Prefill        Prefill           `json:"prefill"`
	Theme          Theme             `json:"theme"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// Prefill carries the customer details shown pre-filled in the widget.
type Prefill struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Theme is the widget's color theme.
type Theme struct {
	Color string `json:"color,omitempty"`
}

// PaymentResponse is what the widget hands back when the user completes a
// payment. Order payments carry the order id; subscription payments carry the
// subscription id.
type PaymentResponse struct {
	RazorpayOrderID        string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID      string `json:"razorpay_payment_id"`
	RazorpaySignature      string `json:"razorpay_signature"`
	RazorpaySubscriptionID string `json:"razorpay_subscription_id,omitempty"`
}

// SandboxPayRequest asks the sandbox backend to act as the payment provider and
// complete a payment for an order or a subscription.
type SandboxPayRequest struct {
	OrderID        string `json:"order_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}
