// Package store defines the storage interface for the sandbox and provides
// SQLite and PostgreSQL implementations.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a row to update does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOrderNotPending is returned when completing an order that was already paid.
	ErrOrderNotPending = errors.New("order is not pending")
	// ErrSubscriptionNotAuthenticated is returned when activating a subscription
	// the provider has not authenticated.
	ErrSubscriptionNotAuthenticated = errors.New("subscription is not authenticated")
)

// Order statuses.
const (
	OrderCreated = "created"
	OrderPaid    = "paid"
)

// Subscription statuses.
const (
	SubscriptionCreated       = "created"
	SubscriptionAuthenticated = "authenticated"
	SubscriptionActive        = "active"
)

// Store is the persistence interface for the sandbox. Getters return nil, nil
// when nothing matches.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)

	// Orders
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	// CompleteOrder marks a pending order paid and credits its user in one
	// transaction, returning the updated user.
	CompleteOrder(ctx context.Context, orderID, paymentID string) (*User, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	AuthenticateSubscription(ctx context.Context, id, paymentID string) error
	// ActivateSubscription activates an authenticated subscription and makes it
	// the user's current one in one transaction, returning the updated user.
	ActivateSubscription(ctx context.Context, id string) (*User, error)

	// Health
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// User is an account holding credits and at most one current subscription.
type User struct {
	ID           string        `json:"id"`
	ExternalID   string        `json:"external_id,omitempty"` // subject from an external identity provider
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         string        `json:"role"`
	Credits      int64         `json:"credits"`
	Subscription *Subscription `json:"subscription,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Order is a one-time credit pack purchase. Amount is in the smallest
// currency unit.
type Order struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Credits   int        `json:"credits"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	PaymentID string     `json:"payment_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// Subscription is a recurring plan.
type Subscription struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	PlanName    string     `json:"plan_name"`
	PlanID      string     `json:"plan_id"`
	Status      string     `json:"status"`
	PaymentID   string     `json:"payment_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}
