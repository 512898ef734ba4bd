package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// createTestUser is a helper that inserts a user and returns it.
func createTestUser(t *testing.T, s Store, email, role string, credits int64) *User {
	t.Helper()
	u := &User{
		ID:           uuid.New().String(),
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "hash-" + email,
		Role:         role,
		Credits:      credits,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("createTestUser(%s): %v", email, err)
	}
	return u
}

func createTestOrder(t *testing.T, s Store, userID string, credits int) *Order {
	t.Helper()
	o := &Order{
		ID:        "order_" + uuid.New().String()[:8],
		UserID:    userID,
		Credits:   credits,
		Amount:    int64(credits) * 100,
		Currency:  "INR",
		Status:    OrderCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("createTestOrder: %v", err)
	}
	return o
}

func createTestSubscription(t *testing.T, s Store, userID string) *Subscription {
	t.Helper()
	sub := &Subscription{
		ID:        "sub_" + uuid.New().String()[:8],
		UserID:    userID,
		PlanName:  "UNLIMITED_MONTHLY",
		PlanID:    "plan_unlimited_monthly",
		Status:    SubscriptionCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateSubscription(context.Background(), sub); err != nil {
		t.Fatalf("createTestSubscription: %v", err)
	}
	return sub
}

// runStoreSuite exercises a Store implementation end to end.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Users", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		email := "Asha." + uuid.New().String()[:8] + "@Example.com"
		u := createTestUser(t, s, email, "admin", 5)

		got, err := s.GetUserByEmail(ctx, strings.ToUpper(email))
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.ID != u.ID {
			t.Fatalf("expected user %s by email, got %+v", u.ID, got)
		}
		if got.Credits != 5 || got.Role != "admin" || got.Subscription != nil {
			t.Errorf("unexpected user: %+v", got)
		}

		missing, err := s.GetUserByID(ctx, "nope")
		if err != nil || missing != nil {
			t.Errorf("expected nil, nil for a missing user, got %+v, %v", missing, err)
		}
		if u, err := s.GetUserByExternalID(ctx, ""); err != nil || u != nil {
			t.Errorf("empty external id must never match, got %+v, %v", u, err)
		}
	})

	t.Run("ExternalUser", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ext := &User{
			ID:         uuid.New().String(),
			ExternalID: "idp|" + uuid.New().String()[:8],
			Email:      "ext." + uuid.New().String()[:8] + "@example.com",
			Role:       "viewer",
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.CreateUser(ctx, ext); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetUserByExternalID(ctx, ext.ExternalID)
		if err != nil || got == nil || got.ID != ext.ID {
			t.Fatalf("expected external user, got %+v, %v", got, err)
		}
	})

	t.Run("CompleteOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createTestUser(t, s, "buyer."+uuid.New().String()[:8]+"@example.com", "admin", 5)
		o := createTestOrder(t, s, u.ID, 20)

		updated, err := s.CompleteOrder(ctx, o.ID, "pay_1")
		if err != nil {
			t.Fatalf("CompleteOrder: %v", err)
		}
		if updated.Credits != 25 {
			t.Errorf("expected 25 credits, got %d", updated.Credits)
		}

		paid, err := s.GetOrder(ctx, o.ID)
		if err != nil {
			t.Fatal(err)
		}
		if paid.Status != OrderPaid || paid.PaymentID != "pay_1" || paid.PaidAt == nil {
			t.Errorf("unexpected order after completion: %+v", paid)
		}

		if _, err := s.CompleteOrder(ctx, o.ID, "pay_2"); !errors.Is(err, ErrOrderNotPending) {
			t.Errorf("expected ErrOrderNotPending on replay, got %v", err)
		}
		again, _ := s.GetUserByID(ctx, u.ID)
		if again.Credits != 25 {
			t.Errorf("replay must not credit twice, got %d", again.Credits)
		}

		if _, err := s.CompleteOrder(ctx, "order_missing", "pay_3"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ActivateSubscription", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		u := createTestUser(t, s, "sub."+uuid.New().String()[:8]+"@example.com", "admin", 0)
		sub := createTestSubscription(t, s, u.ID)

		if _, err := s.ActivateSubscription(ctx, sub.ID); !errors.Is(err, ErrSubscriptionNotAuthenticated) {
			t.Fatalf("expected ErrSubscriptionNotAuthenticated before payment, got %v", err)
		}

		if err := s.AuthenticateSubscription(ctx, sub.ID, "pay_9"); err != nil {
			t.Fatalf("AuthenticateSubscription: %v", err)
		}
		if err := s.AuthenticateSubscription(ctx, sub.ID, "pay_10"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for an already authenticated subscription, got %v", err)
		}

		updated, err := s.ActivateSubscription(ctx, sub.ID)
		if err != nil {
			t.Fatalf("ActivateSubscription: %v", err)
		}
		if updated.Subscription == nil {
			t.Fatal("expected the user to carry the subscription")
		}
		if updated.Subscription.ID != sub.ID || updated.Subscription.Status != SubscriptionActive || updated.Subscription.ActivatedAt == nil {
			t.Errorf("unexpected subscription: %+v", updated.Subscription)
		}
		if updated.Subscription.PaymentID != "pay_9" {
			t.Errorf("expected payment id pay_9, got %q", updated.Subscription.PaymentID)
		}

		// Idempotent.
		if _, err := s.ActivateSubscription(ctx, sub.ID); err != nil {
			t.Errorf("second activation: %v", err)
		}
		if _, err := s.ActivateSubscription(ctx, "sub_missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}
