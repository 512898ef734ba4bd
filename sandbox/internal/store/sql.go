package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqlStore holds the queries shared by both drivers. Queries are written with
// "?" placeholders and rebound for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	numbered bool
}

func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// --- Users ---

const userColumns = `u.id, u.external_id, u.name, u.email, u.password_hash, u.role, u.credits, u.created_at,
	s.id, s.plan_name, s.plan_id, s.status, s.payment_id, s.created_at, s.activated_at`

const userFrom = ` FROM users u LEFT JOIN subscriptions s ON s.id = u.subscription_id`

func (s *sqlStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.exec(ctx, s.db,
		"INSERT INTO users (id, external_id, name, email, password_hash, role, credits, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.ExternalID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role, user.Credits, user.CreatedAt,
	)
	return err
}

func (s *sqlStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, s.db, "u.id = ?", id)
}

func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, s.db, "u.email = ?", strings.ToLower(email))
}

func (s *sqlStore) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	if externalID == "" {
		return nil, nil
	}
	return s.getUser(ctx, s.db, "u.external_id = ?", externalID)
}

func (s *sqlStore) getUser(ctx context.Context, q queryer, where string, arg any) (*User, error) {
	var (
		u                                    User
		subID, planName, planID, status, pay sql.NullString
		subCreated, activated                sql.NullTime
	)
	err := s.queryRow(ctx, q, "SELECT "+userColumns+userFrom+" WHERE "+where, arg).Scan(
		&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Credits, &u.CreatedAt,
		&subID, &planName, &planID, &status, &pay, &subCreated, &activated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if subID.Valid {
		u.Subscription = &Subscription{
			ID:          subID.String,
			UserID:      u.ID,
			PlanName:    planName.String,
			PlanID:      planID.String,
			Status:      status.String,
			PaymentID:   pay.String,
			CreatedAt:   subCreated.Time,
			ActivatedAt: nullTime(activated),
		}
	}
	return &u, nil
}

// --- Orders ---

func (s *sqlStore) CreateOrder(ctx context.Context, o *Order) error {
	_, err := s.exec(ctx, s.db,
		"INSERT INTO orders (id, user_id, credits, amount, currency, status, payment_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		o.ID, o.UserID, o.Credits, o.Amount, o.Currency, o.Status, o.PaymentID, o.CreatedAt,
	)
	return err
}

func (s *sqlStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	var (
		o    Order
		paid sql.NullTime
	)
	err := s.queryRow(ctx, s.db,
		"SELECT id, user_id, credits, amount, currency, status, payment_id, created_at, paid_at FROM orders WHERE id = ?", id,
	).Scan(&o.ID, &o.UserID, &o.Credits, &o.Amount, &o.Currency, &o.Status, &o.PaymentID, &o.CreatedAt, &paid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.PaidAt = nullTime(paid)
	return &o, nil
}

func (s *sqlStore) CompleteOrder(ctx context.Context, orderID, paymentID string) (*User, error) {
	var user *User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var userID string
		var credits int64
		var status string
		err := s.queryRow(ctx, tx, "SELECT user_id, credits, status FROM orders WHERE id = ?", orderID).
			Scan(&userID, &credits, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if status != OrderCreated {
			return ErrOrderNotPending
		}

		res, err := s.exec(ctx, tx,
			"UPDATE orders SET status = ?, payment_id = ?, paid_at = ? WHERE id = ? AND status = ?",
			OrderPaid, paymentID, time.Now().UTC(), orderID, OrderCreated)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return ErrOrderNotPending
		}
		if _, err := s.exec(ctx, tx, "UPDATE users SET credits = credits + ? WHERE id = ?", credits, userID); err != nil {
			return err
		}

		user, err = s.getUser(ctx, tx, "u.id = ?", userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// --- Subscriptions ---

func (s *sqlStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	_, err := s.exec(ctx, s.db,
		"INSERT INTO subscriptions (id, user_id, plan_name, plan_id, status, payment_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sub.ID, sub.UserID, sub.PlanName, sub.PlanID, sub.Status, sub.PaymentID, sub.CreatedAt,
	)
	return err
}

func (s *sqlStore) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var (
		sub       Subscription
		activated sql.NullTime
	)
	err := s.queryRow(ctx, s.db,
		"SELECT id, user_id, plan_name, plan_id, status, payment_id, created_at, activated_at FROM subscriptions WHERE id = ?", id,
	).Scan(&sub.ID, &sub.UserID, &sub.PlanName, &sub.PlanID, &sub.Status, &sub.PaymentID, &sub.CreatedAt, &activated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.ActivatedAt = nullTime(activated)
	return &sub, nil
}

func (s *sqlStore) AuthenticateSubscription(ctx context.Context, id, paymentID string) error {
	res, err := s.exec(ctx, s.db,
		"UPDATE subscriptions SET status = ?, payment_id = ? WHERE id = ? AND status = ?",
		SubscriptionAuthenticated, paymentID, id, SubscriptionCreated)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) ActivateSubscription(ctx context.Context, id string) (*User, error) {
	var user *User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var userID, status string
		err := s.queryRow(ctx, tx, "SELECT user_id, status FROM subscriptions WHERE id = ?", id).Scan(&userID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		switch status {
		case SubscriptionAuthenticated:
		case SubscriptionActive:
			// Verifying twice is harmless.
			user, err = s.getUser(ctx, tx, "u.id = ?", userID)
			return err
		default:
			return ErrSubscriptionNotAuthenticated
		}

		if _, err := s.exec(ctx, tx,
			"UPDATE subscriptions SET status = ?, activated_at = ? WHERE id = ?",
			SubscriptionActive, time.Now().UTC(), id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, "UPDATE users SET subscription_id = ? WHERE id = ?", id, userID); err != nil {
			return err
		}

		user, err = s.getUser(ctx, tx, "u.id = ?", userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *sqlStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
