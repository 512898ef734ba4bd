package widget

import (
	"context"
	"log/slog"

	"github.com/affiliateplus/storefront/pkg/protocol"
)

// Payer completes payments on behalf of the user. The storefront's payments
// client satisfies it against a sandbox backend.
type Payer interface {
	SandboxPay(ctx context.Context, req protocol.SandboxPayRequest) (protocol.PaymentResponse, error)
}

// Sandbox stands in for the provider widget during local development. It asks
// the sandbox backend to act as the provider and reports the signed result as
// if the user had paid. With Dismiss set it behaves like a user closing the
// widget.
type Sandbox struct {
	payer   Payer
	Dismiss bool
	logger  *slog.Logger
}

// NewSandbox creates a sandbox widget.
func NewSandbox(payer Payer, dismiss bool, logger *slog.Logger) *Sandbox {
	return &Sandbox{
		payer:   payer,
		Dismiss: dismiss,
		logger:  logger.With("component", "sandbox-widget"),
	}
}

// Open simulates the user's trip through the widget.
func (s *Sandbox) Open(ctx context.Context, opts protocol.CheckoutOptions) (<-chan protocol.PaymentResponse, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}

	out := make(chan protocol.PaymentResponse, 1)
	go func() {
		defer close(out)
		if s.Dismiss {
			s.logger.Info("simulating widget dismissal", "order_id", opts.OrderID, "subscription_id", opts.SubscriptionID)
			return
		}

		resp, err := s.payer.SandboxPay(ctx, protocol.SandboxPayRequest{
			OrderID:        opts.OrderID,
			SubscriptionID: opts.SubscriptionID,
		})
		if err != nil {
			// The provider never calls back on a failed payment; the user just closes the widget.
			s.logger.Warn("sandbox payment failed", "error", err)
			return
		}
		s.logger.Info("sandbox payment completed", "payment_id", resp.RazorpayPaymentID)
		out <- resp
	}()
	return out, nil
}
