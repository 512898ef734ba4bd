// Package widget hands a checkout to the payment provider's widget and reports
// how the user left it.
//
// Every implementation returns a single-shot channel: it yields at most one
// PaymentResponse and is then closed. A channel closed without a value means
// the user dismissed the widget. The channel is also closed when the context
// passed to Open is cancelled.
package widget

import (
	"errors"

	"github.com/affiliateplus/storefront/pkg/protocol"
)

// ErrNoTarget is returned when the options name neither an order nor a subscription.
var ErrNoTarget = errors.New("widget: options need an order_id or a subscription_id")

func validate(opts protocol.CheckoutOptions) error {
	if opts.OrderID == "" && opts.SubscriptionID == "" {
		return ErrNoTarget
	}
	return nil
}
