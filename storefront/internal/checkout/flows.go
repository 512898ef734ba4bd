package checkout

import (
	"context"
	"fmt"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/storefront/internal/payments"
)

// BuyCredits runs the one-time credit pack purchase and returns the state it
// settled in. It blocks until the user leaves the widget and verification
// finishes, or ctx ends the wait for the widget.
func (o *Orchestrator) BuyCredits(ctx context.Context, credits int) State {
	st, ok := o.begin(FlowCredits)
	if !ok {
		return st
	}
	if !o.ready() {
		return o.fail(MsgSDKNotLoaded)
	}
	if credits <= 0 {
		return o.fail(MsgInvalidPack)
	}

	logger := o.logger.With("flow", FlowCredits, "credits", credits)
	calls := context.WithoutCancel(ctx)

	o.advance(PhaseAwaitingOrder)
	order, err := o.deps.API.CreateOrder(calls, credits)
	if err != nil {
		logger.Warn("create order failed", "error", err)
		return o.fail(failureMessage(err, MsgCreditsFailed))
	}
	logger = logger.With("order_id", order.ID)
	logger.Info("order created", "amount", order.Amount, "currency", order.Currency)

	user := o.deps.Session.Current()
	opts := protocol.CheckoutOptions{
		Key:         o.opts.KeyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        o.opts.BrandName,
		Description: fmt.Sprintf("%d Credits Pack", credits),
		OrderID:     order.ID,
		Prefill:     protocol.Prefill{Name: user.Name, Email: user.Email},
		Theme:       protocol.Theme{Color: o.opts.ThemeColor},
	}

	resp, paid, err := o.awaitPayment(ctx, opts)
	if err != nil {
		logger.Error("payment widget failed to open", "error", err)
		return o.fail(MsgCreditsFailed)
	}
	if !paid {
		logger.Info("payment widget dismissed")
		return o.dismissed()
	}

	o.advance(PhaseAwaitingVerification)
	updated, err := o.deps.API.VerifyOrder(calls, protocol.VerifyOrderRequest{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: resp.RazorpayPaymentID,
		RazorpaySignature: resp.RazorpaySignature,
		Credits:           credits,
	})
	if err != nil {
		logger.Warn("verify order failed", "payment_id", resp.RazorpayPaymentID, "error", err)
		return o.fail(failureMessage(err, MsgCreditsFailed))
	}
	if updated.ID == "" {
		logger.Warn("verify order returned no user", "payment_id", resp.RazorpayPaymentID)
		return o.fail(MsgCreditsFailed)
	}

	o.deps.Session.Replace(updated)
	logger.Info("credits purchased", "payment_id", resp.RazorpayPaymentID, "balance", updated.Credits)
	return o.succeed(fmt.Sprintf(msgCreditsAdded, credits))
}

// Subscribe runs the subscription flow for planKey and returns the state it
// settled in. Blocking behaves as in BuyCredits.
func (o *Orchestrator) Subscribe(ctx context.Context, planKey string) State {
	st, ok := o.begin(FlowSubscription)
	if !ok {
		return st
	}
	if !o.ready() {
		return o.fail(MsgSDKNotLoaded)
	}
	plan, known := o.deps.Plans.Lookup(planKey)
	if !known {
		return o.fail(MsgUnknownPlan)
	}

	logger := o.logger.With("flow", FlowSubscription, "plan", planKey)
	calls := context.WithoutCancel(ctx)

	o.advance(PhaseAwaitingOrder)
	sub, err := o.deps.API.CreateSubscription(calls, planKey)
	if err != nil {
		logger.Warn("create subscription failed", "error", err)
		return o.fail(failureMessage(err, MsgSubscriptionFailed))
	}
	logger = logger.With("subscription_id", sub.ID)
	logger.Info("subscription created")

	user := o.deps.Session.Current()
	opts := protocol.CheckoutOptions{
		Key:            o.opts.KeyID,
		Name:           plan.PlanName,
		Description:    plan.Description,
		SubscriptionID: sub.ID,
		Prefill:        protocol.Prefill{Name: user.Name, Email: user.Email},
		Theme:          protocol.Theme{Color: o.opts.ThemeColor},
		Notes:          map[string]string{"plan": planKey, "brand": o.opts.BrandName},
	}

	resp, paid, err := o.awaitPayment(ctx, opts)
	if err != nil {
		logger.Error("payment widget failed to open", "error", err)
		return o.fail(MsgSubscriptionFailed)
	}
	if !paid {
		logger.Info("payment widget dismissed")
		return o.dismissed()
	}

	subID := resp.RazorpaySubscriptionID
	if subID == "" {
		subID = sub.ID
	}

	o.advance(PhaseAwaitingVerification)
	updated, err := o.deps.API.VerifySubscription(calls, subID)
	if err != nil {
		logger.Warn("verify subscription failed", "payment_id", resp.RazorpayPaymentID, "error", err)
		return o.fail(failureMessage(err, MsgSubscriptionFailed))
	}
	if updated.ID == "" {
		logger.Warn("verify subscription returned no user", "payment_id", resp.RazorpayPaymentID)
		return o.fail(MsgSubscriptionFailed)
	}

	o.deps.Session.Replace(updated)
	logger.Info("subscription activated", "payment_id", resp.RazorpayPaymentID)
	return o.succeed(MsgSubscribed)
}

// awaitPayment opens the widget and waits for the user. paid is false when
// the widget was dismissed or ctx ended the wait.
func (o *Orchestrator) awaitPayment(ctx context.Context, opts protocol.CheckoutOptions) (protocol.PaymentResponse, bool, error) {
	o.advance(PhaseAwaitingPayment)
	ch, err := o.deps.Widget.Open(ctx, opts)
	if err != nil {
		return protocol.PaymentResponse{}, false, err
	}
	resp, ok := <-ch
	return resp, ok, nil
}

// failureMessage prefers the message the service reported.
func failureMessage(err error, fallback string) string {
	if msg := payments.ServiceMessage(err); msg != "" {
		return msg
	}
	return fallback
}
