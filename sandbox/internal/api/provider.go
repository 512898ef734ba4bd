package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/sandbox/internal/signature"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

// checkoutScript stands in for the provider's checkout SDK. It asks the user
// to confirm, then pays through the sandbox and hands the signed response to
// options.handler; declining calls options.modal.ondismiss.
const checkoutScript = `(function () {
  var base = %s;
  window.Razorpay = function (options) {
    this.open = function () {
      var modal = options.modal || {};
      var dismiss = typeof modal.ondismiss === "function" ? modal.ondismiss : function () {};
      var what = options.description || options.name || "this purchase";
      if (!window.confirm("Sandbox checkout: pay for " + what + "?")) {
        dismiss();
        return;
      }
      fetch(base + %q, {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        body: JSON.stringify({ order_id: options.order_id, subscription_id: options.subscription_id })
      }).then(function (res) {
        if (!res.ok) { throw new Error("sandbox payment failed: " + res.status); }
        return res.json();
      }).then(function (payment) {
        options.handler(payment);
      }).catch(function () {
        dismiss();
      });
    };
  };
})();
`

func (s *Server) handleCheckoutScript(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base, _ := json.Marshal(scheme + "://" + r.Host)

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = fmt.Fprintf(w, checkoutScript, base, protocol.RouteSandboxPay)
}

// handleSandboxPay completes a payment the way the provider's widget would:
// it returns a payment id and a signature the verify endpoints accept.
// Subscriptions are marked authenticated; orders stay pending until verified.
func (s *Server) handleSandboxPay(w http.ResponseWriter, r *http.Request) {
	var req protocol.SandboxPayRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.SubscriptionID = strings.TrimSpace(req.SubscriptionID)
	if (req.OrderID == "") == (req.SubscriptionID == "") {
		writeError(w, http.StatusBadRequest, "Exactly one of order_id or subscription_id is required")
		return
	}

	paymentID := newID("pay")
	if req.OrderID != "" {
		s.payOrder(w, r, req.OrderID, paymentID)
		return
	}
	s.paySubscription(w, r, req.SubscriptionID, paymentID)
}

func (s *Server) payOrder(w http.ResponseWriter, r *http.Request, orderID, paymentID string) {
	order, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		s.logger.Error("load order", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "Payment failed")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Status != store.OrderCreated {
		writeError(w, http.StatusConflict, "Order already paid")
		return
	}

	s.logger.Info("sandbox payment", "order_id", orderID, "payment_id", paymentID, "amount", order.Amount)
	writeJSON(w, http.StatusOK, protocol.PaymentResponse{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: signature.Order(s.payments.KeySecret, orderID, paymentID),
	})
}

func (s *Server) paySubscription(w http.ResponseWriter, r *http.Request, subID, paymentID string) {
	sub, err := s.store.GetSubscription(r.Context(), subID)
	if err != nil {
		s.logger.Error("load subscription", "subscription_id", subID, "error", err)
		writeError(w, http.StatusInternalServerError, "Payment failed")
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "Subscription not found")
		return
	}
	if err := s.store.AuthenticateSubscription(r.Context(), subID, paymentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusConflict, "Subscription already paid")
			return
		}
		s.logger.Error("authenticate subscription", "subscription_id", subID, "error", err)
		writeError(w, http.StatusInternalServerError, "Payment failed")
		return
	}

	s.logger.Info("sandbox subscription payment", "subscription_id", subID, "payment_id", paymentID, "plan", sub.PlanName)
	writeJSON(w, http.StatusOK, protocol.PaymentResponse{
		RazorpayPaymentID:      paymentID,
		RazorpaySubscriptionID: subID,
		RazorpaySignature:      signature.Subscription(s.payments.KeySecret, paymentID, subID),
	})
}
