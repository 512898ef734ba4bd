package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/sandbox/internal/signature"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Credits <= 0 {
		writeError(w, http.StatusBadRequest, "Credits must be a positive number")
		return
	}
	identity := getIdentityFromContext(r.Context())

	order := &store.Order{
		ID:        newID("order"),
		UserID:    identity.UserID,
		Credits:   req.Credits,
		Amount:    int64(req.Credits) * s.payments.PricePerCredit,
		Currency:  s.payments.Currency,
		Status:    store.OrderCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateOrder(r.Context(), order); err != nil {
		s.logger.Error("create order", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to create order")
		return
	}
	s.metrics.ordersCreated.Inc()
	s.logger.Info("order created", "order_id", order.ID, "user_id", identity.UserID, "credits", order.Credits, "amount", order.Amount)

	writeJSON(w, http.StatusOK, protocol.CreateOrderResponse{Order: protocol.Order{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
	}})
}

func (s *Server) handleVerifyOrder(w http.ResponseWriter, r *http.Request) {
	var req protocol.VerifyOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		writeError(w, http.StatusBadRequest, "Missing payment details")
		return
	}
	identity := getIdentityFromContext(r.Context())
	log := s.logger.With("order_id", req.RazorpayOrderID, "payment_id", req.RazorpayPaymentID, "user_id", identity.UserID)

	if !signature.VerifyOrder(s.payments.KeySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.metrics.verified(kindOrder, resultBadSignature)
		log.Warn("order signature mismatch")
		writeError(w, http.StatusBadRequest, "Invalid payment signature")
		return
	}

	order, err := s.store.GetOrder(r.Context(), req.RazorpayOrderID)
	if err != nil {
		s.metrics.verified(kindOrder, resultError)
		log.Error("load order", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to verify payment")
		return
	}
	if order == nil || order.UserID != identity.UserID {
		s.metrics.verified(kindOrder, resultRejected)
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Credits != req.Credits {
		s.metrics.verified(kindOrder, resultMismatch)
		log.Warn("credits do not match order", "ordered", order.Credits, "claimed", req.Credits)
		writeError(w, http.StatusBadRequest, "Credits do not match the order")
		return
	}

	user, err := s.store.CompleteOrder(r.Context(), order.ID, req.RazorpayPaymentID)
	switch {
	case errors.Is(err, store.ErrOrderNotPending):
		s.metrics.verified(kindOrder, resultRejected)
		writeError(w, http.StatusConflict, "Order already verified")
		return
	case err != nil:
		s.metrics.verified(kindOrder, resultError)
		log.Error("complete order", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to verify payment")
		return
	}

	s.metrics.verified(kindOrder, resultOK)
	s.metrics.creditsSold.Add(float64(order.Credits))
	log.Info("order paid", "credits", order.Credits, "balance", user.Credits)
	writeJSON(w, http.StatusOK, protocol.UserResponse{User: toProtocolUser(user)})
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateSubscriptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	planID, ok := s.payments.Plans[req.PlanName]
	if !ok || planID == "" {
		writeError(w, http.StatusBadRequest, "Plan not configured")
		return
	}
	identity := getIdentityFromContext(r.Context())

	sub := &store.Subscription{
		ID:        newID("sub"),
		UserID:    identity.UserID,
		PlanName:  req.PlanName,
		PlanID:    planID,
		Status:    store.SubscriptionCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSubscription(r.Context(), sub); err != nil {
		s.logger.Error("create subscription", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}
	s.metrics.subscriptionsCreated.WithLabelValues(req.PlanName).Inc()
	s.logger.Info("subscription created", "subscription_id", sub.ID, "user_id", identity.UserID, "plan", req.PlanName)

	writeJSON(w, http.StatusOK, protocol.CreateSubscriptionResponse{
		Subscription: protocol.ProviderSubscription{ID: sub.ID},
	})
}

func (s *Server) handleVerifySubscription(w http.ResponseWriter, r *http.Request) {
	var req protocol.VerifySubscriptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SubscriptionID == "" {
		writeError(w, http.StatusBadRequest, "Missing subscription id")
		return
	}
	identity := getIdentityFromContext(r.Context())
	log := s.logger.With("subscription_id", req.SubscriptionID, "user_id", identity.UserID)

	sub, err := s.store.GetSubscription(r.Context(), req.SubscriptionID)
	if err != nil {
		s.metrics.verified(kindSubscription, resultError)
		log.Error("load subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify subscription")
		return
	}
	if sub == nil || sub.UserID != identity.UserID {
		s.metrics.verified(kindSubscription, resultRejected)
		writeError(w, http.StatusNotFound, "Subscription not found")
		return
	}

	user, err := s.store.ActivateSubscription(r.Context(), sub.ID)
	switch {
	case errors.Is(err, store.ErrSubscriptionNotAuthenticated):
		s.metrics.verified(kindSubscription, resultRejected)
		writeError(w, http.StatusBadRequest, "Subscription payment not completed")
		return
	case err != nil:
		s.metrics.verified(kindSubscription, resultError)
		log.Error("activate subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify subscription")
		return
	}

	s.metrics.verified(kindSubscription, resultOK)
	log.Info("subscription activated", "plan", sub.PlanName)
	writeJSON(w, http.StatusOK, protocol.UserResponse{User: toProtocolUser(user)})
}
