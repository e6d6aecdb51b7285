package handlers

import (
	"net/http"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

// SubscriptionHandler exposes the caller's Pro status
type SubscriptionHandler struct {
	entitlements contracts.Entitlements
}

// NewSubscriptionHandler creates a subscription handler
func NewSubscriptionHandler(e contracts.Entitlements) *SubscriptionHandler {
	return &SubscriptionHandler{entitlements: e}
}

// GetSubscription answers {isPro}; unknown callers are simply not Pro
// GET /api/subscription
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	isPro := h.entitlements.IsPro(r.Context(), r.Header.Get("Authorization"))
	respondJSON(w, http.StatusOK, map[string]bool{"isPro": isPro})
}
