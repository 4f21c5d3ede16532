package payment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// HTTPHandler exposes the checkout flow.
type HTTPHandler struct {
	Service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

type checkoutRequest struct {
	ShipmentID   string `json:"shipmentId"`
	CaptchaToken string `json:"captchaToken"`
}

// StartCheckout handles "POST /api/payments/checkout" and returns the
// Stripe redirect URL.
func (h *HTTPHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShipmentID == "" {
		http.Error(w, `{"error": "shipmentId is required"}`, http.StatusBadRequest)
		return
	}

	session, err := h.Service.StartCheckout(r.Context(), req.ShipmentID, req.CaptchaToken)
	if errors.Is(err, ErrCaptchaFailed) {
		http.Error(w, `{"error": "captcha verification failed"}`, http.StatusForbidden)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "checkout failed", "shipment_id", req.ShipmentID, "error", err)
		http.Error(w, `{"error": "failed to start checkout"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

type confirmRequest struct {
	SessionID string `json:"sessionId"`
}

// Confirm handles "POST /api/payments/confirm" after the customer returns
// from Stripe.
func (h *HTTPHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, `{"error": "sessionId is required"}`, http.StatusBadRequest)
		return
	}

	if err := h.Service.Confirm(r.Context(), req.SessionID); err != nil {
		slog.ErrorContext(r.Context(), "payment confirmation failed", "session_id", req.SessionID, "error", err)
		http.Error(w, `{"error": "failed to confirm payment"}`, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
