// Package payment drives the Stripe checkout flow for submitted shipments.
// The backend owns the Stripe session; this service gates it behind an
// optional reCAPTCHA check and hands the redirect URL to the customer.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/levantcargo/shipdesk/internal/pricing"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrCaptchaFailed is returned when the reCAPTCHA token does not verify.
var ErrCaptchaFailed = errors.New("captcha verification failed")

// CheckoutAPI is the backend slice this service calls. *pricing.Client
// satisfies it.
type CheckoutAPI interface {
	CreateCheckoutSession(ctx context.Context, shipmentID string) (*pricing.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, sessionID string) error
}

// Service wires the checkout flow together.
type Service struct {
	api             CheckoutAPI
	recaptchaSecret string
	verifyURL       string
	httpClient      *http.Client
}

// NewService creates the payment service. An empty recaptchaSecret disables
// the captcha check entirely.
func NewService(api CheckoutAPI, recaptchaSecret string) *Service {
	return &Service{
		api:             api,
		recaptchaSecret: recaptchaSecret,
		verifyURL:       defaultVerifyURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

// StartCheckout verifies the captcha token and asks the backend for a
// Stripe checkout session. The returned redirect URL sends the customer to
// Stripe's hosted page.
func (s *Service) StartCheckout(ctx context.Context, shipmentID, captchaToken string) (*pricing.CheckoutSession, error) {
	if s.recaptchaSecret != "" {
		if err := s.verifyCaptcha(ctx, captchaToken); err != nil {
			return nil, err
		}
	}

	session, err := s.api.CreateCheckoutSession(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	slog.Info("checkout session created", "shipment_id", shipmentID, "session_id", session.SessionID)
	return session, nil
}

// Confirm tells the backend to verify a returned Stripe session. Called
// when the customer lands back on the success URL.
func (s *Service) Confirm(ctx context.Context, sessionID string) error {
	if err := s.api.ConfirmPayment(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}
	return nil
}

func (s *Service) verifyCaptcha(ctx context.Context, token string) error {
	if token == "" {
		return ErrCaptchaFailed
	}

	form := url.Values{"secret": {s.recaptchaSecret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach captcha verifier: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode captcha response: %w", err)
	}
	if !result.Success {
		return ErrCaptchaFailed
	}
	return nil
}
