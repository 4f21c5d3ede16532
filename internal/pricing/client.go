// Package pricing is the client of the remote backend API that owns all
// pricing, persistence and label generation. Requests carry a bearer token
// when one is set; a 401 triggers a single token refresh followed by one
// retry, after which the caller is asked to re-authenticate.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrAuthRequired is returned when a request failed with 401 even after a
// token refresh. Stored tokens are cleared before it is returned.
var ErrAuthRequired = errors.New("authentication required")

type contextKey string

const bearerContextKey contextKey = "bearerToken"

// WithBearer attaches a per-request access token that overrides the
// client's stored pair for calls made with the returned context. Refresh
// never applies to an override: whoever supplied the token owns its
// lifecycle.
func WithBearer(ctx context.Context, access string) context.Context {
	return context.WithValue(ctx, bearerContextKey, access)
}

// BearerFrom returns the per-request access token, if any.
func BearerFrom(ctx context.Context) (string, bool) {
	access, ok := ctx.Value(bearerContextKey).(string)
	return access, ok && access != ""
}

// APIError is a non-2xx backend response. FieldErrors is populated when the
// body follows the backend's per-field validation shape
// ({"field": ["msg", ...], ...}) so callers can map errors back onto form
// fields.
type APIError struct {
	Status      int
	Body        string
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// Client talks to the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewClient creates a backend API client. baseURL should include the API
// prefix, e.g. "https://api.example.com/api".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetTokens stores the bearer token pair used for authenticated endpoints.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// ClearTokens drops the stored token pair.
func (c *Client) ClearTokens() {
	c.SetTokens("", "")
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// refresh exchanges the refresh token for a new access token.
func (c *Client) refresh(ctx context.Context) error {
	_, refreshToken := c.tokens()
	if refreshToken == "" {
		return ErrAuthRequired
	}

	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token/refresh/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.ClearTokens()
		return ErrAuthRequired
	}

	var body struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Access == "" {
		c.ClearTokens()
		return ErrAuthRequired
	}

	c.mu.Lock()
	c.accessToken = body.Access
	c.mu.Unlock()
	return nil
}

// do performs an authenticated request. The body is kept in memory so the
// request can be replayed once after a token refresh.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	send := func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if access, ok := BearerFrom(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+access)
		} else if access, _ := c.tokens(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
		return c.httpClient.Do(req)
	}

	resp, err := send()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if _, ok := BearerFrom(ctx); ok {
			return nil, ErrAuthRequired
		}
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
		resp, err = send()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.ClearTokens()
			return nil, ErrAuthRequired
		}
	}

	return resp, nil
}

// doJSON performs a request and decodes a 2xx JSON response into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	contentType := ""
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, contentType, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if pr, ok := out.(*PricingResult); ok {
		pr.Raw = raw
	}
	return nil
}

// newAPIError builds an APIError, extracting per-field validation messages
// when the body matches the backend's field-error shape.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		parsed := make(map[string][]string)
		for field, raw := range fields {
			var msgs []string
			if err := json.Unmarshal(raw, &msgs); err == nil && len(msgs) > 0 {
				parsed[field] = msgs
			}
		}
		if len(parsed) > 0 {
			apiErr.FieldErrors = parsed
		}
	}
	return apiErr
}

// CalculateCBM asks the backend for the cubic measurement of the given
// dimension triple (cm). Callers treat any error as "cbm unknown".
func (c *Client) CalculateCBM(ctx context.Context, length, width, height float64) (float64, error) {
	req := map[string]float64{"length": length, "width": width, "height": height}
	var resp struct {
		Success bool    `json:"success"`
		CBM     float64 `json:"cbm"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/calculate-cbm/", req, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("cbm calculation reported failure")
	}
	return resp.CBM, nil
}

// Prices fetches the main price list.
func (c *Client) Prices(ctx context.Context) ([]PriceEntry, error) {
	var out []PriceEntry
	if err := c.doJSON(ctx, http.MethodGet, "/prices/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegularProducts fetches the per-kg product catalog.
func (c *Client) RegularProducts(ctx context.Context) ([]PriceEntry, error) {
	var out []PriceEntry
	if err := c.doJSON(ctx, http.MethodGet, "/regular-products/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PerPieceProducts fetches the per-piece product catalog.
func (c *Client) PerPieceProducts(ctx context.Context) ([]PriceEntry, error) {
	var out []PriceEntry
	if err := c.doJSON(ctx, http.MethodGet, "/per-piece-products/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PackagingPrices fetches the packaging options.
func (c *Client) PackagingPrices(ctx context.Context) ([]PackagingPrice, error) {
	var out []PackagingPrice
	if err := c.doJSON(ctx, http.MethodGet, "/packaging-prices/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInsuranceRates fetches the authoritative insurance percentages.
func (c *Client) GetInsuranceRates(ctx context.Context) (*InsuranceRates, error) {
	var out InsuranceRates
	if err := c.doJSON(ctx, http.MethodGet, "/insurance-rates/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculatePricing asks the backend to price the given parcels.
func (c *Client) CalculatePricing(ctx context.Context, req *PricingRequest) (*PricingResult, error) {
	var out PricingResult
	if err := c.doJSON(ctx, http.MethodPost, "/calculate-pricing/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculateEUShipping fetches live EU courier rates through the backend's
// Sendcloud proxy.
func (c *Client) CalculateEUShipping(ctx context.Context, req *EUShippingRequest) ([]ShippingMethod, error) {
	var resp struct {
		Success         bool             `json:"success"`
		ShippingMethods []ShippingMethod `json:"shipping_methods"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/calculate-eu-shipping/", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("shipping rate lookup reported failure")
	}
	return resp.ShippingMethods, nil
}

// FilePart is one file attached to the create-shipment form.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// ShipmentForm is the multipart payload of the create-shipment call: the
// serialized draft fields plus the uploaded photos and transfer slip.
type ShipmentForm struct {
	Fields map[string]string
	Files  []FilePart
}

// CreateShipment posts the complete draft to the backend.
func (c *Client) CreateShipment(ctx context.Context, form *ShipmentForm) (*CreatedShipment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range form.Fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %q: %w", key, err)
		}
	}
	for _, file := range form.Files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file %q: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, fmt.Errorf("failed to write form file %q: %w", file.Field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/shipments/", writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, raw)
	}

	var created CreatedShipment
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("failed to decode create-shipment response: %w", err)
	}
	slog.Info("shipment created", "shipmentId", created.ID)
	return &created, nil
}

// GetShipment fetches the current state of a shipment, including the label
// URL once the backend has generated it.
func (c *Client) GetShipment(ctx context.Context, id string) (*ShipmentStatus, error) {
	var out ShipmentStatus
	if err := c.doJSON(ctx, http.MethodGet, "/shipments/"+id+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession starts a Stripe payment for a created shipment.
func (c *Client) CreateCheckoutSession(ctx context.Context, shipmentID string) (*CheckoutSession, error) {
	req := map[string]string{"shipment_id": shipmentID}
	var out CheckoutSession
	if err := c.doJSON(ctx, http.MethodPost, "/shipments/create-checkout-session/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPayment reports a completed Stripe redirect back to the backend.
func (c *Client) ConfirmPayment(ctx context.Context, sessionID string) error {
	req := map[string]string{"session_id": sessionID}
	return c.doJSON(ctx, http.MethodPost, "/shipments/confirm-payment/", req, nil)
}

// RequestProduct records a free-text category request when the catalog has
// no match for what the customer wants to ship.
func (c *Client) RequestProduct(ctx context.Context, productName, language string) error {
	req := map[string]string{"productName": productName, "language": language}
	return c.doJSON(ctx, http.MethodPost, "/request-product/", req, nil)
}
