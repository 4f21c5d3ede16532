package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second)
}

func TestCalculateCBM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calculate-cbm/", r.URL.Path)

		var req map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 30.0, req["length"])

		json.NewEncoder(w).Encode(map[string]any{"success": true, "cbm": 0.006})
	}))
	defer srv.Close()

	cbm, err := newTestClient(srv.URL).CalculateCBM(context.Background(), 30, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.006, cbm)
}

func TestCalculateCBM_BackendReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CalculateCBM(context.Background(), 30, 20, 10)
	assert.Error(t, err)
}

func TestRefreshOn401_RetriesOnce(t *testing.T) {
	var priceCalls, refreshCalls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/refresh/":
			refreshCalls++
			json.NewEncoder(w).Encode(map[string]string{"access": "fresh-token"})
		case "/prices/":
			priceCalls++
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode([]PriceEntry{{ID: 1, NameEN: "Clothes"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokens("stale-token", "refresh-token")

	entries, err := c.Prices(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Clothes", entries[0].NameEN)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 2, priceCalls)
}

func TestRefreshOn401_SecondUnauthorizedClearsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/refresh/" {
			json.NewEncoder(w).Encode(map[string]string{"access": "still-bad"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokens("stale", "refresh")

	_, err := c.Prices(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)

	access, refresh := c.tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestRefreshFailureClearsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokens("stale", "refresh")

	_, err := c.Prices(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestBearerOverride(t *testing.T) {
	var seen []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]PriceEntry{})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokens("stored-token", "refresh-token")

	_, err := c.Prices(WithBearer(context.Background(), "customer-token"))
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "Bearer customer-token", seen[0])
}

func TestBearerOverride_UnauthorizedSkipsRefresh(t *testing.T) {
	var refreshCalls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/refresh/" {
			refreshCalls++
			json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetTokens("stored-token", "refresh-token")

	_, err := c.Prices(WithBearer(context.Background(), "expired-customer-token"))
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Zero(t, refreshCalls)

	// The stored pair is untouched; only the override was rejected.
	access, refresh := c.tokens()
	assert.Equal(t, "stored-token", access)
	assert.Equal(t, "refresh-token", refresh)
}

func TestFieldErrorParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string][]string{
			"email": {"Enter a valid email address."},
			"phone": {"This field is required."},
		})
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).RequestProduct(context.Background(), "widget", "en")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, []string{"Enter a valid email address."}, apiErr.FieldErrors["email"])
	assert.Equal(t, []string{"This field is required."}, apiErr.FieldErrors["phone"])
}

func TestCreateShipment_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "EU_TO_SY", r.FormValue("direction"))

		file, header, err := r.FormFile("photo_0")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "front.jpg", header.Filename)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "SHP-1001"})
	}))
	defer srv.Close()

	created, err := newTestClient(srv.URL).CreateShipment(context.Background(), &ShipmentForm{
		Fields: map[string]string{"direction": "EU_TO_SY"},
		Files: []FilePart{
			{Field: "photo_0", Filename: "front.jpg", ContentType: "image/jpeg", Content: []byte("jpegdata")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SHP-1001", created.ID)
}

func TestPricingResultKeepsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"grand_total": 125.5,
			"currency":    "EUR",
			"line_items":  []map[string]any{{"label": "Freight", "amount": 120.0}},
			"extra":       "opaque",
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).CalculatePricing(context.Background(), &PricingRequest{Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, 125.5, result.GrandTotal)
	assert.Contains(t, string(result.Raw), "opaque")
}
