package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/levantcargo/shipdesk/internal/catalog"
	"github.com/levantcargo/shipdesk/internal/label"
	"github.com/levantcargo/shipdesk/internal/pricing"
	"github.com/levantcargo/shipdesk/internal/rates"
)

// fakeBackend mimics the remote pricing API for router tests.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calculate-cbm/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "cbm": 0.24}`)
	})
	mux.HandleFunc("POST /calculate-pricing/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"grand_total": 150.5, "currency": "EUR", "line_items": [{"label": "Freight", "amount": 150.5}]}`)
	})
	mux.HandleFunc("POST /calculate-eu-shipping/", func(w http.ResponseWriter, r *http.Request) {
		var req pricing.EUShippingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			req.SenderCity == "" || req.ReceiverCity == "" || req.ReceiverCountry == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"success": true, "shipping_methods": [{"id": 7, "name": "DPD Classic", "carrier": "dpd", "price": 12.5, "currency": "EUR"}]}`)
	})
	mux.HandleFunc("POST /request-product/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestRouter(t *testing.T) (*Router, *SessionStore) {
	t.Helper()

	store, err := NewSessionStore(":memory:")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	cat, err := catalog.New(db)
	require.NoError(t, err)

	provinceStore, err := rates.NewStore(db)
	require.NoError(t, err)
	require.NoError(t, provinceStore.Upsert(context.Background(), &rates.ProvinceRate{
		Code: "ALEPPO", NameEN: "Aleppo", NameAR: "حلب", MinPrice: 10, RatePerKG: 0.07,
	}))

	client := pricing.NewClient(fakeBackend(t).URL, time.Second)
	rules := &Rules{Categories: cat, Provinces: provinceStore}
	creator := &recordingCreator{}
	submitter := NewSubmitter(creator, fakeFiles{}, rules)
	poller := label.New(client, time.Millisecond, 1)

	return NewRouter(context.Background(), store, rules, client, cat, provinceStore, submitter, poller), store
}

func doRequest(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	router.Register(mux)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, router *Router, lang string) uuid.UUID {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/wizard/sessions", map[string]string{"language": lang})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		SessionID uuid.UUID `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.SessionID
}

func TestCreateSessionLocale(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/wizard/sessions", map[string]string{"language": "ar"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ar", resp["lang"])
	assert.Equal(t, "rtl", resp["dir"])
	assert.Equal(t, "direction", resp["step"])
}

func TestStepUpdateAndAdvance(t *testing.T) {
	router, store := newTestRouter(t)
	sessionID := createSession(t, router, "en")
	base := "/api/wizard/sessions/" + sessionID.String()

	t.Run("Next Without Direction Fails", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, base+"/next", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var verr ValidationError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
		assert.Equal(t, "direction", verr.Fields[0].Field)
	})

	t.Run("Set Direction Then Advance", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, base+"/steps/direction", map[string]string{"direction": "EU_TO_SY"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, router, http.MethodPost, base+"/next", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		draft, err := store.Get(context.Background(), sessionID)
		require.NoError(t, err)
		assert.Equal(t, StepShipmentTypes, draft.Step)
	})

	t.Run("Invalid Direction Rejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, base+"/steps/direction", map[string]string{"direction": "MOON"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Back Always Works", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, base+"/back", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		draft, err := store.Get(context.Background(), sessionID)
		require.NoError(t, err)
		assert.Equal(t, StepDirection, draft.Step)
	})
}

func TestRecomputeCBMEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	sessionID := createSession(t, router, "en")

	draft, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	parcel := NewParcel()
	parcel.SetDimensions(100, 60, 40)
	parcel.WeightKG = 10
	draft.Parcels = []Parcel{parcel}
	require.NoError(t, store.Save(context.Background(), draft))

	path := fmt.Sprintf("/api/wizard/sessions/%s/parcels/%s/cbm", sessionID, parcel.ID)
	rec := doRequest(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0.24, resp["cbm"])

	reloaded, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0.24, reloaded.Parcels[0].CBM)
}

func TestPricingEndpointStoresResult(t *testing.T) {
	router, store := newTestRouter(t)
	sessionID := createSession(t, router, "en")

	rec := doRequest(t, router, http.MethodPost, "/api/wizard/sessions/"+sessionID.String()+"/pricing", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	draft, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, draft.Pricing)
	assert.Equal(t, 150.5, draft.Pricing.GrandTotal)
}

func TestSyriaPreviewEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("Below Floor", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/transport/syria-preview?province=aleppo&weight=50", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 10.0, resp["price"])
	})

	t.Run("Above Floor", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/transport/syria-preview?province=ALEPPO&weight=200", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 14.0, resp["price"])
	})

	t.Run("Unknown Province", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/transport/syria-preview?province=ATLANTIS&weight=50", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Localized Name", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/transport/syria-preview?province=ALEPPO&weight=50&lang=ar", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "حلب", resp["name"])
	})
}

func TestEUQuoteEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	sessionID := createSession(t, router, "en")
	path := "/api/wizard/sessions/" + sessionID.String() + "/eu-quote"

	t.Run("Incomplete Pickup Rejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	// The fake backend refuses quotes missing either address side, so a
	// passing request proves both pickup and delivery were sent.
	t.Run("Quote Carries Both Addresses", func(t *testing.T) {
		draft, err := store.Get(context.Background(), sessionID)
		require.NoError(t, err)
		draft.Direction = DirectionEUToSyria
		draft.Receiver = &Party{
			FullName: "Omar Khoury", Phone: "+963 11 555 0101",
			Street: "Al Aziziyeh", City: "Aleppo",
			SY: &SYResidence{Province: "ALEPPO", IDNumber: "N0123456"},
		}
		draft.Transport = &TransportPlan{EUPickup: &EUPickup{
			Street: "Hauptstrasse", StreetNumber: "12", City: "Berlin",
			PostalCode: "10115", Country: "DE", WeightKG: 20,
		}}
		require.NoError(t, store.Save(context.Background(), draft))

		rec := doRequest(t, router, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			ShippingMethods []pricing.ShippingMethod `json:"shippingMethods"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.ShippingMethods, 1)
		assert.Equal(t, "DPD Classic", resp.ShippingMethods[0].Name)
	})
}

func TestConfirmationNotFoundBeforeSubmit(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := createSession(t, router, "en")

	rec := doRequest(t, router, http.MethodGet, "/api/wizard/sessions/"+sessionID.String()+"/confirmation", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/api/wizard/sessions/"+uuid.NewString()+"/next", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductRequestEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/catalog/request", map[string]string{"productName": "Piano", "language": "en"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/catalog/request", map[string]string{"productName": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
