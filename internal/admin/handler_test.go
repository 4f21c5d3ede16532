package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/levantcargo/shipdesk/internal/catalog"
	"github.com/levantcargo/shipdesk/internal/pricing"
	"github.com/levantcargo/shipdesk/internal/rates"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *rates.Store, *catalog.Catalog) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store, err := rates.NewStore(db)
	require.NoError(t, err)

	// First New migrates the tables, the second loads the seeded entry.
	_, err = catalog.New(db)
	require.NoError(t, err)
	require.NoError(t, db.Create(&catalog.Entry{
		ID: 1, NameEN: "Clothes", NameAR: "ملابس",
		Unit: pricing.MinimumUnitPerKG, Minimum: 5, Active: true,
	}).Error)
	cat, err := catalog.New(db)
	require.NoError(t, err)

	return NewHTTPHandler(store, cat), store, cat
}

func serve(h *HTTPHandler, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/admin/provinces/{code}", h.UpsertProvince)
	mux.HandleFunc("DELETE /api/admin/provinces/{code}", h.DeleteProvince)
	mux.HandleFunc("PATCH /api/admin/catalog/{entryID}", h.SetCatalogVisibility)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestUpsertProvince(t *testing.T) {
	h, store, _ := newTestHandler(t)

	resp := serve(h, httptest.NewRequest(http.MethodPut, "/api/admin/provinces/homs", jsonBody(t, map[string]any{
		"nameEn": "Homs", "nameAr": "حمص", "minPrice": 9.0, "ratePerKg": 0.06,
	})))
	require.Equal(t, http.StatusOK, resp.Code)

	var saved rates.ProvinceRate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	assert.Equal(t, "HOMS", saved.Code)

	rate, err := store.Get(context.Background(), "HOMS")
	require.NoError(t, err)
	assert.Equal(t, 9.0, rate.MinPrice)
	assert.Equal(t, 0.06, rate.RatePerKG)
}

func TestUpsertProvince_RejectsIncompletePayload(t *testing.T) {
	h, _, _ := newTestHandler(t)

	resp := serve(h, httptest.NewRequest(http.MethodPut, "/api/admin/provinces/homs", jsonBody(t, map[string]any{
		"nameEn": "Homs",
	})))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteProvince(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &rates.ProvinceRate{
		Code: "ALEPPO", NameEN: "Aleppo", NameAR: "حلب", MinPrice: 10, RatePerKG: 0.07,
	}))

	resp := serve(h, httptest.NewRequest(http.MethodDelete, "/api/admin/provinces/aleppo", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)

	_, err := store.Get(ctx, "ALEPPO")
	assert.Error(t, err)
}

func TestSetCatalogVisibility(t *testing.T) {
	h, _, cat := newTestHandler(t)
	require.Len(t, cat.Entries(), 1)

	resp := serve(h, httptest.NewRequest(http.MethodPatch, "/api/admin/catalog/1", jsonBody(t, map[string]any{
		"active": false,
	})))
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, cat.Entries())

	t.Run("Unknown Entry", func(t *testing.T) {
		resp := serve(h, httptest.NewRequest(http.MethodPatch, "/api/admin/catalog/999", jsonBody(t, map[string]any{
			"active": true,
		})))
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("Missing Flag", func(t *testing.T) {
		resp := serve(h, httptest.NewRequest(http.MethodPatch, "/api/admin/catalog/1", jsonBody(t, map[string]any{})))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
