// Package admin exposes the back-office mutations: province rate rows and
// catalog entry visibility. Routes must be registered behind RequireAuth.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/levantcargo/shipdesk/internal/catalog"
	"github.com/levantcargo/shipdesk/internal/rates"
)

type HTTPHandler struct {
	provinces *rates.Store
	catalog   *catalog.Catalog
	validate  *validator.Validate
}

func NewHTTPHandler(provinces *rates.Store, cat *catalog.Catalog) *HTTPHandler {
	return &HTTPHandler{provinces: provinces, catalog: cat, validate: validator.New()}
}

type provinceBody struct {
	NameEN    string  `json:"nameEn" validate:"required,max=255"`
	NameAR    string  `json:"nameAr" validate:"required,max=255"`
	MinPrice  float64 `json:"minPrice" validate:"gte=0"`
	RatePerKG float64 `json:"ratePerKg" validate:"gte=0"`
}

// UpsertProvince handles "PUT /api/admin/provinces/{code}".
func (h *HTTPHandler) UpsertProvince(w http.ResponseWriter, r *http.Request) {
	var body provinceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		http.Error(w, `{"error": "invalid province payload"}`, http.StatusBadRequest)
		return
	}

	rate := &rates.ProvinceRate{
		Code:      r.PathValue("code"),
		NameEN:    body.NameEN,
		NameAR:    body.NameAR,
		MinPrice:  body.MinPrice,
		RatePerKG: body.RatePerKG,
	}
	if err := h.provinces.Upsert(r.Context(), rate); err != nil {
		slog.ErrorContext(r.Context(), "province upsert failed", "code", rate.Code, "error", err)
		http.Error(w, `{"error": "failed to save province rate"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rate)
}

// DeleteProvince handles "DELETE /api/admin/provinces/{code}".
func (h *HTTPHandler) DeleteProvince(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.provinces.Delete(r.Context(), code); err != nil {
		slog.ErrorContext(r.Context(), "province delete failed", "code", code, "error", err)
		http.Error(w, `{"error": "failed to delete province rate"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type catalogVisibilityBody struct {
	Active *bool `json:"active" validate:"required"`
}

// SetCatalogVisibility handles "PATCH /api/admin/catalog/{entryID}" and
// toggles whether an entry appears in the wizard dropdowns.
func (h *HTTPHandler) SetCatalogVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("entryID"), 10, 64)
	if err != nil {
		http.Error(w, `{"error": "unknown catalog entry"}`, http.StatusNotFound)
		return
	}

	var body catalogVisibilityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || h.validate.Struct(&body) != nil {
		http.Error(w, `{"error": "active is required"}`, http.StatusBadRequest)
		return
	}

	if err := h.catalog.SetActive(id, *body.Active); err != nil {
		http.Error(w, `{"error": "unknown catalog entry"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
