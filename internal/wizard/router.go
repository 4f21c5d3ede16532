package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/levantcargo/shipdesk/internal/catalog"
	"github.com/levantcargo/shipdesk/internal/label"
	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/metrics"
	"github.com/levantcargo/shipdesk/internal/pricing"
	"github.com/levantcargo/shipdesk/internal/rates"
)

// Router exposes the wizard over HTTP. Handlers load the draft, mutate it
// through the sequencer and persist it back; nothing holds a draft in
// memory between requests.
type Router struct {
	store     *SessionStore
	rules     *Rules
	client    *pricing.Client
	catalog   *catalog.Catalog
	provinces *rates.Store
	submitter *Submitter
	poller    *label.Poller
	validate  *validator.Validate

	// baseCtx bounds background label polling; cancelled on shutdown.
	baseCtx context.Context
}

// NewRouter wires the wizard's HTTP surface.
func NewRouter(baseCtx context.Context, store *SessionStore, rules *Rules, client *pricing.Client, cat *catalog.Catalog, provinces *rates.Store, submitter *Submitter, poller *label.Poller) *Router {
	return &Router{
		store:     store,
		rules:     rules,
		client:    client,
		catalog:   cat,
		provinces: provinces,
		submitter: submitter,
		poller:    poller,
		validate:  validator.New(),
		baseCtx:   baseCtx,
	}
}

// Register attaches all wizard routes to the mux.
func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/wizard/sessions", rt.HandleCreateSession)
	mux.HandleFunc("GET /api/wizard/sessions/{sessionID}", rt.HandleGetSession)
	mux.HandleFunc("PUT /api/wizard/sessions/{sessionID}/steps/{step}", rt.HandleUpdateStep)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/next", rt.HandleNext)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/back", rt.HandleBack)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/jump", rt.HandleJump)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/parcels/{parcelID}/cbm", rt.HandleRecomputeCBM)
	mux.HandleFunc("GET /api/wizard/sessions/{sessionID}/insurance-quote", rt.HandleInsuranceQuote)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/eu-quote", rt.HandleEUQuote)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/pricing", rt.HandlePricing)
	mux.HandleFunc("POST /api/wizard/sessions/{sessionID}/submit", rt.HandleSubmit)
	mux.HandleFunc("GET /api/wizard/sessions/{sessionID}/confirmation", rt.HandleConfirmation)

	mux.HandleFunc("GET /api/catalog/entries", rt.HandleCatalogEntries)
	mux.HandleFunc("GET /api/catalog/packaging", rt.HandlePackaging)
	mux.HandleFunc("GET /api/catalog/search", rt.HandleCatalogSearch)
	mux.HandleFunc("POST /api/catalog/request", rt.HandleProductRequest)

	mux.HandleFunc("GET /api/transport/provinces", rt.HandleProvinces)
	mux.HandleFunc("GET /api/transport/syria-preview", rt.HandleSyriaPreview)
}

type createSessionRequest struct {
	Language string `json:"language" validate:"omitempty,oneof=ar en"`
}

// HandleCreateSession starts a fresh draft.
func (rt *Router) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := rt.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	loc := locale.For(req.Language)
	draft := NewDraft(loc.Lang)
	if err := rt.store.Save(r.Context(), draft); err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": draft.ID,
		"step":      draft.Step.String(),
		"lang":      loc.Lang,
		"dir":       loc.Dir,
	})
}

// HandleGetSession returns the full draft state.
func (rt *Router) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(draft))
}

// HandleUpdateStep replaces one step's data on the draft. The body shape
// depends on the step being updated.
func (rt *Router) HandleUpdateStep(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	step, ok := StepFromName(r.PathValue("step"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown step")
		return
	}

	if err := rt.applyStepUpdate(draft, step, r); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, verr)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft.UpdatedAt = time.Now().UTC()
	if !rt.saveDraft(w, r, draft) {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(draft))
}

// HandleNext advances the draft one step.
func (rt *Router) HandleNext(w http.ResponseWriter, r *http.Request) {
	rt.move(w, r, func(seq *Sequencer) error {
		return seq.Next(r.Context())
	})
}

// HandleBack moves the draft one step backward.
func (rt *Router) HandleBack(w http.ResponseWriter, r *http.Request) {
	rt.move(w, r, func(seq *Sequencer) error {
		seq.Back()
		return nil
	})
}

type jumpRequest struct {
	Step string `json:"step" validate:"required"`
}

// HandleJump moves the draft directly to a step, validating everything in
// between on forward motion.
func (rt *Router) HandleJump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeBody(r, &req); err != nil || rt.validate.Struct(&req) != nil {
		writeError(w, http.StatusBadRequest, "step is required")
		return
	}
	target, ok := StepFromName(req.Step)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown step")
		return
	}
	rt.move(w, r, func(seq *Sequencer) error {
		return seq.JumpTo(r.Context(), target)
	})
}

func (rt *Router) move(w http.ResponseWriter, r *http.Request, motion func(*Sequencer) error) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	seq := NewSequencer(draft, rt.rules)
	if err := motion(seq); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, verr)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !rt.saveDraft(w, r, draft) {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(draft))
}

// HandleRecomputeCBM refreshes one parcel's volumetric size from the
// backend. Failures still answer 200 with cbm 0.
func (rt *Router) HandleRecomputeCBM(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	parcelID, err := uuid.Parse(r.PathValue("parcelID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown parcel")
		return
	}
	parcel := draft.FindParcel(parcelID)
	if parcel == nil {
		writeError(w, http.StatusNotFound, "unknown parcel")
		return
	}

	RecomputeCBM(r.Context(), rt.client, parcel)
	if !rt.saveDraft(w, r, draft) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"parcelId": parcel.ID, "cbm": parcel.CBM})
}

// HandleInsuranceQuote returns the premium preview for the insurance step.
func (rt *Router) HandleInsuranceQuote(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, QuoteInsurance(draft, rt.rules))
}

// HandleEUQuote fetches live courier rates for the EU pickup leg.
func (rt *Router) HandleEUQuote(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	loc := locale.For(string(draft.Lang))
	if draft.Transport == nil || draft.Transport.EUPickup == nil || !draft.Transport.EUPickup.QuoteReady() {
		writeError(w, http.StatusUnprocessableEntity, loc.T(locale.KeyQuoteFailed))
		return
	}

	pickup := draft.Transport.EUPickup
	req := &pricing.EUShippingRequest{
		SenderStreet:     pickup.Street + " " + pickup.StreetNumber,
		SenderCity:       pickup.City,
		SenderPostalCode: pickup.PostalCode,
		SenderCountry:    pickup.Country,
		Weight:           pickup.WeightKG,
	}
	if receiver := draft.Receiver; receiver != nil {
		req.ReceiverStreet = receiver.Street + " " + receiver.StreetNumber
		req.ReceiverCity = receiver.City
		req.ReceiverPostalCode = receiver.PostalCode
		switch {
		case receiver.EU != nil:
			req.ReceiverCountry = receiver.EU.Country
		case receiver.SY != nil:
			req.ReceiverCountry = "SY"
		}
	}

	start := time.Now()
	methods, err := rt.client.CalculateEUShipping(r.Context(), req)
	metrics.BackendRequestDuration.WithLabelValues("eu_quote").Observe(time.Since(start).Seconds())
	if err != nil {
		slog.WarnContext(r.Context(), "eu shipping quote failed", "error", err)
		writeError(w, http.StatusBadGateway, loc.T(locale.KeyQuoteFailed))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shippingMethods": methods})
}

// HandlePricing asks the backend to price the draft and stores the verdict.
func (rt *Router) HandlePricing(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	loc := locale.For(string(draft.Lang))

	req := &pricing.PricingRequest{
		Language:              string(draft.Lang),
		DeclaredShipmentValue: draft.DeclaredShipmentValue,
	}
	for i := range draft.Parcels {
		req.Parcels = append(req.Parcels, parcelLine(&draft.Parcels[i]))
	}

	start := time.Now()
	result, err := rt.client.CalculatePricing(r.Context(), req)
	metrics.BackendRequestDuration.WithLabelValues("pricing").Observe(time.Since(start).Seconds())
	if err != nil {
		slog.WarnContext(r.Context(), "pricing failed", "error", err)
		writeError(w, http.StatusBadGateway, loc.T(locale.KeyPricingFailed))
		return
	}

	draft.Pricing = result
	if !rt.saveDraft(w, r, draft) {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleSubmit runs the final submission and kicks off label polling in
// the background.
func (rt *Router) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	draft, ok := rt.loadDraft(w, r)
	if !ok {
		return
	}
	loc := locale.For(string(draft.Lang))

	confirmation, err := rt.submitter.Submit(r.Context(), draft)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, verr)
			return
		}
		if errors.Is(err, pricing.ErrAuthRequired) {
			writeError(w, http.StatusUnauthorized, loc.T(locale.KeyAuthRequired))
			return
		}
		slog.ErrorContext(r.Context(), "submission failed", "draft_id", draft.ID, "error", err)
		writeError(w, http.StatusBadGateway, loc.T(locale.KeySubmissionFailed))
		return
	}

	if !rt.saveDraft(w, r, draft) {
		return
	}
	if err := rt.store.SetShipment(r.Context(), draft.ID, confirmation.ShipmentID); err != nil {
		slog.ErrorContext(r.Context(), "failed to record shipment id", "error", err)
	}

	go rt.pollLabel(draft.ID, confirmation.ShipmentID)

	writeJSON(w, http.StatusCreated, confirmation)
}

// pollLabel waits for the courier label in the background and records the
// outcome on the session. Bounded by the poller's budget and the server
// lifetime context.
func (rt *Router) pollLabel(sessionID uuid.UUID, shipmentID string) {
	url, err := rt.poller.Wait(rt.baseCtx, shipmentID)
	if err != nil {
		// Cancelled on shutdown; leave the session as-is.
		return
	}
	if err := rt.store.SetLabel(context.Background(), sessionID, url, true); err != nil {
		slog.Error("failed to record label outcome", "session_id", sessionID, "error", err)
	}
}

// HandleConfirmation reports the submission outcome, including the label
// URL once polling found one.
func (rt *Router) HandleConfirmation(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	state, err := rt.store.Confirmation(r.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load confirmation")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleCatalogEntries lists the active product categories.
func (rt *Router) HandleCatalogEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.catalog.Entries())
}

// HandlePackaging lists the packaging options and prices.
func (rt *Router) HandlePackaging(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.catalog.Packaging())
}

// HandleCatalogSearch is the autocomplete endpoint. An empty result tells
// the front end to offer the free-text fallback.
func (rt *Router) HandleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	loc := locale.For(r.URL.Query().Get("lang"))
	query := r.URL.Query().Get("q")

	matches := rt.catalog.Search(query, loc.Lang, 20)
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]any{"id": m.Entry.ID, "label": m.Label})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": out})
}

type productRequestBody struct {
	ProductName string `json:"productName" validate:"required,min=2,max=255"`
	Language    string `json:"language" validate:"omitempty,oneof=ar en"`
}

// HandleProductRequest forwards a free-text category request to the
// backend so missing products get added to the price list.
func (rt *Router) HandleProductRequest(w http.ResponseWriter, r *http.Request) {
	var req productRequestBody
	if err := decodeBody(r, &req); err != nil || rt.validate.Struct(&req) != nil {
		writeError(w, http.StatusBadRequest, "productName is required")
		return
	}
	loc := locale.For(req.Language)
	if err := rt.client.RequestProduct(r.Context(), req.ProductName, string(loc.Lang)); err != nil {
		slog.WarnContext(r.Context(), "product request failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to submit product request")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleProvinces lists the Syria provinces with their rates.
func (rt *Router) HandleProvinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := rt.provinces.List(r.Context(), nil, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list provinces")
		return
	}
	writeJSON(w, http.StatusOK, provinces)
}

// HandleSyriaPreview computes the advisory Syria transport price for a
// province and weight.
func (rt *Router) HandleSyriaPreview(w http.ResponseWriter, r *http.Request) {
	loc := locale.For(r.URL.Query().Get("lang"))

	province, err := rt.provinces.Get(r.Context(), r.URL.Query().Get("province"))
	if err != nil {
		writeError(w, http.StatusNotFound, loc.T(locale.KeyUnknownProvince))
		return
	}
	weight, err := strconv.ParseFloat(r.URL.Query().Get("weight"), 64)
	if err != nil || weight <= 0 {
		writeError(w, http.StatusBadRequest, loc.T(locale.KeyInvalidNumber))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"province": province.Code,
		"name":     province.Name(loc.Lang),
		"weightKg": weight,
		"price":    province.Preview(weight),
	})
}

func (rt *Router) loadDraft(w http.ResponseWriter, r *http.Request) (*Draft, bool) {
	sessionID, err := uuid.Parse(r.PathValue("sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	draft, err := rt.store.Get(r.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return draft, true
}

func (rt *Router) saveDraft(w http.ResponseWriter, r *http.Request, draft *Draft) bool {
	if err := rt.store.Save(r.Context(), draft); err != nil {
		slog.ErrorContext(r.Context(), "failed to save session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return false
	}
	return true
}

func sessionView(d *Draft) map[string]any {
	return map[string]any{
		"sessionId": d.ID,
		"step":      d.Step.String(),
		"draft":     d,
	}
}

func decodeBody(r *http.Request, out any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
