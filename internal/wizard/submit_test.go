package wizard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// recordingCreator captures the submitted form.
type recordingCreator struct {
	calls int
	form  *pricing.ShipmentForm
	err   error
}

func (r *recordingCreator) CreateShipment(_ context.Context, form *pricing.ShipmentForm) (*pricing.CreatedShipment, error) {
	r.calls++
	r.form = form
	if r.err != nil {
		return nil, r.err
	}
	return &pricing.CreatedShipment{ID: "ship-42", TrackingNumber: "TRK-1"}, nil
}

// fakeFiles serves a fixed payload for any upload id.
type fakeFiles struct{}

func (fakeFiles) Load(_ context.Context, id uuid.UUID) ([]byte, string, string, error) {
	return []byte("jpeg-bytes"), id.String() + ".jpg", "image/jpeg", nil
}

func completeDraft() *Draft {
	d := NewDraft(locale.LangEnglish)
	d.Direction = DirectionEUToSyria
	d.ShipmentTypes = []ShipmentType{ShipmentTypeParcelLCL}

	d.Sender = &Party{
		FullName: "Maya Haddad", Phone: "+49 30 1234567",
		Street: "Hauptstrasse", StreetNumber: "12", City: "Berlin", PostalCode: "10115",
		EU: &EUResidence{Country: "DE"},
	}
	d.Receiver = &Party{
		FullName: "Omar Khoury", Phone: "+963 11 555 0101",
		Street: "Al Aziziyeh", City: "Aleppo",
		SY: &SYResidence{Province: "ALEPPO", IDNumber: "N0123456"},
	}

	d.Parcels = []Parcel{validStandardParcel(1)}
	d.Pricing = &pricing.PricingResult{GrandTotal: 120, Currency: "EUR"}
	d.Payment.Method = PaymentCash
	d.AcceptedTerms = true
	d.AcceptedPolicies = true
	d.Step = StepReview
	return d
}

func TestSubmitRequiresBothAcceptances(t *testing.T) {
	creator := &recordingCreator{}
	sub := NewSubmitter(creator, fakeFiles{}, testRules())

	d := completeDraft()
	d.AcceptedPolicies = false

	_, err := sub.Submit(context.Background(), d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepReview, verr.Step)
	assert.Equal(t, locale.KeyAcceptPolicies, verr.Fields[0].Key)
	// Nothing reached the backend.
	assert.Zero(t, creator.calls)
}

func TestSubmitRevalidatesEveryStep(t *testing.T) {
	creator := &recordingCreator{}
	sub := NewSubmitter(creator, fakeFiles{}, testRules())

	d := completeDraft()
	d.Parcels[0].WeightKG = 1 // below the category minimum

	_, err := sub.Submit(context.Background(), d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepParcels, verr.Step)
	assert.Zero(t, creator.calls)
}

func TestSubmitBuildsMultipartForm(t *testing.T) {
	creator := &recordingCreator{}
	sub := NewSubmitter(creator, fakeFiles{}, testRules())

	d := completeDraft()
	slip := uuid.New()
	d.Payment.Method = PaymentInternalTransfer
	d.Payment.TransferSenderName = "Maya Haddad"
	d.Payment.TransferReference = "TRX-1"
	d.Payment.TransferSlipID = &slip

	conf, err := sub.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "ship-42", conf.ShipmentID)
	assert.Equal(t, StepConfirmation, d.Step)

	require.Equal(t, 1, creator.calls)
	form := creator.form
	assert.Equal(t, "EU_TO_SY", form.Fields["direction"])
	assert.Equal(t, "PARCEL_LCL", form.Fields["shipment_types"])
	assert.Equal(t, "true", form.Fields["accepted_terms"])
	assert.Equal(t, "true", form.Fields["accepted_policies"])
	assert.Equal(t, "internal_transfer", form.Fields["payment_method"])
	assert.Equal(t, "Maya Haddad", form.Fields["transfer_sender_name"])

	var lines []pricing.ParcelLine
	require.NoError(t, json.Unmarshal([]byte(form.Fields["parcels"]), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), *lines[0].ProductCategoryID)

	// One content photo plus the transfer slip.
	require.Len(t, form.Files, 2)
	assert.Equal(t, "parcel_0_photo_0", form.Files[0].Field)
	assert.Equal(t, "transfer_slip", form.Files[1].Field)
	assert.Equal(t, "image/jpeg", form.Files[0].ContentType)
}

func TestSubmitConsumesDraftOnce(t *testing.T) {
	creator := &recordingCreator{}
	sub := NewSubmitter(creator, fakeFiles{}, testRules())

	d := completeDraft()
	_, err := sub.Submit(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 1, creator.calls)
	assert.Equal(t, StepConfirmation, d.Step)

	// The confirmation step is terminal: no motion back into the flow, and
	// no second shipment from the same draft.
	seq := NewSequencer(d, testRules())
	assert.Error(t, seq.JumpTo(context.Background(), StepReview))
	assert.Equal(t, StepConfirmation, seq.Current())

	_, err = sub.Submit(context.Background(), d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepConfirmation, verr.Step)
	assert.Equal(t, 1, creator.calls)
}

func TestSubmitWrapsBackendFailure(t *testing.T) {
	creator := &recordingCreator{err: assert.AnError}
	sub := NewSubmitter(creator, fakeFiles{}, testRules())

	d := completeDraft()
	_, err := sub.Submit(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, StepReview, d.Step) // draft stays recoverable
}
