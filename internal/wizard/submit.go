package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/metrics"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// ShipmentCreator is the backend call the submitter needs.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, form *pricing.ShipmentForm) (*pricing.CreatedShipment, error)
}

// FileLoader resolves an uploaded file's bytes for the multipart payload.
// The uploads service satisfies it.
type FileLoader interface {
	Load(ctx context.Context, id uuid.UUID) (content []byte, filename, contentType string, err error)
}

// Confirmation is what the customer sees after a successful submission.
type Confirmation struct {
	ShipmentID     string `json:"shipmentId"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

// Submitter turns a completed draft into a created shipment.
type Submitter struct {
	creator ShipmentCreator
	files   FileLoader
	rules   *Rules
}

// NewSubmitter wires the submitter's collaborators.
func NewSubmitter(creator ShipmentCreator, files FileLoader, rules *Rules) *Submitter {
	return &Submitter{creator: creator, files: files, rules: rules}
}

// Submit validates the whole draft, assembles the multipart payload and
// posts it to the backend. Both acceptance boxes gate the call: nothing
// leaves this process until the draft is clean and both are ticked. On
// success the draft advances to the confirmation step.
func (s *Submitter) Submit(ctx context.Context, d *Draft) (*Confirmation, error) {
	loc := locale.For(string(d.Lang))

	// The draft is consumed exactly once; a second create would ship twice.
	if d.Step == StepConfirmation {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Step: StepConfirmation, Fields: []FieldError{
			fieldErr(loc, "step", locale.KeyStepLocked),
		}}
	}

	for step := FirstStep; step <= StepReview; step++ {
		if errs := ValidateStep(ctx, d, step, s.rules, loc); len(errs) > 0 {
			metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
			return nil, &ValidationError{Step: step, Fields: errs}
		}
	}

	form, err := s.buildForm(ctx, d)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	created, err := s.creator.CreateShipment(ctx, form)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	d.Step = StepConfirmation
	d.UpdatedAt = time.Now().UTC()

	metrics.SubmissionsTotal.WithLabelValues("created").Inc()
	slog.Info("shipment created",
		"draft_id", d.ID, "shipment_id", created.ID, "direction", d.Direction)

	return &Confirmation{
		ShipmentID:     created.ID,
		TrackingNumber: created.TrackingNumber,
	}, nil
}

func (s *Submitter) buildForm(ctx context.Context, d *Draft) (*pricing.ShipmentForm, error) {
	form := &pricing.ShipmentForm{Fields: map[string]string{}}

	form.Fields["direction"] = string(d.Direction)
	form.Fields["language"] = string(d.Lang)
	types := make([]string, len(d.ShipmentTypes))
	for i, st := range d.ShipmentTypes {
		types[i] = string(st)
	}
	form.Fields["shipment_types"] = strings.Join(types, ",")

	if err := putJSON(form.Fields, "sender", d.Sender); err != nil {
		return nil, err
	}
	if err := putJSON(form.Fields, "receiver", d.Receiver); err != nil {
		return nil, err
	}

	lines := make([]pricing.ParcelLine, 0, len(d.Parcels))
	for i := range d.Parcels {
		lines = append(lines, parcelLine(&d.Parcels[i]))
	}
	if err := putJSON(form.Fields, "parcels", lines); err != nil {
		return nil, err
	}

	form.Fields["wants_insurance"] = strconv.FormatBool(d.WantsInsurance)
	if d.DeclaredShipmentValue > 0 {
		form.Fields["declared_value"] = strconv.FormatFloat(d.DeclaredShipmentValue, 'f', 2, 64)
	}
	if d.Transport != nil {
		if err := putJSON(form.Fields, "transport", d.Transport); err != nil {
			return nil, err
		}
	}
	form.Fields["payment_method"] = string(d.Payment.Method)
	if d.Payment.Method == PaymentInternalTransfer {
		form.Fields["transfer_sender_name"] = d.Payment.TransferSenderName
		form.Fields["transfer_reference"] = d.Payment.TransferReference
	}
	form.Fields["accepted_terms"] = strconv.FormatBool(d.AcceptedTerms)
	form.Fields["accepted_policies"] = strconv.FormatBool(d.AcceptedPolicies)

	for i := range d.Parcels {
		p := &d.Parcels[i]
		for j, photoID := range p.PhotoIDs {
			field := fmt.Sprintf("parcel_%d_photo_%d", i, j)
			if err := s.attach(ctx, form, field, photoID); err != nil {
				return nil, err
			}
		}
		if p.IsElectronics() && p.Electronics.PictureID != nil {
			field := fmt.Sprintf("parcel_%d_device_picture", i)
			if err := s.attach(ctx, form, field, *p.Electronics.PictureID); err != nil {
				return nil, err
			}
		}
	}
	if d.Payment.TransferSlipID != nil {
		if err := s.attach(ctx, form, "transfer_slip", *d.Payment.TransferSlipID); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func (s *Submitter) attach(ctx context.Context, form *pricing.ShipmentForm, field string, id uuid.UUID) error {
	content, filename, contentType, err := s.files.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load upload %s for field %s: %w", id, field, err)
	}
	form.Files = append(form.Files, pricing.FilePart{
		Field:       field,
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	})
	return nil
}

func parcelLine(p *Parcel) pricing.ParcelLine {
	line := pricing.ParcelLine{
		ProductCategoryID: p.CategoryID,
		CustomProduct:     p.CustomProduct,
		PackagingTypeID:   p.PackagingID,
		Weight:            p.WeightKG,
		CBM:               p.CBM,
		Quantity:          p.Quantity,
		RepeatCount:       p.RepeatCount,
		IsElectronics:     p.IsElectronics(),
		DeclaredValue:     p.DeclaredValue,
	}
	if p.IsElectronics() {
		line.CustomProduct = p.Electronics.Name
		line.DeclaredValue = p.Electronics.DeclaredValue
	}
	return line
}

func putJSON(fields map[string]string, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	fields[key] = string(raw)
	return nil
}
