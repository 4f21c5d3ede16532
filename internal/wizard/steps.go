package wizard

import (
	"context"
	"fmt"

	"github.com/levantcargo/shipdesk/internal/catalog"
	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/pricing"
	"github.com/levantcargo/shipdesk/internal/validate"
)

// Step is one screen of the shipment creation flow. Steps are ordered;
// moving forward requires the current step to validate cleanly.
type Step int

const (
	StepDirection Step = iota + 1
	StepShipmentTypes
	StepSender
	StepReceiver
	StepParcels
	StepPricing
	StepInsurance
	StepTransport
	StepPayment
	StepReview
	StepConfirmation
)

const (
	FirstStep = StepDirection
	LastStep  = StepConfirmation
)

var stepNames = map[Step]string{
	StepDirection:     "direction",
	StepShipmentTypes: "shipment_types",
	StepSender:        "sender",
	StepReceiver:      "receiver",
	StepParcels:       "parcels",
	StepPricing:       "pricing",
	StepInsurance:     "insurance",
	StepTransport:     "transport",
	StepPayment:       "payment",
	StepReview:        "review",
	StepConfirmation:  "confirmation",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// StepFromName resolves a step by its wire name.
func StepFromName(name string) (Step, bool) {
	for step, n := range stepNames {
		if n == name {
			return step, true
		}
	}
	return 0, false
}

// FieldError is one localized validation failure, addressed to the field
// that caused it.
type FieldError struct {
	Field   string `json:"field"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationError aggregates the failures of one step.
type ValidationError struct {
	Step   Step         `json:"step"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s has %d invalid field(s)", e.Step, len(e.Fields))
}

// Rules bundles the lookups the step validators consult.
type Rules struct {
	Categories CategoryDirectory
	Provinces  ProvinceDirectory
}

// CategoryDirectory resolves product categories for the parcel minimum and
// insurance rules. *catalog.Catalog satisfies it.
type CategoryDirectory interface {
	Lookup(id int64) (*catalog.Entry, bool)
	InsuranceRates() pricing.InsuranceRates
}

// ProvinceDirectory answers whether a Syria province code is configured.
type ProvinceDirectory interface {
	Exists(ctx context.Context, code string) bool
}

// ValidateStep runs the validator for one step against the draft and
// returns the localized failures, empty when the step is complete.
func ValidateStep(ctx context.Context, d *Draft, step Step, rules *Rules, loc locale.Locale) []FieldError {
	switch step {
	case StepDirection:
		return validateDirection(d, loc)
	case StepShipmentTypes:
		return validateShipmentTypes(d, loc)
	case StepSender:
		return validateParty(d, RoleSender, loc)
	case StepReceiver:
		return validateParty(d, RoleReceiver, loc)
	case StepParcels:
		return validateParcels(d, rules, loc)
	case StepPricing:
		return validatePricing(d, loc)
	case StepInsurance:
		return validateInsurance(d, rules, loc)
	case StepTransport:
		return validateTransport(ctx, d, rules, loc)
	case StepPayment:
		return validatePayment(d, loc)
	case StepReview:
		return validateReview(d, loc)
	default:
		return nil
	}
}

func fieldErr(loc locale.Locale, field, key string, args ...any) FieldError {
	msg := loc.T(key)
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return FieldError{Field: field, Key: key, Message: msg}
}

func validateDirection(d *Draft, loc locale.Locale) []FieldError {
	switch d.Direction {
	case DirectionEUToSyria, DirectionSyriaToEU:
		return nil
	default:
		return []FieldError{fieldErr(loc, "direction", locale.KeyRequired)}
	}
}

var knownShipmentTypes = map[ShipmentType]bool{
	ShipmentTypeParcelLCL:   true,
	ShipmentTypeElectronics: true,
	ShipmentTypeLargeItems:  true,
	ShipmentTypeBusinessLCL: true,
}

func validateShipmentTypes(d *Draft, loc locale.Locale) []FieldError {
	if len(d.ShipmentTypes) == 0 {
		return []FieldError{fieldErr(loc, "shipmentTypes", locale.KeyRequired)}
	}
	for _, st := range d.ShipmentTypes {
		if !knownShipmentTypes[st] {
			return []FieldError{fieldErr(loc, "shipmentTypes", locale.KeyRequired)}
		}
	}
	return nil
}

func validateParty(d *Draft, role PartyRole, loc locale.Locale) []FieldError {
	prefix := string(role) + "."
	party := d.Sender
	if role == RoleReceiver {
		party = d.Receiver
	}
	if party == nil {
		return []FieldError{fieldErr(loc, prefix+"fullName", locale.KeyRequired)}
	}

	var errs []FieldError
	if !validate.NotBlank(party.FullName) {
		errs = append(errs, fieldErr(loc, prefix+"fullName", locale.KeyRequired))
	}
	if !validate.Phone(party.Phone) {
		errs = append(errs, fieldErr(loc, prefix+"phone", locale.KeyInvalidPhone))
	}
	if party.Email != "" && !validate.Email(party.Email) {
		errs = append(errs, fieldErr(loc, prefix+"email", locale.KeyInvalidEmail))
	}
	if !validate.NotBlank(party.Street) {
		errs = append(errs, fieldErr(loc, prefix+"street", locale.KeyRequired))
	}
	if !validate.NotBlank(party.City) {
		errs = append(errs, fieldErr(loc, prefix+"city", locale.KeyRequired))
	}

	switch ExpectedSide(d.Direction, role) {
	case SideEU:
		if party.EU == nil || party.SY != nil {
			errs = append(errs, fieldErr(loc, prefix+"residence", locale.KeyRequired))
			break
		}
		if !validate.NotBlank(party.EU.Country) {
			errs = append(errs, fieldErr(loc, prefix+"country", locale.KeyRequired))
		}
		if !validate.PostalCode(party.PostalCode) {
			errs = append(errs, fieldErr(loc, prefix+"postalCode", locale.KeyInvalidPostalCode))
		}
	case SideSY:
		if party.SY == nil || party.EU != nil {
			errs = append(errs, fieldErr(loc, prefix+"residence", locale.KeyRequired))
			break
		}
		if !validate.NotBlank(party.SY.Province) {
			errs = append(errs, fieldErr(loc, prefix+"province", locale.KeyRequired))
		}
		if !validate.NotBlank(party.SY.IDNumber) {
			errs = append(errs, fieldErr(loc, prefix+"idNumber", locale.KeyIDNumberRequired))
		}
	}
	return errs
}

func validateParcels(d *Draft, rules *Rules, loc locale.Locale) []FieldError {
	if len(d.Parcels) == 0 {
		return []FieldError{fieldErr(loc, "parcels", locale.KeyNoParcels)}
	}

	var errs []FieldError
	for i := range d.Parcels {
		p := &d.Parcels[i]
		prefix := fmt.Sprintf("parcels.%d.", i)

		if p.IsElectronics() {
			errs = append(errs, validateElectronicsParcel(p, prefix, loc)...)
			continue
		}

		if !validate.Dimension(p.LengthCM) {
			errs = append(errs, fieldErr(loc, prefix+"lengthCm", locale.KeyInvalidNumber))
		}
		if !validate.Dimension(p.WidthCM) {
			errs = append(errs, fieldErr(loc, prefix+"widthCm", locale.KeyInvalidNumber))
		}
		if !validate.Dimension(p.HeightCM) {
			errs = append(errs, fieldErr(loc, prefix+"heightCm", locale.KeyInvalidNumber))
		}
		if !validate.Weight(p.WeightKG) {
			errs = append(errs, fieldErr(loc, prefix+"weightKg", locale.KeyInvalidNumber))
		}
		if !validate.PositiveInt(p.Quantity) {
			errs = append(errs, fieldErr(loc, prefix+"quantity", locale.KeyInvalidNumber))
		}
		if !validate.PositiveInt(p.RepeatCount) {
			errs = append(errs, fieldErr(loc, prefix+"repeatCount", locale.KeyInvalidNumber))
		}
		if p.CategoryID == nil && !validate.NotBlank(p.CustomProduct) {
			errs = append(errs, fieldErr(loc, prefix+"category", locale.KeyRequired))
		}
		if len(p.PhotoIDs) == 0 {
			errs = append(errs, fieldErr(loc, prefix+"photos", locale.KeyPhotosRequired))
		}

		// Minimum-shipment rule from the price list: weight for per-kg
		// categories, piece count for per-piece ones, boundaries inclusive.
		if p.CategoryID != nil && rules != nil && rules.Categories != nil {
			if entry, ok := rules.Categories.Lookup(*p.CategoryID); ok {
				if !entry.MinimumSatisfied(p.WeightKG, p.Quantity) {
					switch {
					case entry.Unit == pricing.MinimumUnitPerPiece:
						errs = append(errs, fieldErr(loc, prefix+"quantity", locale.KeyMinQuantity, entry.Minimum))
					default:
						errs = append(errs, fieldErr(loc, prefix+"weightKg", locale.KeyMinWeight, entry.Minimum))
					}
				}
			}
		}
	}
	return errs
}

func validateElectronicsParcel(p *Parcel, prefix string, loc locale.Locale) []FieldError {
	var errs []FieldError
	if !validate.NotBlank(p.Electronics.Name) {
		errs = append(errs, fieldErr(loc, prefix+"electronics.name", locale.KeyRequired))
	}
	if p.Electronics.PictureID == nil {
		errs = append(errs, fieldErr(loc, prefix+"electronics.picture", locale.KeyPhotosRequired))
	}
	if !validate.Positive(p.Electronics.DeclaredValue) {
		errs = append(errs, fieldErr(loc, prefix+"electronics.declaredValue", locale.KeyDeclaredValue))
	}
	// Insurance is structural for electronics; it cannot be opted out of.
	if !p.WantsInsurance {
		errs = append(errs, fieldErr(loc, prefix+"wantsInsurance", locale.KeyRequired))
	}
	return errs
}

func validatePricing(d *Draft, loc locale.Locale) []FieldError {
	if d.Pricing == nil {
		return []FieldError{fieldErr(loc, "pricing", locale.KeyPricingFailed)}
	}
	return nil
}

func validateInsurance(d *Draft, rules *Rules, loc locale.Locale) []FieldError {
	var errs []FieldError

	forced := false
	for i := range d.Parcels {
		if ParcelForcesInsurance(&d.Parcels[i], rules) {
			forced = true
			break
		}
	}
	if forced && !d.WantsInsurance {
		errs = append(errs, fieldErr(loc, "wantsInsurance", locale.KeyRequired))
	}
	if d.WantsInsurance && !validate.Positive(d.DeclaredShipmentValue) && !allElectronics(d) {
		errs = append(errs, fieldErr(loc, "declaredShipmentValue", locale.KeyDeclaredValue))
	}
	return errs
}

func allElectronics(d *Draft) bool {
	if len(d.Parcels) == 0 {
		return false
	}
	for i := range d.Parcels {
		if !d.Parcels[i].IsElectronics() {
			return false
		}
	}
	return true
}

// ParcelForcesInsurance reports whether the parcel's content makes
// insurance mandatory: the electronics variant always does, and standard
// parcels do when their category (or free-text product) names a phone or
// laptop.
func ParcelForcesInsurance(p *Parcel, rules *Rules) bool {
	if p.IsElectronics() {
		return true
	}
	if p.CategoryID != nil && rules != nil && rules.Categories != nil {
		if entry, ok := rules.Categories.Lookup(*p.CategoryID); ok && entry.InsuranceForced() {
			return true
		}
	}
	return catalog.LabelForcesInsurance(p.CustomProduct)
}

func validateTransport(ctx context.Context, d *Draft, rules *Rules, loc locale.Locale) []FieldError {
	if d.Transport == nil {
		// Internal transport is optional end to end.
		return nil
	}

	var errs []FieldError
	t := d.Transport
	if t.EUPickup != nil {
		if !validate.NotBlank(t.EUPickup.Street) {
			errs = append(errs, fieldErr(loc, "transport.euPickup.street", locale.KeyRequired))
		}
		if !validate.NotBlank(t.EUPickup.City) {
			errs = append(errs, fieldErr(loc, "transport.euPickup.city", locale.KeyRequired))
		}
		if !validate.PostalCode(t.EUPickup.PostalCode) {
			errs = append(errs, fieldErr(loc, "transport.euPickup.postalCode", locale.KeyInvalidPostalCode))
		}
		if !validate.NotBlank(t.EUPickup.Country) {
			errs = append(errs, fieldErr(loc, "transport.euPickup.country", locale.KeyRequired))
		}
		if !validate.Positive(t.EUPickup.WeightKG) {
			errs = append(errs, fieldErr(loc, "transport.euPickup.weightKg", locale.KeyInvalidNumber))
		}
		// A pickup address without a chosen courier rate is half a booking.
		if t.ShippingMethodID == nil && len(errs) == 0 {
			errs = append(errs, fieldErr(loc, "transport.shippingMethodId", locale.KeyShippingMethodNeeded))
		}
	}
	if t.SYProvinceCode != "" {
		if rules != nil && rules.Provinces != nil && !rules.Provinces.Exists(ctx, t.SYProvinceCode) {
			errs = append(errs, fieldErr(loc, "transport.syProvinceCode", locale.KeyUnknownProvince))
		}
		if !validate.Positive(t.SYWeightKG) {
			errs = append(errs, fieldErr(loc, "transport.syWeightKg", locale.KeyInvalidNumber))
		}
	}
	return errs
}

func validatePayment(d *Draft, loc locale.Locale) []FieldError {
	switch d.Payment.Method {
	case PaymentStripe, PaymentCash:
		return nil
	case PaymentInternalTransfer:
		if !validate.NotBlank(d.Payment.TransferSenderName) ||
			!validate.NotBlank(d.Payment.TransferReference) ||
			d.Payment.TransferSlipID == nil {
			return []FieldError{fieldErr(loc, "payment", locale.KeyTransferEvidence)}
		}
		return nil
	default:
		return []FieldError{fieldErr(loc, "payment.method", locale.KeyRequired)}
	}
}

func validateReview(d *Draft, loc locale.Locale) []FieldError {
	var errs []FieldError
	if !d.AcceptedTerms {
		errs = append(errs, fieldErr(loc, "acceptedTerms", locale.KeyAcceptTerms))
	}
	if !d.AcceptedPolicies {
		errs = append(errs, fieldErr(loc, "acceptedPolicies", locale.KeyAcceptPolicies))
	}
	return errs
}
