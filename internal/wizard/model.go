package wizard

import (
	"time"

	"github.com/google/uuid"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// Direction is the trade direction of a shipment.
type Direction string

const (
	DirectionEUToSyria Direction = "EU_TO_SY"
	DirectionSyriaToEU Direction = "SY_TO_EU"
)

// ShipmentType tags a draft with the kinds of goods being shipped. Multiple
// types can apply; each toggles optional field groups on parcels.
type ShipmentType string

const (
	ShipmentTypeParcelLCL   ShipmentType = "PARCEL_LCL"
	ShipmentTypeElectronics ShipmentType = "ELECTRONICS"
	ShipmentTypeLargeItems  ShipmentType = "LARGE_ITEMS"
	ShipmentTypeBusinessLCL ShipmentType = "BUSINESS_LCL"
)

// PartyRole distinguishes the two ends of a shipment.
type PartyRole string

const (
	RoleSender   PartyRole = "sender"
	RoleReceiver PartyRole = "receiver"
)

// EUResidence is the EU-side address tail of a party. The ID number is
// optional on this side (GDPR-light).
type EUResidence struct {
	Country  string `json:"country"`
	IDNumber string `json:"idNumber,omitempty"`
}

// SYResidence is the Syria-side address tail of a party. The ID or passport
// number is required on this side.
type SYResidence struct {
	Province string `json:"province"`
	IDNumber string `json:"idNumber"`
}

// Party is one end of the shipment. Exactly one of EU or SY must be set,
// determined by the draft direction and the party's role, never both.
type Party struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Street       string `json:"street"`
	StreetNumber string `json:"streetNumber"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`

	EU *EUResidence `json:"eu,omitempty"`
	SY *SYResidence `json:"sy,omitempty"`
}

// ResidenceSide names which residence shape a party carries.
type ResidenceSide string

const (
	SideEU ResidenceSide = "EU"
	SideSY ResidenceSide = "SY"
)

// ExpectedSide returns which residence shape a role must carry for a
// direction: the EU party is the sender when shipping to Syria and the
// receiver when shipping from it.
func ExpectedSide(direction Direction, role PartyRole) ResidenceSide {
	if (direction == DirectionEUToSyria) == (role == RoleSender) {
		return SideEU
	}
	return SideSY
}

// ElectronicsInfo is the electronics-shipment variant of a parcel. A parcel
// carrying it has no dimensions, weight or content photos; insurance is
// always on and the declared value drives the premium.
type ElectronicsInfo struct {
	Name          string     `json:"name"`
	PictureID     *uuid.UUID `json:"pictureId,omitempty"`
	DeclaredValue float64    `json:"declaredValue"`
}

// Parcel is one physical item group in the draft.
type Parcel struct {
	ID uuid.UUID `json:"id"`

	LengthCM float64 `json:"lengthCm"`
	WidthCM  float64 `json:"widthCm"`
	HeightCM float64 `json:"heightCm"`
	WeightKG float64 `json:"weightKg"`

	// CBM is only meaningful right after a successful backend round trip
	// for the current dimension triple. Any dimension change resets it to 0
	// until the next recompute; a failed recompute also stores 0.
	CBM float64 `json:"cbm"`

	CategoryID    *int64 `json:"categoryId,omitempty"`
	CustomProduct string `json:"customProduct,omitempty"`
	PackagingID   *int64 `json:"packagingId,omitempty"`

	Quantity int `json:"quantity"`
	// RepeatCount multiplies this parcel's effect at pricing and submission
	// time. It never materializes extra Parcel entries.
	RepeatCount int `json:"repeatCount"`

	PhotoIDs []uuid.UUID `json:"photoIds,omitempty"`

	// Electronics switches the parcel to its electronics-shipment variant.
	Electronics *ElectronicsInfo `json:"electronics,omitempty"`

	WantsInsurance bool    `json:"wantsInsurance"`
	DeclaredValue  float64 `json:"declaredValue,omitempty"`
}

// NewParcel creates a standard parcel with a fresh id and sane multipliers.
func NewParcel() Parcel {
	return Parcel{ID: uuid.New(), Quantity: 1, RepeatCount: 1}
}

// NewElectronicsParcel creates a parcel in its electronics variant.
// Insurance is forced on and cannot be disabled.
func NewElectronicsParcel(name string, declaredValue float64) Parcel {
	return Parcel{
		ID:          uuid.New(),
		Quantity:    1,
		RepeatCount: 1,
		Electronics: &ElectronicsInfo{
			Name:          name,
			DeclaredValue: declaredValue,
		},
		WantsInsurance: true,
	}
}

// IsElectronics reports whether the parcel uses the electronics variant.
func (p *Parcel) IsElectronics() bool {
	return p.Electronics != nil
}

// SetDimensions updates the dimension triple and invalidates the derived
// cbm until the next successful recompute.
func (p *Parcel) SetDimensions(lengthCM, widthCM, heightCM float64) {
	if p.LengthCM == lengthCM && p.WidthCM == widthCM && p.HeightCM == heightCM {
		return
	}
	p.LengthCM = lengthCM
	p.WidthCM = widthCM
	p.HeightCM = heightCM
	p.CBM = 0
}

// EUPickup is the optional courier pickup/delivery address block on the EU
// leg of the internal transport.
type EUPickup struct {
	Street       string  `json:"street"`
	StreetNumber string  `json:"streetNumber"`
	City         string  `json:"city"`
	PostalCode   string  `json:"postalCode"`
	Country      string  `json:"country"`
	WeightKG     float64 `json:"weightKg"`
}

// QuoteReady reports whether the pickup block is complete enough to request
// a live courier rate.
func (e *EUPickup) QuoteReady() bool {
	return e.Street != "" && e.City != "" && e.PostalCode != "" && e.Country != "" && e.WeightKG > 0
}

// TransportPlan is the optional internal transport of the draft.
type TransportPlan struct {
	EUPickup         *EUPickup `json:"euPickup,omitempty"`
	ShippingMethodID *int64    `json:"shippingMethodId,omitempty"`

	SYProvinceCode string  `json:"syProvinceCode,omitempty"`
	SYWeightKG     float64 `json:"syWeightKg,omitempty"`
}

// PaymentMethod is the chosen way to pay for a shipment.
type PaymentMethod string

const (
	PaymentStripe           PaymentMethod = "stripe"
	PaymentCash             PaymentMethod = "cash"
	PaymentInternalTransfer PaymentMethod = "internal_transfer"
)

// PaymentInfo holds the chosen method plus the transfer evidence required
// for internal transfers.
type PaymentInfo struct {
	Method             PaymentMethod `json:"method,omitempty"`
	TransferSenderName string        `json:"transferSenderName,omitempty"`
	TransferReference  string        `json:"transferReference,omitempty"`
	TransferSlipID     *uuid.UUID    `json:"transferSlipId,omitempty"`
}

// Draft is the root aggregate of the wizard: everything the customer has
// entered so far. It lives in the session store until the final submission
// consumes it.
type Draft struct {
	ID   uuid.UUID   `json:"id"`
	Lang locale.Lang `json:"lang"`

	Direction     Direction      `json:"direction,omitempty"`
	ShipmentTypes []ShipmentType `json:"shipmentTypes,omitempty"`

	Sender   *Party `json:"sender,omitempty"`
	Receiver *Party `json:"receiver,omitempty"`

	Parcels []Parcel `json:"parcels,omitempty"`

	// Pricing is the backend's verdict, display data only.
	Pricing *pricing.PricingResult `json:"pricing,omitempty"`

	WantsInsurance        bool    `json:"wantsInsurance"`
	DeclaredShipmentValue float64 `json:"declaredShipmentValue,omitempty"`

	Transport *TransportPlan `json:"transport,omitempty"`
	Payment   PaymentInfo    `json:"payment"`

	AcceptedTerms    bool `json:"acceptedTerms"`
	AcceptedPolicies bool `json:"acceptedPolicies"`

	Step Step `json:"step"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDraft creates an empty draft positioned at the first step.
func NewDraft(lang locale.Lang) *Draft {
	now := time.Now().UTC()
	return &Draft{
		ID:        uuid.New(),
		Lang:      lang,
		Step:      StepDirection,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Party returns the party for a role, creating it on first access.
func (d *Draft) Party(role PartyRole) *Party {
	if role == RoleSender {
		if d.Sender == nil {
			d.Sender = &Party{}
		}
		return d.Sender
	}
	if d.Receiver == nil {
		d.Receiver = &Party{}
	}
	return d.Receiver
}

// FindParcel returns the parcel with the given id, or nil.
func (d *Draft) FindParcel(id uuid.UUID) *Parcel {
	for i := range d.Parcels {
		if d.Parcels[i].ID == id {
			return &d.Parcels[i]
		}
	}
	return nil
}

// InvalidatePricing drops a stale pricing result. Called whenever parcels
// or insurance inputs change after a price was fetched.
func (d *Draft) InvalidatePricing() {
	d.Pricing = nil
}
