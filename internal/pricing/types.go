package pricing

import "encoding/json"

// MinimumUnit is how the backend expresses the minimum-shipment rule of a
// price entry.
type MinimumUnit string

const (
	MinimumUnitPerKG    MinimumUnit = "per_kg"
	MinimumUnitPerPiece MinimumUnit = "per_piece"
)

// PriceEntry is one product category row from the backend price list.
type PriceEntry struct {
	ID     int64       `json:"id"`
	NameEN string      `json:"name_en"`
	NameAR string      `json:"name_ar"`
	Unit   MinimumUnit `json:"minimum_shipping_unit"`
	// MinimumShipping is a weight in kg for per_kg entries and a piece count
	// for per_piece entries. The backend reuses one field for both units.
	MinimumShipping float64 `json:"minimum_shipping_weight"`
	PricePerUnit    float64 `json:"price_per_unit"`
	Active          bool    `json:"active"`
}

// PackagingPrice is one packaging option row from the backend.
type PackagingPrice struct {
	ID     int64   `json:"id"`
	NameEN string  `json:"name_en"`
	NameAR string  `json:"name_ar"`
	Price  float64 `json:"price"`
}

// InsuranceRates carries the authoritative insurance percentages. The
// preview rates shown during the wizard must match these exactly.
type InsuranceRates struct {
	OptionalRate    float64 `json:"optional_rate"`
	ElectronicsRate float64 `json:"electronics_rate"`
}

// ShippingMethod is one EU courier option returned by the rate proxy.
type ShippingMethod struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Carrier      string  `json:"carrier"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DeliveryDays string  `json:"delivery_days"`
}

// EUShippingRequest is the payload for the EU courier rate quote: the
// pickup address as sender, the delivery address as receiver.
type EUShippingRequest struct {
	SenderStreet       string  `json:"sender_street"`
	SenderCity         string  `json:"sender_city"`
	SenderPostalCode   string  `json:"sender_postal_code"`
	SenderCountry      string  `json:"sender_country"`
	ReceiverStreet     string  `json:"receiver_street"`
	ReceiverCity       string  `json:"receiver_city"`
	ReceiverPostalCode string  `json:"receiver_postal_code"`
	ReceiverCountry    string  `json:"receiver_country"`
	Weight             float64 `json:"weight"`
}

// ParcelLine is the pricing view of one parcel.
type ParcelLine struct {
	ProductCategoryID *int64  `json:"product_category_id,omitempty"`
	CustomProduct     string  `json:"custom_product,omitempty"`
	PackagingTypeID   *int64  `json:"packaging_type_id,omitempty"`
	Weight            float64 `json:"weight"`
	CBM               float64 `json:"cbm"`
	Quantity          int     `json:"quantity"`
	RepeatCount       int     `json:"repeat_count"`
	IsElectronics     bool    `json:"is_electronics"`
	DeclaredValue     float64 `json:"declared_value,omitempty"`
}

// PricingRequest is the payload for the pricing endpoint.
type PricingRequest struct {
	Parcels               []ParcelLine `json:"parcels"`
	Language              string       `json:"language"`
	DeclaredShipmentValue float64      `json:"declaredShipmentValue,omitempty"`
}

// PriceLine is one display row of a pricing result.
type PriceLine struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// PricingResult is the backend's pricing verdict. It is display data only;
// nothing in this service recomputes or adjusts it.
type PricingResult struct {
	GrandTotal float64     `json:"grand_total"`
	Currency   string      `json:"currency"`
	Lines      []PriceLine `json:"line_items"`

	// Raw preserves the exact response for the review screen. It is kept
	// in the serialized form so a draft reloaded from the session store
	// still has it.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// CreatedShipment is the response of the create-shipment call.
type CreatedShipment struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// ShipmentStatus is the polled view of a created shipment. The label URL
// may not exist yet right after creation.
type ShipmentStatus struct {
	ID                string  `json:"id"`
	SendcloudLabelURL *string `json:"sendcloud_label_url"`
	TrackingNumber    *string `json:"tracking_number"`
}

// CheckoutSession is the Stripe redirect handle returned by the backend.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}
