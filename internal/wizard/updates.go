package wizard

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Per-step request bodies. go-playground/validator covers the structural
// shape; the step validators in steps.go own the domain rules.

type directionUpdate struct {
	Direction string `json:"direction" validate:"required,oneof=EU_TO_SY SY_TO_EU"`
}

type shipmentTypesUpdate struct {
	ShipmentTypes []string `json:"shipmentTypes" validate:"required,min=1,dive,oneof=PARCEL_LCL ELECTRONICS LARGE_ITEMS BUSINESS_LCL"`
}

type residenceUpdate struct {
	Country  string `json:"country" validate:"omitempty,len=2"`
	Province string `json:"province" validate:"omitempty,max=64"`
	IDNumber string `json:"idNumber" validate:"omitempty,max=64"`
}

type partyUpdate struct {
	FullName     string           `json:"fullName" validate:"required,max=255"`
	Phone        string           `json:"phone" validate:"required,max=32"`
	Email        string           `json:"email" validate:"omitempty,email"`
	Street       string           `json:"street" validate:"required,max=255"`
	StreetNumber string           `json:"streetNumber" validate:"omitempty,max=32"`
	City         string           `json:"city" validate:"required,max=128"`
	PostalCode   string           `json:"postalCode" validate:"omitempty,max=16"`
	Residence    *residenceUpdate `json:"residence"`
}

type electronicsUpdate struct {
	Name          string  `json:"name" validate:"required,max=255"`
	PictureID     *string `json:"pictureId" validate:"omitempty,uuid"`
	DeclaredValue float64 `json:"declaredValue" validate:"required,gt=0"`
}

type parcelUpdate struct {
	ID            string             `json:"id" validate:"omitempty,uuid"`
	LengthCM      float64            `json:"lengthCm" validate:"omitempty,gt=0"`
	WidthCM       float64            `json:"widthCm" validate:"omitempty,gt=0"`
	HeightCM      float64            `json:"heightCm" validate:"omitempty,gt=0"`
	WeightKG      float64            `json:"weightKg" validate:"omitempty,gt=0"`
	CategoryID    *int64             `json:"categoryId" validate:"omitempty,gt=0"`
	CustomProduct string             `json:"customProduct" validate:"omitempty,max=255"`
	PackagingID   *int64             `json:"packagingId" validate:"omitempty,gt=0"`
	Quantity      int                `json:"quantity" validate:"omitempty,gte=1"`
	RepeatCount   int                `json:"repeatCount" validate:"omitempty,gte=1,lte=100"`
	PhotoIDs      []string           `json:"photoIds" validate:"omitempty,dive,uuid"`
	Electronics   *electronicsUpdate `json:"electronics"`
	Insurance     bool               `json:"wantsInsurance"`
	DeclaredValue float64            `json:"declaredValue" validate:"omitempty,gte=0"`
}

type parcelsUpdate struct {
	Parcels []parcelUpdate `json:"parcels" validate:"required,min=1,max=50,dive"`
}

type insuranceUpdate struct {
	WantsInsurance bool    `json:"wantsInsurance"`
	DeclaredValue  float64 `json:"declaredValue" validate:"omitempty,gte=0"`
}

type euPickupUpdate struct {
	Street       string  `json:"street" validate:"required,max=255"`
	StreetNumber string  `json:"streetNumber" validate:"omitempty,max=32"`
	City         string  `json:"city" validate:"required,max=128"`
	PostalCode   string  `json:"postalCode" validate:"required,max=16"`
	Country      string  `json:"country" validate:"required,len=2"`
	WeightKG     float64 `json:"weightKg" validate:"required,gt=0"`
}

type transportUpdate struct {
	EUPickup         *euPickupUpdate `json:"euPickup"`
	ShippingMethodID *int64          `json:"shippingMethodId" validate:"omitempty,gt=0"`
	SYProvinceCode   string          `json:"syProvinceCode" validate:"omitempty,max=32"`
	SYWeightKG       float64         `json:"syWeightKg" validate:"omitempty,gt=0"`
}

type paymentUpdate struct {
	Method             string  `json:"method" validate:"required,oneof=stripe cash internal_transfer"`
	TransferSenderName string  `json:"transferSenderName" validate:"omitempty,max=255"`
	TransferReference  string  `json:"transferReference" validate:"omitempty,max=128"`
	TransferSlipID     *string `json:"transferSlipId" validate:"omitempty,uuid"`
}

type reviewUpdate struct {
	AcceptedTerms    bool `json:"acceptedTerms"`
	AcceptedPolicies bool `json:"acceptedPolicies"`
}

// applyStepUpdate decodes the body for a step and writes it onto the
// draft. Data changes on already-priced drafts drop the stale price.
func (rt *Router) applyStepUpdate(draft *Draft, step Step, r *http.Request) error {
	switch step {
	case StepDirection:
		var req directionUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		draft.Direction = Direction(req.Direction)
	case StepShipmentTypes:
		var req shipmentTypesUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		draft.ShipmentTypes = draft.ShipmentTypes[:0]
		for _, st := range req.ShipmentTypes {
			draft.ShipmentTypes = append(draft.ShipmentTypes, ShipmentType(st))
		}
	case StepSender:
		return rt.applyPartyUpdate(draft, RoleSender, r)
	case StepReceiver:
		return rt.applyPartyUpdate(draft, RoleReceiver, r)
	case StepParcels:
		var req parcelsUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		rt.applyParcelsUpdate(draft, &req)
		draft.InvalidatePricing()
	case StepInsurance:
		var req insuranceUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		draft.WantsInsurance = req.WantsInsurance
		draft.DeclaredShipmentValue = req.DeclaredValue
		draft.InvalidatePricing()
	case StepTransport:
		var req transportUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		rt.applyTransportUpdate(draft, &req)
	case StepPayment:
		var req paymentUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		draft.Payment = PaymentInfo{
			Method:             PaymentMethod(req.Method),
			TransferSenderName: req.TransferSenderName,
			TransferReference:  req.TransferReference,
			TransferSlipID:     parseOptionalUUID(req.TransferSlipID),
		}
	case StepReview:
		var req reviewUpdate
		if err := rt.decodeAndValidate(r, &req); err != nil {
			return err
		}
		draft.AcceptedTerms = req.AcceptedTerms
		draft.AcceptedPolicies = req.AcceptedPolicies
	default:
		return fmt.Errorf("step %s does not accept updates", step)
	}
	return nil
}

func (rt *Router) applyPartyUpdate(draft *Draft, role PartyRole, r *http.Request) error {
	var req partyUpdate
	if err := rt.decodeAndValidate(r, &req); err != nil {
		return err
	}

	party := draft.Party(role)
	party.FullName = req.FullName
	party.Phone = req.Phone
	party.Email = req.Email
	party.Street = req.Street
	party.StreetNumber = req.StreetNumber
	party.City = req.City
	party.PostalCode = req.PostalCode

	// The residence shape follows the direction, not the client's whim.
	party.EU = nil
	party.SY = nil
	if req.Residence != nil {
		switch ExpectedSide(draft.Direction, role) {
		case SideEU:
			party.EU = &EUResidence{Country: req.Residence.Country, IDNumber: req.Residence.IDNumber}
		case SideSY:
			party.SY = &SYResidence{Province: req.Residence.Province, IDNumber: req.Residence.IDNumber}
		}
	}
	return nil
}

func (rt *Router) applyParcelsUpdate(draft *Draft, req *parcelsUpdate) {
	existing := make(map[uuid.UUID]*Parcel, len(draft.Parcels))
	for i := range draft.Parcels {
		existing[draft.Parcels[i].ID] = &draft.Parcels[i]
	}

	parcels := make([]Parcel, 0, len(req.Parcels))
	for _, pu := range req.Parcels {
		var parcel Parcel
		if id, err := uuid.Parse(pu.ID); err == nil {
			if prev, ok := existing[id]; ok {
				parcel = *prev
			} else {
				parcel = Parcel{ID: id}
			}
		} else {
			parcel = NewParcel()
		}

		if pu.Electronics != nil {
			parcel.Electronics = &ElectronicsInfo{
				Name:          pu.Electronics.Name,
				PictureID:     parseOptionalUUID(pu.Electronics.PictureID),
				DeclaredValue: pu.Electronics.DeclaredValue,
			}
			parcel.WantsInsurance = true
			parcel.LengthCM, parcel.WidthCM, parcel.HeightCM, parcel.WeightKG = 0, 0, 0, 0
			parcel.CBM = 0
		} else {
			parcel.Electronics = nil
			parcel.SetDimensions(pu.LengthCM, pu.WidthCM, pu.HeightCM)
			parcel.WeightKG = pu.WeightKG
			parcel.WantsInsurance = pu.Insurance
		}

		parcel.CategoryID = pu.CategoryID
		parcel.CustomProduct = pu.CustomProduct
		parcel.PackagingID = pu.PackagingID
		parcel.Quantity = max(pu.Quantity, 1)
		parcel.RepeatCount = max(pu.RepeatCount, 1)
		parcel.DeclaredValue = pu.DeclaredValue

		// Phones and laptops cannot waive insurance.
		if ParcelForcesInsurance(&parcel, rt.rules) {
			parcel.WantsInsurance = true
		}

		parcel.PhotoIDs = parcel.PhotoIDs[:0]
		for _, raw := range pu.PhotoIDs {
			if id, err := uuid.Parse(raw); err == nil {
				parcel.PhotoIDs = append(parcel.PhotoIDs, id)
			}
		}
		parcels = append(parcels, parcel)
	}
	draft.Parcels = parcels
}

func (rt *Router) applyTransportUpdate(draft *Draft, req *transportUpdate) {
	if req.EUPickup == nil && req.SYProvinceCode == "" {
		draft.Transport = nil
		return
	}
	plan := &TransportPlan{
		ShippingMethodID: req.ShippingMethodID,
		SYProvinceCode:   req.SYProvinceCode,
		SYWeightKG:       req.SYWeightKG,
	}
	if req.EUPickup != nil {
		plan.EUPickup = &EUPickup{
			Street:       req.EUPickup.Street,
			StreetNumber: req.EUPickup.StreetNumber,
			City:         req.EUPickup.City,
			PostalCode:   req.EUPickup.PostalCode,
			Country:      req.EUPickup.Country,
			WeightKG:     req.EUPickup.WeightKG,
		}
	}
	draft.Transport = plan
}

func (rt *Router) decodeAndValidate(r *http.Request, out any) error {
	if err := decodeBody(r, out); err != nil {
		return err
	}
	if err := rt.validate.Struct(out); err != nil {
		return err
	}
	return nil
}

func parseOptionalUUID(raw *string) *uuid.UUID {
	if raw == nil {
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil
	}
	return &id
}
