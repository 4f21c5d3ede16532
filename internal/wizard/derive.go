package wizard

import (
	"context"
	"log/slog"
	"math"

	"github.com/levantcargo/shipdesk/internal/metrics"
)

// CBMCalculator computes the volumetric size of a parcel. The backend owns
// the formula; the wizard never computes volumes locally.
type CBMCalculator interface {
	CalculateCBM(ctx context.Context, lengthCM, widthCM, heightCM float64) (float64, error)
}

// RecomputeCBM refreshes a parcel's cbm from the backend. On any failure
// the parcel keeps cbm 0 and the flow continues: the value is advisory
// display data and the final price is computed server-side anyway. The
// failure is logged and counted so drift stays visible in operations.
func RecomputeCBM(ctx context.Context, calc CBMCalculator, p *Parcel) {
	p.CBM = 0
	if p.IsElectronics() {
		return
	}
	cbm, err := calc.CalculateCBM(ctx, p.LengthCM, p.WidthCM, p.HeightCM)
	if err != nil {
		metrics.CBMFailuresTotal.Inc()
		slog.Warn("cbm recompute failed, keeping zero",
			"parcel_id", p.ID, "error", err)
		return
	}
	p.CBM = cbm
}

// round2 rounds a money amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Premium computes an insurance premium preview from a declared value and
// a percentage rate, rounded to two decimals.
func Premium(declaredValue, rate float64) float64 {
	if declaredValue <= 0 || rate <= 0 {
		return 0
	}
	return round2(declaredValue * rate)
}

// InsuranceQuote is the premium preview shown on the insurance step.
type InsuranceQuote struct {
	Forced          bool    `json:"forced"`
	OptionalRate    float64 `json:"optionalRate"`
	ElectronicsRate float64 `json:"electronicsRate"`
	// OptionalPremium covers the declared shipment value of the standard
	// parcels; ElectronicsPremium covers the per-device declared values.
	OptionalPremium    float64 `json:"optionalPremium"`
	ElectronicsPremium float64 `json:"electronicsPremium"`
	Total              float64 `json:"total"`
}

// QuoteInsurance derives the insurance preview for a draft using the
// backend-sourced rates. Electronics devices are always covered at the
// electronics rate; the rest of the shipment is covered at the optional
// rate when the customer opts in (or a parcel forces it).
func QuoteInsurance(d *Draft, rules *Rules) InsuranceQuote {
	rates := rules.Categories.InsuranceRates()
	q := InsuranceQuote{
		OptionalRate:    rates.OptionalRate,
		ElectronicsRate: rates.ElectronicsRate,
	}

	for i := range d.Parcels {
		p := &d.Parcels[i]
		if ParcelForcesInsurance(p, rules) {
			q.Forced = true
		}
		if p.IsElectronics() {
			repeat := p.RepeatCount
			if repeat < 1 {
				repeat = 1
			}
			q.ElectronicsPremium += Premium(p.Electronics.DeclaredValue, rates.ElectronicsRate) * float64(repeat)
		}
	}

	if d.WantsInsurance || q.Forced {
		q.OptionalPremium = Premium(d.DeclaredShipmentValue, rates.OptionalRate)
	}
	q.ElectronicsPremium = round2(q.ElectronicsPremium)
	q.Total = round2(q.OptionalPremium + q.ElectronicsPremium)
	return q
}
