package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// fakeCalc returns a fixed cbm or error.
type fakeCalc struct {
	cbm float64
	err error
}

func (f *fakeCalc) CalculateCBM(context.Context, float64, float64, float64) (float64, error) {
	return f.cbm, f.err
}

func TestRecomputeCBM(t *testing.T) {
	t.Run("Success Stores Backend Value", func(t *testing.T) {
		p := NewParcel()
		p.SetDimensions(100, 50, 40)
		RecomputeCBM(context.Background(), &fakeCalc{cbm: 0.2}, &p)
		assert.Equal(t, 0.2, p.CBM)
	})

	t.Run("Failure Keeps Zero", func(t *testing.T) {
		p := NewParcel()
		p.SetDimensions(100, 50, 40)
		p.CBM = 0.2
		RecomputeCBM(context.Background(), &fakeCalc{err: assert.AnError}, &p)
		assert.Zero(t, p.CBM)
	})

	t.Run("Dimension Change Invalidates", func(t *testing.T) {
		p := NewParcel()
		p.SetDimensions(100, 50, 40)
		p.CBM = 0.2
		p.SetDimensions(100, 50, 41)
		assert.Zero(t, p.CBM)
	})

	t.Run("Unchanged Dimensions Keep CBM", func(t *testing.T) {
		p := NewParcel()
		p.SetDimensions(100, 50, 40)
		p.CBM = 0.2
		p.SetDimensions(100, 50, 40)
		assert.Equal(t, 0.2, p.CBM)
	})
}

func TestPremium(t *testing.T) {
	assert.Equal(t, 15.0, Premium(1000, 0.015))
	assert.Equal(t, 10.0, Premium(1000, 0.01))
	assert.Equal(t, 1.88, Premium(125, 0.015)) // 1.875 rounds up
	assert.Zero(t, Premium(0, 0.015))
	assert.Zero(t, Premium(-5, 0.015))
}

func TestQuoteInsurance(t *testing.T) {
	rules := testRules()

	t.Run("Optional Coverage", func(t *testing.T) {
		d := NewDraft(locale.LangEnglish)
		d.Parcels = []Parcel{validStandardParcel(1)}
		d.WantsInsurance = true
		d.DeclaredShipmentValue = 1000

		q := QuoteInsurance(d, rules)
		assert.False(t, q.Forced)
		assert.Equal(t, 15.0, q.OptionalPremium)
		assert.Equal(t, 15.0, q.Total)
	})

	t.Run("Electronics Always Covered", func(t *testing.T) {
		d := NewDraft(locale.LangEnglish)
		device := NewElectronicsParcel("MacBook Air", 1200)
		d.Parcels = []Parcel{device}

		q := QuoteInsurance(d, rules)
		assert.True(t, q.Forced)
		assert.Equal(t, 12.0, q.ElectronicsPremium)
	})

	t.Run("Repeat Count Multiplies Device Premium", func(t *testing.T) {
		d := NewDraft(locale.LangEnglish)
		device := NewElectronicsParcel("Phone", 500)
		device.RepeatCount = 3
		d.Parcels = []Parcel{device}

		q := QuoteInsurance(d, rules)
		assert.Equal(t, 15.0, q.ElectronicsPremium)
	})

	t.Run("Rates Come From The Directory", func(t *testing.T) {
		custom := &Rules{Categories: &fakeCategories{
			rates: pricing.InsuranceRates{OptionalRate: 0.02, ElectronicsRate: 0.012},
		}}
		d := NewDraft(locale.LangEnglish)
		d.WantsInsurance = true
		d.DeclaredShipmentValue = 100

		q := QuoteInsurance(d, custom)
		assert.Equal(t, 0.02, q.OptionalRate)
		assert.Equal(t, 2.0, q.OptionalPremium)
	})
}
