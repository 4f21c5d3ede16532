package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// fakeSource serves canned backend responses for refresh tests.
type fakeSource struct {
	regular  []pricing.PriceEntry
	perPiece []pricing.PriceEntry
	rates    *pricing.InsuranceRates
	ratesErr error
}

func (f *fakeSource) RegularProducts(context.Context) ([]pricing.PriceEntry, error) {
	return f.regular, nil
}

func (f *fakeSource) PerPieceProducts(context.Context) ([]pricing.PriceEntry, error) {
	return f.perPiece, nil
}

func (f *fakeSource) PackagingPrices(context.Context) ([]pricing.PackagingPrice, error) {
	return []pricing.PackagingPrice{{ID: 1, NameEN: "Carton box", Price: 2.5}}, nil
}

func (f *fakeSource) GetInsuranceRates(context.Context) (*pricing.InsuranceRates, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

func newMemoryCatalog(t *testing.T) *Catalog {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	c, err := New(db)
	require.NoError(t, err)
	return c
}

func testEntries() []pricing.PriceEntry {
	return []pricing.PriceEntry{
		{ID: 1, NameEN: "Clothes", NameAR: "ملابس", Unit: pricing.MinimumUnitPerKG, MinimumShipping: 1, Active: true},
		{ID: 2, NameEN: "Mobile phone", NameAR: "موبايل", Unit: pricing.MinimumUnitPerPiece, MinimumShipping: 1, Active: true},
	}
}

func TestRefreshPersistsAndReloads(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	c, err := New(db)
	require.NoError(t, err)

	src := &fakeSource{
		regular:  testEntries()[:1],
		perPiece: testEntries()[1:],
		rates:    &pricing.InsuranceRates{OptionalRate: 0.02, ElectronicsRate: 0.012},
	}
	require.NoError(t, c.Refresh(context.Background(), src))

	assert.Len(t, c.Entries(), 2)
	assert.Len(t, c.Packaging(), 1)
	assert.Equal(t, 0.02, c.InsuranceRates().OptionalRate)

	// A second catalog over the same database sees the persisted mirror.
	reloaded, err := New(db)
	require.NoError(t, err)
	assert.Len(t, reloaded.Entries(), 2)
}

func TestRefreshKeepsRatesOnFetchFailure(t *testing.T) {
	c := newMemoryCatalog(t)
	src := &fakeSource{regular: testEntries(), ratesErr: assert.AnError}

	require.NoError(t, c.Refresh(context.Background(), src))

	// Defaults survive a failed rates fetch.
	assert.Equal(t, DefaultOptionalRate, c.InsuranceRates().OptionalRate)
	assert.Equal(t, DefaultElectronicsRate, c.InsuranceRates().ElectronicsRate)
}

func TestMinimumSatisfied(t *testing.T) {
	perKG := Entry{Unit: pricing.MinimumUnitPerKG, Minimum: 5}
	perPiece := Entry{Unit: pricing.MinimumUnitPerPiece, Minimum: 3}

	t.Run("Per KG Boundary Inclusive", func(t *testing.T) {
		assert.False(t, perKG.MinimumSatisfied(4.9, 1))
		assert.True(t, perKG.MinimumSatisfied(5, 1))
		assert.True(t, perKG.MinimumSatisfied(5.1, 1))
	})

	t.Run("Per Piece Uses Quantity", func(t *testing.T) {
		assert.False(t, perPiece.MinimumSatisfied(100, 2))
		assert.True(t, perPiece.MinimumSatisfied(0.5, 3))
	})
}

func TestInsuranceForced(t *testing.T) {
	cases := []struct {
		label  string
		forced bool
	}{
		{"Mobile phone", true},
		{"LAPTOP sleeve", true},
		{"موبايل سامسونج", true},
		{"جوال", true},
		{"Clothes", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.forced, LabelForcesInsurance(tc.label), "label %q", tc.label)
	}
}

func TestSearch(t *testing.T) {
	c := newMemoryCatalog(t)
	src := &fakeSource{regular: testEntries(), rates: &pricing.InsuranceRates{OptionalRate: 0.015, ElectronicsRate: 0.01}}
	require.NoError(t, c.Refresh(context.Background(), src))

	t.Run("English Substring", func(t *testing.T) {
		matches := c.Search("clo", locale.LangEnglish, 10)
		require.Len(t, matches, 1)
		assert.Equal(t, "Clothes", matches[0].Label)
	})

	t.Run("Arabic Label", func(t *testing.T) {
		matches := c.Search("موبايل", locale.LangArabic, 10)
		require.Len(t, matches, 1)
		assert.Equal(t, int64(2), matches[0].Entry.ID)
	})

	t.Run("No Match Means Free Text Fallback", func(t *testing.T) {
		assert.Empty(t, c.Search("piano", locale.LangEnglish, 10))
	})

	t.Run("Inactive Entries Hidden", func(t *testing.T) {
		require.NoError(t, c.SetActive(1, false))
		assert.Empty(t, c.Search("clo", locale.LangEnglish, 10))
		assert.Len(t, c.Entries(), 1)
	})
}
