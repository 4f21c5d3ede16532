// Package catalog mirrors the backend-owned product and packaging price
// lists locally. The mirror feeds the wizard dropdowns, the per-parcel
// minimum-shipment validation and the insurance eligibility rules without a
// backend round trip per keystroke; the backend stays authoritative and the
// mirror is refreshed from it.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// Default insurance rates, used until a refresh succeeds. They must match
// the backend's authoritative rates; the refresh replaces them so the two
// cannot drift.
const (
	DefaultOptionalRate    = 0.015
	DefaultElectronicsRate = 0.01
)

// insuranceKeywords force insurance when found in a category label.
var insuranceKeywords = []string{"mobile", "laptop", "موبايل", "جوال", "لابتوب"}

// Entry is one product category in the mirror.
type Entry struct {
	ID        int64               `gorm:"primaryKey;column:id" json:"id"`
	NameEN    string              `gorm:"type:varchar(255);column:name_en;not null" json:"nameEn"`
	NameAR    string              `gorm:"type:varchar(255);column:name_ar;not null" json:"nameAr"`
	Unit      pricing.MinimumUnit `gorm:"type:varchar(20);column:unit;not null" json:"unit"`
	Minimum   float64             `gorm:"column:minimum;not null" json:"minimum"` // kg for per_kg, pieces for per_piece
	Active    bool                `gorm:"column:active;not null" json:"active"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (Entry) TableName() string {
	return "catalog_entries"
}

// Name returns the localized category label.
func (e *Entry) Name(lang locale.Lang) string {
	if lang == locale.LangArabic && e.NameAR != "" {
		return e.NameAR
	}
	return e.NameEN
}

// InsuranceForced reports whether shipments of this category must be
// insured (phones and laptops).
func (e *Entry) InsuranceForced() bool {
	return LabelForcesInsurance(e.NameEN) || LabelForcesInsurance(e.NameAR)
}

// LabelForcesInsurance reports whether a free-text category label names a
// product that must be insured.
func LabelForcesInsurance(label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range insuranceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MinimumSatisfied checks the entry's minimum-shipment rule against a
// parcel's weight and quantity. The threshold field is a weight for per_kg
// entries and a piece count for per_piece entries; both boundaries are
// inclusive.
func (e *Entry) MinimumSatisfied(weight float64, quantity int) bool {
	switch e.Unit {
	case pricing.MinimumUnitPerKG:
		return weight >= e.Minimum
	case pricing.MinimumUnitPerPiece:
		return float64(quantity) >= e.Minimum
	default:
		return true
	}
}

// PackagingOption is one packaging price in the mirror.
type PackagingOption struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	NameEN    string    `gorm:"type:varchar(255);column:name_en;not null" json:"nameEn"`
	NameAR    string    `gorm:"type:varchar(255);column:name_ar;not null" json:"nameAr"`
	Price     float64   `gorm:"column:price;not null" json:"price"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (PackagingOption) TableName() string {
	return "packaging_options"
}

// Source is the subset of the backend client the catalog refresh needs.
type Source interface {
	RegularProducts(ctx context.Context) ([]pricing.PriceEntry, error)
	PerPieceProducts(ctx context.Context) ([]pricing.PriceEntry, error)
	PackagingPrices(ctx context.Context) ([]pricing.PackagingPrice, error)
	GetInsuranceRates(ctx context.Context) (*pricing.InsuranceRates, error)
}

// Catalog holds the in-memory snapshot backed by the database mirror.
type Catalog struct {
	db *gorm.DB

	mu        sync.RWMutex
	entries   []Entry
	packaging []PackagingOption
	rates     pricing.InsuranceRates
}

// New creates a catalog over the given database. Migrations run eagerly so
// a fresh database is usable before the first refresh.
func New(db *gorm.DB) (*Catalog, error) {
	if db != nil {
		if err := db.AutoMigrate(&Entry{}, &PackagingOption{}); err != nil {
			return nil, fmt.Errorf("failed to migrate catalog tables: %w", err)
		}
	}
	c := &Catalog{
		db: db,
		rates: pricing.InsuranceRates{
			OptionalRate:    DefaultOptionalRate,
			ElectronicsRate: DefaultElectronicsRate,
		},
	}
	if db != nil {
		if err := c.loadFromDB(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) loadFromDB() error {
	var entries []Entry
	if err := c.db.Order("id").Find(&entries).Error; err != nil {
		return fmt.Errorf("failed to load catalog entries: %w", err)
	}
	var packaging []PackagingOption
	if err := c.db.Order("id").Find(&packaging).Error; err != nil {
		return fmt.Errorf("failed to load packaging options: %w", err)
	}

	c.mu.Lock()
	c.entries = entries
	c.packaging = packaging
	c.mu.Unlock()
	return nil
}

// Refresh pulls the current price lists and insurance rates from the
// backend, persists the mirror and swaps the in-memory snapshot.
func (c *Catalog) Refresh(ctx context.Context, src Source) error {
	regular, err := src.RegularProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch regular products: %w", err)
	}
	perPiece, err := src.PerPieceProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch per-piece products: %w", err)
	}
	packagingPrices, err := src.PackagingPrices(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch packaging prices: %w", err)
	}

	entries := make([]Entry, 0, len(regular)+len(perPiece))
	for _, p := range append(regular, perPiece...) {
		entries = append(entries, Entry{
			ID:      p.ID,
			NameEN:  p.NameEN,
			NameAR:  p.NameAR,
			Unit:    p.Unit,
			Minimum: p.MinimumShipping,
			Active:  p.Active,
		})
	}
	packaging := make([]PackagingOption, 0, len(packagingPrices))
	for _, p := range packagingPrices {
		packaging = append(packaging, PackagingOption{
			ID: p.ID, NameEN: p.NameEN, NameAR: p.NameAR, Price: p.Price,
		})
	}

	rates := c.InsuranceRates()
	if fetched, err := src.GetInsuranceRates(ctx); err != nil {
		// Keep serving the previous rates; the preview constants must never
		// be invented locally.
		slog.Warn("failed to refresh insurance rates, keeping current", "error", err)
	} else {
		rates = *fetched
	}

	if c.db != nil {
		err := c.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("1 = 1").Delete(&Entry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("1 = 1").Delete(&PackagingOption{}).Error; err != nil {
				return err
			}
			if len(entries) > 0 {
				if err := tx.Create(&entries).Error; err != nil {
					return err
				}
			}
			if len(packaging) > 0 {
				if err := tx.Create(&packaging).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to persist catalog mirror: %w", err)
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.packaging = packaging
	c.rates = rates
	c.mu.Unlock()

	slog.Info("catalog refreshed", "entries", len(entries), "packaging", len(packaging))
	return nil
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id int64) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			entry := c.entries[i]
			return &entry, true
		}
	}
	return nil, false
}

// Entries returns a copy of the active catalog entries.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

// Packaging returns a copy of the packaging options.
func (c *Catalog) Packaging() []PackagingOption {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PackagingOption, len(c.packaging))
	copy(out, c.packaging)
	return out
}

// InsuranceRates returns the current insurance percentages.
func (c *Catalog) InsuranceRates() pricing.InsuranceRates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates
}

// SetActive toggles a category's visibility in the wizard (admin action).
func (c *Catalog) SetActive(id int64, active bool) error {
	if c.db != nil {
		if err := c.db.Model(&Entry{}).Where("id = ?", id).Update("active", active).Error; err != nil {
			return fmt.Errorf("failed to update catalog entry %d: %w", id, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("catalog entry %d not found", id)
}

// Match is one autocomplete suggestion.
type Match struct {
	Entry *Entry
	Label string
}

// Search performs the autocomplete lookup: case-insensitive substring match
// over the localized labels. An empty result means the caller should offer
// the free-text fallback (which feeds a product request to the backend).
func (c *Catalog) Search(query string, lang locale.Lang, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []Match
	for i := range c.entries {
		e := &c.entries[i]
		if !e.Active {
			continue
		}
		label := e.Name(lang)
		if strings.Contains(strings.ToLower(label), query) ||
			strings.Contains(strings.ToLower(e.NameEN), query) {
			entry := *e
			matches = append(matches, Match{Entry: &entry, Label: label})
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}
