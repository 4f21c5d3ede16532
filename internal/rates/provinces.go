// Package rates holds the admin-configured Syria internal-transport rate
// table. The wizard uses it for an advisory price preview only; the
// authoritative price is always computed server-side by the backend at
// pricing/submission time.
package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/levantcargo/shipdesk/internal/locale"
	"github.com/levantcargo/shipdesk/utils"
)

// ProvinceRate is one province's transport pricing row.
type ProvinceRate struct {
	Code      string    `gorm:"primaryKey;type:varchar(32);column:code" json:"code"`
	NameEN    string    `gorm:"type:varchar(255);column:name_en;not null" json:"nameEn"`
	NameAR    string    `gorm:"type:varchar(255);column:name_ar;not null" json:"nameAr"`
	MinPrice  float64   `gorm:"column:min_price;not null" json:"minPrice"`
	RatePerKG float64   `gorm:"column:rate_per_kg;not null" json:"ratePerKg"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (ProvinceRate) TableName() string {
	return "province_rates"
}

// Name returns the localized province name.
func (p *ProvinceRate) Name(lang locale.Lang) string {
	if lang == locale.LangArabic && p.NameAR != "" {
		return p.NameAR
	}
	return p.NameEN
}

// Preview computes the advisory transport price for a weight in kg:
// the per-kg rate with the province minimum as a floor.
func (p *ProvinceRate) Preview(weight float64) float64 {
	price := weight * p.RatePerKG
	if price < p.MinPrice {
		return p.MinPrice
	}
	return price
}

// Store persists the province rate table.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store and migrates its table.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ProvinceRate{}); err != nil {
		return nil, fmt.Errorf("failed to migrate province rates table: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the rate row for a province code.
func (s *Store) Get(ctx context.Context, code string) (*ProvinceRate, error) {
	var rate ProvinceRate
	err := s.db.WithContext(ctx).First(&rate, "code = ?", normalizeCode(code)).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load province rate %q: %w", code, err)
	}
	return &rate, nil
}

// List returns a page of the rate table ordered by code.
func (s *Store) List(ctx context.Context, offset, limit *int) ([]ProvinceRate, error) {
	finalOffset, finalLimit := utils.GetPaginationParams(offset, limit)

	var out []ProvinceRate
	err := s.db.WithContext(ctx).
		Order("code").
		Offset(finalOffset).
		Limit(finalLimit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list province rates: %w", err)
	}
	return out, nil
}

// Upsert creates or replaces a province rate row (admin action).
func (s *Store) Upsert(ctx context.Context, rate *ProvinceRate) error {
	if rate.Code == "" {
		return fmt.Errorf("province code is required")
	}
	if rate.MinPrice < 0 || rate.RatePerKG < 0 {
		return fmt.Errorf("province rates cannot be negative")
	}
	rate.Code = normalizeCode(rate.Code)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(rate).Error
	if err != nil {
		return fmt.Errorf("failed to upsert province rate %q: %w", rate.Code, err)
	}
	return nil
}

// Exists reports whether a province code is configured.
func (s *Store) Exists(ctx context.Context, code string) bool {
	_, err := s.Get(ctx, code)
	return err == nil
}

// Delete removes a province rate row (admin action).
func (s *Store) Delete(ctx context.Context, code string) error {
	err := s.db.WithContext(ctx).Delete(&ProvinceRate{}, "code = ?", normalizeCode(code)).Error
	if err != nil {
		return fmt.Errorf("failed to delete province rate %q: %w", code, err)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
