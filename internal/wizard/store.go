package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("wizard session not found")

// sessionRecord is the persisted form of a draft plus the submission
// outcome that the confirmation screen reads.
type sessionRecord struct {
	ID         string    `gorm:"primaryKey;type:varchar(36);column:id"`
	Draft      []byte    `gorm:"column:draft;not null"`            // JSON-serialized Draft
	ShipmentID *string   `gorm:"type:varchar(64);column:shipment_id"` // set after submission
	LabelURL   *string   `gorm:"type:varchar(1024);column:label_url"`
	LabelDone  bool      `gorm:"column:label_done;not null;default:false"` // polling finished (found or exhausted)
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (sessionRecord) TableName() string {
	return "wizard_sessions"
}

// SessionStore keeps in-progress drafts in a local sqlite database so a
// restart does not lose half-entered shipments.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore opens (or creates) the session database at path and
// migrates its schema. Use ":memory:" for tests.
func NewSessionStore(path string) (*SessionStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}
	return &SessionStore{db: db}, nil
}

// Save upserts the draft's serialized state.
func (s *SessionStore) Save(ctx context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to serialize draft %s: %w", d.ID, err)
	}

	var existing sessionRecord
	err = s.db.WithContext(ctx).First(&existing, "id = ?", d.ID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := sessionRecord{ID: d.ID.String(), Draft: raw}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create session %s: %w", d.ID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", d.ID, err)
	}

	err = s.db.WithContext(ctx).Model(&existing).Update("draft", raw).Error
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", d.ID, err)
	}
	return nil
}

// Get loads a draft by session id.
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*Draft, error) {
	record, err := s.record(ctx, id)
	if err != nil {
		return nil, err
	}
	var draft Draft
	if err := json.Unmarshal(record.Draft, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &draft, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Delete(&sessionRecord{}, "id = ?", id.String()).Error
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// SetShipment records the created shipment id on the session.
func (s *SessionStore) SetShipment(ctx context.Context, id uuid.UUID, shipmentID string) error {
	return s.updateColumns(ctx, id, map[string]any{"shipment_id": shipmentID})
}

// SetLabel records the label polling outcome. An empty url with done=true
// means the polling budget ran out without a label; the confirmation
// surface shows the shipment as created either way.
func (s *SessionStore) SetLabel(ctx context.Context, id uuid.UUID, url string, done bool) error {
	cols := map[string]any{"label_done": done}
	if url != "" {
		cols["label_url"] = url
	}
	return s.updateColumns(ctx, id, cols)
}

// ConfirmationState is the label/tracking view of a submitted session.
type ConfirmationState struct {
	ShipmentID string  `json:"shipmentId"`
	LabelURL   *string `json:"labelUrl,omitempty"`
	LabelDone  bool    `json:"labelDone"`
}

// Confirmation returns the submission outcome of a session, or
// ErrSessionNotFound if it was never submitted.
func (s *SessionStore) Confirmation(ctx context.Context, id uuid.UUID) (*ConfirmationState, error) {
	record, err := s.record(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.ShipmentID == nil {
		return nil, ErrSessionNotFound
	}
	return &ConfirmationState{
		ShipmentID: *record.ShipmentID,
		LabelURL:   record.LabelURL,
		LabelDone:  record.LabelDone,
	}, nil
}

// SweepExpired deletes sessions untouched for longer than ttl and returns
// how many were removed. Submitted sessions are kept for the confirmation
// screen until they expire like any other.
func (s *SessionStore) SweepExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	result := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&sessionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *SessionStore) record(ctx context.Context, id uuid.UUID) (*sessionRecord, error) {
	var record sessionRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return &record, nil
}

func (s *SessionStore) updateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("id = ?", id.String()).
		Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update session %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
