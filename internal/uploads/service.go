package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxUploadSize caps a single upload at 15 MB; parcel photos come straight
// from phone cameras.
const MaxUploadSize = 15 << 20

var (
	ErrFileTooLarge    = errors.New("upload exceeds the size limit")
	ErrUnsupportedType = errors.New("unsupported file type for this upload kind")
	ErrUploadNotFound  = errors.New("upload not found")
	errUnknownKind     = errors.New("unknown upload kind")
)

// allowedMimeTypes per kind. Photos are images only; a transfer slip may
// also be a scanned PDF.
var allowedMimeTypes = map[Kind]map[string]bool{
	KindParcelPhoto: {
		"image/jpeg": true, "image/png": true, "image/webp": true, "image/heic": true,
	},
	KindDevicePicture: {
		"image/jpeg": true, "image/png": true, "image/webp": true, "image/heic": true,
	},
	KindTransferSlip: {
		"image/jpeg": true, "image/png": true, "image/webp": true, "application/pdf": true,
	},
}

// Service stores upload bytes through a StorageDriver and their metadata in
// the database, so the final submission can reattach them by id.
type Service struct {
	driver StorageDriver
	db     *gorm.DB
}

// NewService creates the upload service and migrates the metadata table.
func NewService(driver StorageDriver, db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&FileMetadata{}); err != nil {
		return nil, fmt.Errorf("failed to migrate upload metadata table: %w", err)
	}
	return &Service{driver: driver, db: db}, nil
}

// Upload validates and stores one file, returning its metadata record.
func (s *Service) Upload(ctx context.Context, kind Kind, filename string, reader io.Reader, size int64, mime string) (*FileMetadata, error) {
	allowed, ok := allowedMimeTypes[kind]
	if !ok {
		return nil, errUnknownKind
	}
	if !allowed[mime] {
		return nil, ErrUnsupportedType
	}
	if size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	id := uuid.New()
	key := fmt.Sprintf("%s/%s%s", kind, id.String(), filepath.Ext(filename))

	// The declared size is checked above, but the stream is the authority:
	// count what actually arrives and reject anything past the cap rather
	// than storing a truncated file.
	capped := &countingReader{r: io.LimitReader(reader, MaxUploadSize+1)}
	if err := s.driver.Save(ctx, key, capped, mime); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if capped.n > MaxUploadSize {
		if delErr := s.driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to clean up orphaned upload", "key", key, "error", delErr)
		}
		return nil, ErrFileTooLarge
	}

	url, err := s.driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to clean up orphaned upload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	metadata := &FileMetadata{
		ID:       id,
		Kind:     kind,
		Name:     filename,
		Key:      key,
		URL:      url,
		Size:     capped.n,
		MimeType: mime,
	}
	if err := s.db.WithContext(ctx).Create(metadata).Error; err != nil {
		if delErr := s.driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to clean up orphaned upload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to persist upload metadata: %w", err)
	}

	slog.InfoContext(ctx, "file uploaded", "id", id, "kind", kind, "size", capped.n)
	return metadata, nil
}

// countingReader tracks how many bytes the driver actually consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Metadata returns the record for an upload id.
func (s *Service) Metadata(ctx context.Context, id uuid.UUID) (*FileMetadata, error) {
	var metadata FileMetadata
	err := s.db.WithContext(ctx).First(&metadata, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load upload metadata %s: %w", id, err)
	}
	return &metadata, nil
}

// Load resolves an upload into its raw bytes for the multipart submission.
// It satisfies the wizard's FileLoader.
func (s *Service) Load(ctx context.Context, id uuid.UUID) ([]byte, string, string, error) {
	metadata, err := s.Metadata(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	reader, contentType, err := s.driver.Get(ctx, metadata.Key)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read upload %s: %w", id, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read upload %s: %w", id, err)
	}
	if contentType == "" {
		contentType = metadata.MimeType
	}
	return content, metadata.Name, contentType, nil
}

// Download streams an upload back by storage key.
func (s *Service) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.driver.Get(ctx, key)
}

// Delete removes an upload's bytes and metadata.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	metadata, err := s.Metadata(ctx, id)
	if err != nil {
		return err
	}
	if err := s.driver.Delete(ctx, metadata.Key); err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", id, err)
	}
	if err := s.db.WithContext(ctx).Delete(&FileMetadata{}, "id = ?", id.String()).Error; err != nil {
		return fmt.Errorf("failed to delete upload metadata %s: %w", id, err)
	}
	return nil
}
