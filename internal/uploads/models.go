package uploads

import (
	"github.com/google/uuid"
)

// Kind classifies what an upload is for. Parcel content photos and device
// pictures must be images; a transfer slip may also be a PDF.
type Kind string

const (
	KindParcelPhoto   Kind = "photo"
	KindDevicePicture Kind = "device_picture"
	KindTransferSlip  Kind = "slip"
)

// FileMetadata is the persisted record of one upload. The row outlives the
// wizard session it was uploaded in until the submission consumes it.
type FileMetadata struct {
	ID       uuid.UUID `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	Kind     Kind      `gorm:"type:varchar(20);column:kind;not null" json:"kind"`
	Name     string    `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Key      string    `gorm:"type:varchar(255);column:key;not null" json:"key"`
	URL      string    `gorm:"type:varchar(1024);column:url" json:"url"`
	Size     int64     `gorm:"column:size;not null" json:"size"`
	MimeType string    `gorm:"type:varchar(100);column:mime_type;not null" json:"mime_type"`
}

func (FileMetadata) TableName() string {
	return "upload_files"
}
