package entity

import "time"

// FileMetadata describes one object held in the blob store.
type FileMetadata struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	Context          string    `json:"context" gorm:"size:32;not null;index:idx_file_metadata_doc"`
	DocumentID       *string   `json:"document_id" gorm:"size:36;index:idx_file_metadata_doc"`
	ObjectKey        string    `json:"-" gorm:"size:256;not null"`
	OriginalFilename string    `json:"original_filename" gorm:"size:256"`
	ContentType      string    `json:"content_type" gorm:"size:128"`
	Size             int64     `json:"size"`
	UploadTimestamp  time.Time `json:"upload_timestamp" gorm:"not null"`
	UploaderUserID   string    `json:"uploader_user_id" gorm:"size:36"`
	UploaderUsername string    `json:"uploader_username" gorm:"size:128"`
}

func (FileMetadata) TableName() string {
	return "file_metadata"
}
