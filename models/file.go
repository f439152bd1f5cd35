package models

import (
	"time"
)

// File is one metadata row per uploaded object. Rows are immutable once
// written; the only lifecycle transition is deletion.
type File struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	OriginalFilename string    `json:"original_filename" gorm:"type:varchar(255);not null"`
	ObjectKey        string    `json:"object_key" gorm:"type:varchar(500);uniqueIndex;not null"`
	SizeBytes        int64     `json:"size_bytes"`
	ContentType      string    `json:"content_type" gorm:"type:varchar(100)"`
	CreatedAt        time.Time `json:"created_at"`
}

type DeleteRequest struct {
	FileID uint `json:"file_id" binding:"required"`
}

type UploadResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	FileID    uint   `json:"file_id"`
	ObjectKey string `json:"object_key"`
	Filename  string `json:"filename"`
}

// DownloadLink is a time-limited signed reference to an object. The URL is
// usable directly against the object store until ExpiresAt.
type DownloadLink struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
}
