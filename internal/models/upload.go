package models

import (
	"time"
)

// Upload status values. Transitions are monotonic:
// pending -> processing -> success | failed.
const (
	UploadStatusPending    = "pending"
	UploadStatusProcessing = "processing"
	UploadStatusSuccess    = "success"
	UploadStatusFailed     = "failed"
)

// Upload tracks one video upload attempt and its outcome.
type Upload struct {
	ID              string  `gorm:"primaryKey"                json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	Status          string  `gorm:"not null;default:'pending';index" json:"status"`
	MediaID         *string `json:"mediaId"`
	MediaKey        *string `json:"mediaKey"`
	PostID          *string `json:"postId"`
	ErrorMessage    *string `json:"errorMessage"`
	FileSize        int64   `json:"fileSize"`
	MimeType        string  `gorm:"size:50"                   json:"mimeType"`
	ProcessingState *string `gorm:"size:20"                   json:"processingState"`
	CreatedAt       time.Time  `gorm:"index"                  json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

// IsTerminal reports whether the upload reached a final state.
func (u *Upload) IsTerminal() bool {
	return u.Status == UploadStatusSuccess || u.Status == UploadStatusFailed
}

// UploadStatusUpdate carries the fields written when an upload changes state.
// Nil pointers leave the stored value untouched; MediaID and MediaKey are
// immutable once set.
type UploadStatusUpdate struct {
	Status          string
	MediaID         *string
	MediaKey        *string
	PostID          *string
	ErrorMessage    *string
	ProcessingState *string
}
