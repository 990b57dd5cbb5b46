package domain

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// ParseMediaType reports whether raw names a supported media type.
func ParseMediaType(raw string) (MediaType, bool) {
	switch MediaType(raw) {
	case MediaImage, MediaVideo:
		return MediaType(raw), true
	}
	return "", false
}

// Asset is one catalog row describing an image or video plus its metadata.
// FileName and ThumbnailFile address binaries inside the media store.
type Asset struct {
	ID            string      `json:"id" gorm:"primaryKey;size:36"`
	FileName      string      `json:"file_name" gorm:"not null;uniqueIndex"`
	MediaType     MediaType   `json:"media_type" gorm:"not null;index;default:image"`
	PromptText    string      `json:"prompt_text" gorm:"not null"`
	PromptMeta    *PromptMeta `json:"prompt_meta" gorm:"type:json"`
	AIModel       *string     `json:"ai_model,omitempty" gorm:"column:ai_model"`
	Notes         *string     `json:"notes,omitempty"`
	Rating        *float64    `json:"rating,omitempty"`
	ThumbnailFile *string     `json:"thumbnail_file,omitempty"`
	CapturedAt    *time.Time  `json:"captured_at,omitempty" gorm:"index"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Tags []Tag `json:"tags" gorm:"many2many:asset_tags"`
}

// Summary is the compact shape used in list responses and resolved references.
func (a *Asset) Summary() AssetSummary {
	return AssetSummary{
		ID:            a.ID,
		PromptText:    a.PromptText,
		FileName:      a.FileName,
		ThumbnailFile: a.ThumbnailFile,
		MediaType:     a.MediaType,
		CapturedAt:    a.CapturedAt,
	}
}

type AssetSummary struct {
	ID            string     `json:"id"`
	PromptText    string     `json:"prompt_text"`
	FileName      string     `json:"file_name"`
	ThumbnailFile *string    `json:"thumbnail_file,omitempty"`
	MediaType     MediaType  `json:"media_type"`
	CapturedAt    *time.Time `json:"captured_at,omitempty"`
}

// Tag rows are shared across assets and never pruned automatically.
type Tag struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;uniqueIndex"`
}

// TagUsage is one row of the tag listing endpoint.
type TagUsage struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
