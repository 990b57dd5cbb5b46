package assets

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"mediavault/internal/domain"
)

// UpdateAssetRequest is the JSON body of a partial metadata update.
// Nil pointers mean "leave the field untouched"; prompt_meta may be set to
// JSON null to clear the chain.
type UpdateAssetRequest struct {
	PromptText    *string         `json:"prompt_text"`
	PromptMeta    json.RawMessage `json:"prompt_meta"`
	AIModel       *string         `json:"ai_model"`
	Notes         *string         `json:"notes"`
	Rating        *float64        `json:"rating" validate:"omitempty,gte=0,lte=5"`
	MediaType     *string         `json:"media_type"`
	ThumbnailFile *string         `json:"thumbnail_file"`
	CapturedAt    *time.Time      `json:"captured_at"`
	Tags          *[]string       `json:"tags"`
}

func (r UpdateAssetRequest) ToInput() (UpdateAssetInput, fieldErrors) {
	fields := fieldErrors{}
	in := UpdateAssetInput{
		PromptText:    r.PromptText,
		PromptMeta:    r.PromptMeta,
		AIModel:       r.AIModel,
		Notes:         r.Notes,
		Rating:        r.Rating,
		ThumbnailFile: r.ThumbnailFile,
		CapturedAt:    r.CapturedAt,
		Tags:          r.Tags,
	}
	if r.MediaType != nil {
		mediaType, ok := domain.ParseMediaType(*r.MediaType)
		if !ok {
			fields["media_type"] = "must be image or video"
		} else {
			in.MediaType = &mediaType
		}
	}
	return in, fields
}

// parsePromptMetaForm interprets the raw prompt_meta form field: valid JSON
// passes through, anything else is treated as plain prompt text.
func parsePromptMetaForm(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

// parseTagsForm accepts either a JSON array of names or a comma list.
func parseTagsForm(raw string) []string {
	if raw == "" {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDateTimeField(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func parseFloatField(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &value, true
}

func optionalString(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}
