package assets

import (
	"encoding/json"
	"errors"
	"math"

	"mediavault/internal/domain"
)

// checkRating enforces the [0.0, 5.0] range at one-decimal precision.
// Sub-tenth values are rejected rather than rounded, so a stored rating is
// always exactly what the caller sent.
func checkRating(rating *float64, fields fieldErrors) {
	if rating == nil {
		return
	}
	r := *rating
	if math.IsNaN(r) || math.IsInf(r, 0) {
		fields["rating"] = "must be a number"
		return
	}
	if r < 0 || r > 5 {
		fields["rating"] = "must be between 0 and 5"
		return
	}
	if math.Abs(r*10-math.Round(r*10)) > 1e-9 {
		fields["rating"] = "must use at most one decimal place"
	}
}

// checkPromptMeta validates the raw prompt metadata shape. A nil return with
// no recorded field error means the payload carried no metadata at all.
func checkPromptMeta(raw json.RawMessage, fields fieldErrors) *domain.PromptMeta {
	meta, err := domain.ParsePromptMeta(raw)
	if err != nil {
		var formatErr *domain.PromptMetaFormatError
		if errors.As(err, &formatErr) {
			fields["prompt_meta"] = formatErr.Reason
		} else {
			fields["prompt_meta"] = err.Error()
		}
		return nil
	}
	return meta
}

// checkVideoThumbnail applies the video-requires-thumbnail invariant to an
// already-merged field set. Create runs the auto-fill policy first; by the
// time this check fails there is nothing left to derive a thumbnail from.
func checkVideoThumbnail(mediaType domain.MediaType, thumbnail *string, fields fieldErrors) {
	if mediaType != domain.MediaVideo {
		return
	}
	if thumbnail == nil || *thumbnail == "" {
		fields["thumbnail_file"] = "required for video assets"
	}
}
