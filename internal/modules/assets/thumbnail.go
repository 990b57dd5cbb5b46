package assets

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediavault/internal/domain"
	"mediavault/internal/storage"
)

// thumbnailPolicy decides the thumbnail for a new asset. Images pass the
// supplied value through; videos must end up with one, auto-derived from the
// first reference whose binary can be copied when the caller supplied none.
type thumbnailPolicy struct {
	store *storage.Store
	fetch assetFetcher
	log   *zap.Logger
}

// decide returns the staged thumbnail to commit, or nil when the asset needs
// none. Returns errThumbnailRequired when a video has no supplied thumbnail
// and no reference yields a retrievable binary. A failed copy of a candidate
// binary is treated as "no auto-fill available", not as a fatal error.
func (p *thumbnailPolicy) decide(
	ctx context.Context,
	mediaType domain.MediaType,
	supplied *storage.StagedFile,
	refs []string,
) (*storage.StagedFile, error) {
	if mediaType != domain.MediaVideo || supplied != nil {
		return supplied, nil
	}

	for _, id := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, err := p.fetch.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		name := ref.FileName
		if ref.ThumbnailFile != nil && *ref.ThumbnailFile != "" {
			name = *ref.ThumbnailFile
		}
		staged, err := p.store.CopyOf(name)
		if err != nil {
			p.log.Debug("thumbnail auto-fill candidate not retrievable",
				zap.String("reference_id", id),
				zap.String("file", name),
				zap.Error(err))
			continue
		}
		return staged, nil
	}
	return nil, errThumbnailRequired
}
