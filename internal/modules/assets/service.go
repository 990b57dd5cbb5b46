package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediavault/internal/domain"
	"mediavault/internal/repository"
	"mediavault/internal/storage"
)

// Service executes every asset mutation as one metadata transaction paired
// with an ordered, best-effort binary mutation: binaries move into the store
// before the commit on create, and old binaries are unlinked only after the
// commit on replace and delete. A crash between the two steps can orphan a
// file on disk but never leaves a committed row pointing at a missing binary.
type Service struct {
	db    *gorm.DB
	store *storage.Store
	log   *zap.Logger
}

func NewService(db *gorm.DB, store *storage.Store, log *zap.Logger) *Service {
	return &Service{db: db, store: store, log: log}
}

type CreateAssetInput struct {
	Media      *multipart.FileHeader
	Thumbnail  *multipart.FileHeader
	PromptText string
	PromptMeta json.RawMessage
	MediaType  domain.MediaType
	AIModel    *string
	Notes      *string
	Rating     *float64
	CapturedAt *time.Time
	Tags       []string
}

type UpdateAssetInput struct {
	PromptText    *string
	PromptMeta    json.RawMessage
	AIModel       *string
	Notes         *string
	Rating        *float64
	MediaType     *domain.MediaType
	ThumbnailFile *string
	CapturedAt    *time.Time
	Tags          *[]string
}

// Create stages the uploaded binaries, validates the full payload, promotes
// the binaries to their final names, and inserts the row with its tag links
// in one transaction. Any failure at or before the commit removes every file
// this call wrote; no partial row survives.
func (s *Service) Create(ctx context.Context, in CreateAssetInput) (*domain.Asset, error) {
	fields := fieldErrors{}

	media := s.stageField(in.Media, in.MediaType, "media_file", true, fields)
	defer media.Discard()
	thumbnail := s.stageField(in.Thumbnail, domain.MediaImage, "thumbnail_file", false, fields)
	defer thumbnail.Discard()

	meta := checkPromptMeta(in.PromptMeta, fields)
	checkRating(in.Rating, fields)

	var refs []string
	if meta != nil && meta.Kind == domain.PromptReferenceChain {
		refs = meta.Refs
	}
	policy := &thumbnailPolicy{store: s.store, fetch: repository.NewAssetRepository(s.db), log: s.log}
	decided, err := policy.decide(ctx, in.MediaType, thumbnail, refs)
	switch {
	case errors.Is(err, errThumbnailRequired):
		fields["thumbnail_file"] = "required for video assets"
	case err != nil:
		return nil, fmt.Errorf("thumbnail auto-fill: %w", err)
	default:
		thumbnail = decided
	}
	defer thumbnail.Discard()

	if err := fields.err(); err != nil {
		return nil, err
	}

	fileName, err := s.store.Promote(media)
	if err != nil {
		return nil, fmt.Errorf("commit media binary: %w", err)
	}
	var thumbnailName *string
	if thumbnail != nil {
		name, err := s.store.Promote(thumbnail)
		if err != nil {
			s.store.Remove(fileName)
			return nil, fmt.Errorf("commit thumbnail binary: %w", err)
		}
		thumbnailName = &name
	}

	promptText := in.PromptText
	if promptText == "" {
		promptText = meta.PromptText()
	}

	now := time.Now().UTC()
	asset := &domain.Asset{
		ID:            uuid.NewString(),
		FileName:      fileName,
		MediaType:     in.MediaType,
		PromptText:    promptText,
		PromptMeta:    meta,
		AIModel:       in.AIModel,
		Notes:         in.Notes,
		Rating:        in.Rating,
		ThumbnailFile: thumbnailName,
		CapturedAt:    in.CapturedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assetRepo := repository.NewAssetRepository(tx)
		if err := assetRepo.Create(ctx, asset); err != nil {
			return err
		}
		tags, err := repository.NewTagRepository(tx).Ensure(ctx, in.Tags)
		if err != nil {
			return err
		}
		return assetRepo.ReplaceTags(ctx, asset, tags)
	})
	if err != nil {
		s.store.Remove(fileName)
		if thumbnailName != nil {
			s.store.Remove(*thumbnailName)
		}
		if isUniqueViolation(err) {
			return nil, &ValidationError{Fields: map[string]string{"file_name": "already in use"}}
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return asset, nil
}

// stageField stages one upload, folding type failures into the field map.
func (s *Service) stageField(
	header *multipart.FileHeader,
	mediaType domain.MediaType,
	field string,
	required bool,
	fields fieldErrors,
) *storage.StagedFile {
	if header == nil {
		if required {
			fields[field] = "required"
		}
		return nil
	}
	staged, err := s.store.StageUpload(header, mediaType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			fields[field] = err.Error()
		} else {
			fields[field] = "could not store upload"
			s.log.Warn("failed to stage upload", zap.String("field", field), zap.Error(err))
		}
		return nil
	}
	return staged
}

// Update applies a partial metadata change. The merged field set is validated
// before the row is written; no binary is touched.
func (s *Service) Update(ctx context.Context, id string, in UpdateAssetInput) (*domain.Asset, error) {
	var updated *domain.Asset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assetRepo := repository.NewAssetRepository(tx)
		asset, err := assetRepo.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		fields := fieldErrors{}
		if len(in.PromptMeta) > 0 {
			asset.PromptMeta = checkPromptMeta(in.PromptMeta, fields)
		}
		if in.PromptText != nil {
			asset.PromptText = *in.PromptText
		}
		if in.AIModel != nil {
			asset.AIModel = in.AIModel
		}
		if in.Notes != nil {
			asset.Notes = in.Notes
		}
		if in.Rating != nil {
			asset.Rating = in.Rating
		}
		if in.MediaType != nil {
			asset.MediaType = *in.MediaType
		}
		if in.ThumbnailFile != nil {
			asset.ThumbnailFile = in.ThumbnailFile
		}
		if in.CapturedAt != nil {
			asset.CapturedAt = in.CapturedAt
		}

		checkRating(asset.Rating, fields)
		checkVideoThumbnail(asset.MediaType, asset.ThumbnailFile, fields)
		if err := fields.err(); err != nil {
			return err
		}

		if in.Tags != nil {
			tags, err := repository.NewTagRepository(tx).Ensure(ctx, *in.Tags)
			if err != nil {
				return err
			}
			if err := assetRepo.ReplaceTags(ctx, asset, tags); err != nil {
				return err
			}
		}

		asset.UpdatedAt = time.Now().UTC()
		if err := assetRepo.Save(ctx, asset); err != nil {
			return err
		}
		updated = asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReplaceBinary swaps the primary and/or thumbnail binary. The new file is
// committed to the row first; the orphaned previous binary is unlinked only
// after the transaction succeeds, so the row never points at a missing file.
func (s *Service) ReplaceBinary(ctx context.Context, id string, media, thumbnail *multipart.FileHeader) (*domain.Asset, error) {
	asset, err := repository.NewAssetRepository(s.db).GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	fields := fieldErrors{}
	if media == nil && thumbnail == nil {
		fields["media_file"] = "media_file or thumbnail_file is required"
	}
	newMedia := s.stageField(media, asset.MediaType, "media_file", false, fields)
	defer newMedia.Discard()
	newThumbnail := s.stageField(thumbnail, domain.MediaImage, "thumbnail_file", false, fields)
	defer newThumbnail.Discard()
	if err := fields.err(); err != nil {
		return nil, err
	}

	oldFile := asset.FileName
	oldThumbnail := asset.ThumbnailFile

	var promoted []string
	if newMedia != nil {
		name, err := s.store.Promote(newMedia)
		if err != nil {
			return nil, fmt.Errorf("commit media binary: %w", err)
		}
		promoted = append(promoted, name)
		asset.FileName = name
	}
	if newThumbnail != nil {
		name, err := s.store.Promote(newThumbnail)
		if err != nil {
			for _, p := range promoted {
				s.store.Remove(p)
			}
			return nil, fmt.Errorf("commit thumbnail binary: %w", err)
		}
		promoted = append(promoted, name)
		asset.ThumbnailFile = &name
	}

	asset.UpdatedAt = time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repository.NewAssetRepository(tx).Save(ctx, asset)
	})
	if err != nil {
		for _, p := range promoted {
			s.store.Remove(p)
		}
		return nil, fmt.Errorf("replace binary: %w", err)
	}

	if newMedia != nil && oldFile != asset.FileName {
		s.store.Remove(oldFile)
	}
	if newThumbnail != nil && oldThumbnail != nil && *oldThumbnail != *asset.ThumbnailFile {
		s.store.Remove(*oldThumbnail)
	}
	return asset, nil
}

// Delete removes the row and its tag links first; the binaries are unlinked
// best-effort after the commit. An unlink failure is logged, never surfaced:
// an orphaned file beats resurrecting metadata a client already saw vanish.
func (s *Service) Delete(ctx context.Context, id string) error {
	var fileName string
	var thumbnailName *string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assetRepo := repository.NewAssetRepository(tx)
		asset, err := assetRepo.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		fileName = asset.FileName
		thumbnailName = asset.ThumbnailFile
		if err := assetRepo.Delete(ctx, asset); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.store.Remove(fileName)
	if thumbnailName != nil {
		s.store.Remove(*thumbnailName)
	}
	return nil
}

// List compiles the filter set into one page of results plus the stable total.
func (s *Service) List(ctx context.Context, filters repository.AssetFilters) ([]domain.Asset, int64, error) {
	return repository.NewAssetRepository(s.db).List(ctx, filters)
}

// Get fetches one asset without resolving its references.
func (s *Service) Get(ctx context.Context, id string) (*domain.Asset, error) {
	asset, err := repository.NewAssetRepository(s.db).GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
