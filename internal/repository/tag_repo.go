package repository

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mediavault/internal/domain"
)

// NormalizeTag trims and case-folds a tag name for comparison and storage.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags normalizes, drops empties, and deduplicates in sorted order.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		normalized := NormalizeTag(name)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

type TagRepository interface {
	Ensure(ctx context.Context, names []string) ([]domain.Tag, error)
	Usage(ctx context.Context) ([]domain.TagUsage, error)
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// Ensure returns a Tag row per normalized name, creating missing ones.
// The insert relies on the unique index on name: a concurrent insert of the
// same new tag hits ON CONFLICT DO NOTHING and the re-read below picks up
// whichever row won.
func (r *tagRepository) Ensure(ctx context.Context, names []string) ([]domain.Tag, error) {
	normalized := NormalizeTags(names)
	if len(normalized) == 0 {
		return []domain.Tag{}, nil
	}

	rows := make([]domain.Tag, 0, len(normalized))
	for _, name := range normalized {
		rows = append(rows, domain.Tag{Name: name})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}

	var tags []domain.Tag
	err = r.db.WithContext(ctx).
		Where("name IN ?", normalized).
		Order("name").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// Usage lists every tag with the number of assets linked to it.
func (r *tagRepository) Usage(ctx context.Context) ([]domain.TagUsage, error) {
	var usage []domain.TagUsage
	err := r.db.WithContext(ctx).
		Model(&domain.Tag{}).
		Select("tags.name AS name, COUNT(asset_tags.asset_id) AS count").
		Joins("LEFT JOIN asset_tags ON asset_tags.tag_id = tags.id").
		Group("tags.id").
		Order("tags.name").
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	return usage, nil
}
