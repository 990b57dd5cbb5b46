package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mediavault/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AssetFilters carries the search dimensions for listing assets.
// Every field is optional; set fields are AND-combined.
type AssetFilters struct {
	Q         string
	Tags      []string
	RatingMin *float64
	RatingMax *float64
	DateFrom  *time.Time
	DateTo    *time.Time
	MediaType *domain.MediaType
	Page      int
	PageSize  int
}

// Offset returns the row offset for the normalized page window.
func (f AssetFilters) Offset() int {
	page, size := f.window()
	return (page - 1) * size
}

func (f AssetFilters) window() (page, size int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	size = f.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Save(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	Delete(ctx context.Context, asset *domain.Asset) error
	ReplaceTags(ctx context.Context, asset *domain.Asset, tags []domain.Tag) error
	List(ctx context.Context, filters AssetFilters) ([]domain.Asset, int64, error)
	ListDependents(ctx context.Context, id string) ([]domain.Asset, error)
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(asset).Error
}

func (r *assetRepository) Save(ctx context.Context, asset *domain.Asset) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(asset).Error
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// Delete removes the row and its tag links. Tag rows themselves survive.
func (r *assetRepository) Delete(ctx context.Context, asset *domain.Asset) error {
	if err := r.db.WithContext(ctx).Model(asset).Association("Tags").Clear(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&domain.Asset{}, "id = ?", asset.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assetRepository) ReplaceTags(ctx context.Context, asset *domain.Asset, tags []domain.Tag) error {
	if err := r.db.WithContext(ctx).Model(asset).Association("Tags").Replace(tags); err != nil {
		return err
	}
	asset.Tags = tags
	return nil
}

// List compiles the filters into one deterministic, paginated result set.
// The total is counted from the same filtered query before the page window
// is applied, so it is stable across pages.
func (r *assetRepository) List(ctx context.Context, filters AssetFilters) ([]domain.Asset, int64, error) {
	var total int64
	countQuery := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Asset{}), filters)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, size := filters.window()
	var assets []domain.Asset
	listQuery := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Asset{}), filters)
	err := listQuery.
		Preload("Tags").
		Order("captured_at DESC NULLS LAST").
		Order("created_at DESC").
		Limit(size).
		Offset(filters.Offset()).
		Find(&assets).Error
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

func (r *assetRepository) applyFilters(query *gorm.DB, filters AssetFilters) *gorm.DB {
	if q := strings.ToLower(strings.TrimSpace(filters.Q)); q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"LOWER(prompt_text) LIKE ? OR LOWER(notes) LIKE ? OR LOWER(ai_model) LIKE ?",
			like, like, like,
		)
	}

	if filters.RatingMin != nil {
		query = query.Where("rating >= ?", *filters.RatingMin)
	}
	if filters.RatingMax != nil {
		query = query.Where("rating <= ?", *filters.RatingMax)
	}

	if filters.DateFrom != nil {
		query = query.Where("captured_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("captured_at <= ?", *filters.DateTo)
	}

	if names := NormalizeTags(filters.Tags); len(names) > 0 {
		// Asset must be linked to every requested tag, not just one of them.
		linked := r.db.Model(&domain.Tag{}).
			Select("asset_tags.asset_id").
			Joins("JOIN asset_tags ON asset_tags.tag_id = tags.id").
			Where("tags.name IN ?", names).
			Group("asset_tags.asset_id").
			Having("COUNT(DISTINCT tags.name) = ?", len(names))
		query = query.Where("assets.id IN (?)", linked)
	}

	if filters.MediaType != nil {
		query = query.Where("media_type = ?", *filters.MediaType)
	}

	return query
}

// ListDependents returns assets whose prompt metadata references the given id.
func (r *assetRepository) ListDependents(ctx context.Context, id string) ([]domain.Asset, error) {
	var assets []domain.Asset
	like := `%"id":"` + id + `"%`
	err := r.db.WithContext(ctx).
		Where("prompt_meta LIKE ?", like).
		Order("created_at DESC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}
