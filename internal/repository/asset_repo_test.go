package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mediavault/internal/database"
	"mediavault/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

type assetSeed struct {
	prompt     string
	notes      string
	model      string
	rating     *float64
	capturedAt *time.Time
	mediaType  domain.MediaType
	tags       []string
}

func seedAsset(t *testing.T, db *gorm.DB, seed assetSeed) *domain.Asset {
	t.Helper()
	ctx := context.Background()

	mediaType := seed.mediaType
	if mediaType == "" {
		mediaType = domain.MediaImage
	}
	asset := &domain.Asset{
		ID:         uuid.NewString(),
		FileName:   uuid.NewString() + ".png",
		MediaType:  mediaType,
		PromptText: seed.prompt,
		PromptMeta: domain.PlainText(seed.prompt),
		Rating:     seed.rating,
		CapturedAt: seed.capturedAt,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if seed.notes != "" {
		asset.Notes = &seed.notes
	}
	if seed.model != "" {
		asset.AIModel = &seed.model
	}

	repo := NewAssetRepository(db)
	require.NoError(t, repo.Create(ctx, asset))
	if len(seed.tags) > 0 {
		tags, err := NewTagRepository(db).Ensure(ctx, seed.tags)
		require.NoError(t, err)
		require.NoError(t, repo.ReplaceTags(ctx, asset, tags))
	}
	return asset
}

func f64(v float64) *float64    { return &v }
func at(t time.Time) *time.Time { return &t }

func TestListTextSearchAcrossFields(t *testing.T) {
	db := testDB(t)
	seedAsset(t, db, assetSeed{prompt: "a Lighthouse at dusk"})
	seedAsset(t, db, assetSeed{prompt: "city", notes: "shot near the lighthouse"})
	seedAsset(t, db, assetSeed{prompt: "fox", model: "lighthouse-xl"})
	seedAsset(t, db, assetSeed{prompt: "unrelated"})

	items, total, err := NewAssetRepository(db).List(context.Background(), AssetFilters{Q: "LIGHTHOUSE"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 3)
}

func TestListTagFilterRequiresEveryTag(t *testing.T) {
	db := testDB(t)
	both := seedAsset(t, db, assetSeed{prompt: "both", tags: []string{"cat", "outdoor"}})
	seedAsset(t, db, assetSeed{prompt: "cat only", tags: []string{"cat"}})
	seedAsset(t, db, assetSeed{prompt: "outdoor only", tags: []string{"outdoor"}})

	items, total, err := NewAssetRepository(db).List(context.Background(), AssetFilters{
		Tags: []string{"cat", "outdoor"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, both.ID, items[0].ID)
}

func TestListRatingBoundsInclusive(t *testing.T) {
	db := testDB(t)
	rated := seedAsset(t, db, assetSeed{prompt: "rated", rating: f64(3.5)})
	seedAsset(t, db, assetSeed{prompt: "unrated"})

	repo := NewAssetRepository(db)

	items, total, err := repo.List(context.Background(), AssetFilters{RatingMin: f64(3.6)})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, items)

	items, total, err = repo.List(context.Background(), AssetFilters{RatingMin: f64(3.4)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, rated.ID, items[0].ID)

	// An asset with no rating never matches a bound-constrained query.
	_, total, err = repo.List(context.Background(), AssetFilters{RatingMax: f64(5)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestListDateRangeAndMediaType(t *testing.T) {
	db := testDB(t)
	jan := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	jun := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	seedAsset(t, db, assetSeed{prompt: "january", capturedAt: at(jan)})
	seedAsset(t, db, assetSeed{prompt: "june", capturedAt: at(jun)})
	video := seedAsset(t, db, assetSeed{prompt: "clip", mediaType: domain.MediaVideo, capturedAt: at(jun)})

	repo := NewAssetRepository(db)

	items, total, err := repo.List(context.Background(), AssetFilters{
		DateFrom: at(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	mt := domain.MediaVideo
	items, total, err = repo.List(context.Background(), AssetFilters{MediaType: &mt})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, video.ID, items[0].ID)
}

func TestListPaginationIsDisjointAndStable(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		seedAsset(t, db, assetSeed{
			prompt:     fmt.Sprintf("asset %d", i),
			capturedAt: at(base.Add(time.Duration(i) * time.Hour)),
		})
	}

	repo := NewAssetRepository(db)
	full, fullTotal, err := repo.List(context.Background(), AssetFilters{PageSize: 100})
	require.NoError(t, err)
	require.Len(t, full, 7)

	page1, total1, err := repo.List(context.Background(), AssetFilters{Page: 1, PageSize: 3})
	require.NoError(t, err)
	page2, total2, err := repo.List(context.Background(), AssetFilters{Page: 2, PageSize: 3})
	require.NoError(t, err)
	page3, total3, err := repo.List(context.Background(), AssetFilters{Page: 3, PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, fullTotal, total1)
	assert.Equal(t, fullTotal, total2)
	assert.Equal(t, fullTotal, total3)

	var joined []string
	for _, page := range [][]domain.Asset{page1, page2, page3} {
		for _, item := range page {
			joined = append(joined, item.ID)
		}
	}
	var expected []string
	for _, item := range full {
		expected = append(expected, item.ID)
	}
	assert.Equal(t, expected, joined)
}

func TestListOrdersByCapturedAtDescNullsLast(t *testing.T) {
	db := testDB(t)
	old := seedAsset(t, db, assetSeed{prompt: "old", capturedAt: at(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))})
	newest := seedAsset(t, db, assetSeed{prompt: "new", capturedAt: at(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))})
	undated := seedAsset(t, db, assetSeed{prompt: "undated"})

	items, _, err := NewAssetRepository(db).List(context.Background(), AssetFilters{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, newest.ID, items[0].ID)
	assert.Equal(t, old.ID, items[1].ID)
	assert.Equal(t, undated.ID, items[2].ID)
}

func TestListDependents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	target := seedAsset(t, db, assetSeed{prompt: "target"})
	other := seedAsset(t, db, assetSeed{prompt: "other"})

	repo := NewAssetRepository(db)
	dependent := &domain.Asset{
		ID:         uuid.NewString(),
		FileName:   uuid.NewString() + ".png",
		MediaType:  domain.MediaImage,
		PromptText: "remix",
		PromptMeta: domain.ReferenceChain([]string{target.ID}, "remix"),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, dependent))

	deps, err := repo.ListDependents(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, dependent.ID, deps[0].ID)

	deps, err = repo.ListDependents(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestDeleteRemovesRowAndLinksOnly(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	asset := seedAsset(t, db, assetSeed{prompt: "doomed", tags: []string{"keepme"}})

	repo := NewAssetRepository(db)
	require.NoError(t, repo.Delete(ctx, asset))

	_, err := repo.GetByID(ctx, asset.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The tag row survives with a zero count.
	usage, err := NewTagRepository(db).Usage(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "keepme", usage[0].Name)
	assert.EqualValues(t, 0, usage[0].Count)
}
