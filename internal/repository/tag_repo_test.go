package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	out := NormalizeTags([]string{" Cat ", "OUTDOOR", "cat", "", "  "})
	assert.Equal(t, []string{"cat", "outdoor"}, out)

	assert.Empty(t, NormalizeTags(nil))
	assert.Empty(t, NormalizeTags([]string{"", "   "}))
}

func TestEnsureCreatesAndReusesRows(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewTagRepository(db)

	first, err := repo.Ensure(ctx, []string{"Cat", "outdoor"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "cat", first[0].Name)
	assert.Equal(t, "outdoor", first[1].Name)

	// Mixed-case re-ensure resolves to the same rows.
	second, err := repo.Ensure(ctx, []string{"CAT", "outdoor", "new"})
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "new", second[1].Name)
	assert.Equal(t, first[1].ID, second[2].ID)
}

func TestEnsureEmptyInput(t *testing.T) {
	db := testDB(t)
	tags, err := NewTagRepository(db).Ensure(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestUsageCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seedAsset(t, db, assetSeed{prompt: "one", tags: []string{"cat", "outdoor"}})
	seedAsset(t, db, assetSeed{prompt: "two", tags: []string{"cat"}})
	_, err := NewTagRepository(db).Ensure(ctx, []string{"unused"})
	require.NoError(t, err)

	usage, err := NewTagRepository(db).Usage(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 3)
	assert.Equal(t, "cat", usage[0].Name)
	assert.EqualValues(t, 2, usage[0].Count)
	assert.Equal(t, "outdoor", usage[1].Name)
	assert.EqualValues(t, 1, usage[1].Count)
	assert.Equal(t, "unused", usage[2].Name)
	assert.EqualValues(t, 0, usage[2].Count)
}
