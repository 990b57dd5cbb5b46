package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mediavault/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func mp4Bytes() []byte {
	// Minimal ftyp box, enough for content sniffing.
	return []byte("\x00\x00\x00\x14ftypisom\x00\x00\x02\x00isom")
}

func TestStageAndPromote(t *testing.T) {
	store := testStore(t)

	staged, err := store.Stage(bytes.NewReader(pngBytes(t)), "upload.png", domain.MediaImage)
	require.NoError(t, err)

	name, err := store.Promote(staged)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.True(t, store.Exists(name))

	// Discard after promote must not touch the committed file.
	staged.Discard()
	assert.True(t, store.Exists(name))
}

func TestDiscardRemovesStagedFile(t *testing.T) {
	store := testStore(t)

	staged, err := store.Stage(bytes.NewReader(pngBytes(t)), "upload.png", domain.MediaImage)
	require.NoError(t, err)

	_, statErr := os.Stat(staged.path)
	require.NoError(t, statErr)

	staged.Discard()
	_, statErr = os.Stat(staged.path)
	assert.True(t, os.IsNotExist(statErr))

	// Discarding twice and discarding nil are both harmless.
	staged.Discard()
	var none *StagedFile
	none.Discard()
}

func TestStageRejectsDisallowedExtension(t *testing.T) {
	store := testStore(t)

	_, err := store.Stage(bytes.NewReader(pngBytes(t)), "upload.txt", domain.MediaImage)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Stage(bytes.NewReader(pngBytes(t)), "upload.png", domain.MediaVideo)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStageRejectsMismatchedContent(t *testing.T) {
	store := testStore(t)

	_, err := store.Stage(bytes.NewReader([]byte("plain text, not an image")), "fake.png", domain.MediaImage)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Stage(bytes.NewReader(pngBytes(t)), "fake.mp4", domain.MediaVideo)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStageVideo(t *testing.T) {
	store := testStore(t)

	staged, err := store.Stage(bytes.NewReader(mp4Bytes()), "clip.mp4", domain.MediaVideo)
	require.NoError(t, err)

	name, err := store.Promote(staged)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".mp4"))
	assert.True(t, store.Exists(name))
}

func TestCopyOf(t *testing.T) {
	store := testStore(t)

	staged, err := store.Stage(bytes.NewReader(pngBytes(t)), "source.png", domain.MediaImage)
	require.NoError(t, err)
	source, err := store.Promote(staged)
	require.NoError(t, err)

	copied, err := store.CopyOf(source)
	require.NoError(t, err)
	dup, err := store.Promote(copied)
	require.NoError(t, err)

	assert.NotEqual(t, source, dup)
	assert.True(t, store.Exists(source))
	assert.True(t, store.Exists(dup))

	original, err := os.ReadFile(filepath.Join(store.Root(), source))
	require.NoError(t, err)
	duplicate, err := os.ReadFile(filepath.Join(store.Root(), dup))
	require.NoError(t, err)
	assert.Equal(t, original, duplicate)

	_, err = store.CopyOf("missing.png")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	store := testStore(t)

	staged, err := store.Stage(bytes.NewReader(pngBytes(t)), "upload.png", domain.MediaImage)
	require.NoError(t, err)
	name, err := store.Promote(staged)
	require.NoError(t, err)

	store.Remove(name)
	assert.False(t, store.Exists(name))

	// Missing files and bad names are tolerated.
	store.Remove(name)
	store.Remove("../../etc/passwd")
	store.Remove("")
}

func TestExistsRejectsTraversal(t *testing.T) {
	store := testStore(t)
	assert.False(t, store.Exists("../media.go"))
	assert.False(t, store.Exists("a/b.png"))
	assert.False(t, store.Exists(""))
}
