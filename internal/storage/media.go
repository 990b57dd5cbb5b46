package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediavault/internal/domain"
)

const stagingDirName = ".staging"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidName     = errors.New("invalid file name")
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
}

var imageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

var videoMimeTypes = map[string]bool{
	"video/mp4":  true,
	"video/webm": true,
}

// Store manages the binary directory addressed by the file names persisted on
// Asset rows. Binaries are written to a staging area first and only renamed
// into the root once the surrounding metadata transaction is about to commit;
// a staged file that is never promoted is safe to discard.
type Store struct {
	root    string
	staging string
	log     *zap.Logger
}

func New(root string, log *zap.Logger) (*Store, error) {
	staging := filepath.Join(root, stagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create media directories: %w", err)
	}
	return &Store{root: root, staging: staging, log: log}, nil
}

// Root returns the directory served as static media.
func (s *Store) Root() string {
	return s.root
}

// StagedFile is a binary owned by an in-flight operation. Ownership transfers
// to the Asset row on Promote; Discard is a no-op after that.
type StagedFile struct {
	store    *Store
	path     string
	ext      string
	promoted bool
}

// StageUpload writes a multipart upload into the staging area after checking
// its extension and sniffed content type against the media type's allow list.
func (s *Store) StageUpload(header *multipart.FileHeader, mediaType domain.MediaType) (*StagedFile, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	return s.Stage(file, header.Filename, mediaType)
}

// Stage copies src into the staging area under a fresh name.
func (s *Store) Stage(src io.ReadSeeker, originalName string, mediaType domain.MediaType) (*StagedFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtension(ext, mediaType) {
		return nil, fmt.Errorf("%w: extension %q not allowed for %s", ErrUnsupportedType, ext, mediaType)
	}

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if !allowedMime(mtype.String(), mediaType) {
		return nil, fmt.Errorf("%w: content type %q not allowed for %s", ErrUnsupportedType, mtype.String(), mediaType)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	path := filepath.Join(s.staging, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close staged file: %w", err)
	}
	return &StagedFile{store: s, path: path, ext: ext}, nil
}

// CopyOf stages a duplicate of an already-committed binary. Used by the
// thumbnail auto-fill to derive a video thumbnail from a reference's file.
func (s *Store) CopyOf(name string) (*StagedFile, error) {
	srcPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open source binary: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.staging, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staged copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write staged copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close staged copy: %w", err)
	}
	return &StagedFile{store: s, path: path, ext: ext}, nil
}

// Promote renames the staged file into the media root under an id-derived
// name and returns that name.
func (s *Store) Promote(file *StagedFile) (string, error) {
	name := uuid.NewString() + file.ext
	if err := os.Rename(file.path, filepath.Join(s.root, name)); err != nil {
		return "", fmt.Errorf("promote staged file: %w", err)
	}
	file.promoted = true
	return name, nil
}

// Discard deletes a staged file that will not be committed.
func (f *StagedFile) Discard() {
	if f == nil || f.promoted {
		return
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		f.store.log.Warn("failed to discard staged file",
			zap.String("path", f.path),
			zap.Error(err))
	}
}

// Remove unlinks a committed binary. Failures are logged, not returned: the
// delete flow treats orphaned files as acceptable once the row is gone.
func (s *Store) Remove(name string) {
	path, err := s.resolve(name)
	if err != nil {
		s.log.Warn("refused to remove invalid media name",
			zap.String("name", name),
			zap.Error(err))
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove media file",
			zap.String("name", name),
			zap.Error(err))
	}
}

// Exists reports whether a committed binary is present under the media root.
func (s *Store) Exists(name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, name), nil
}

func allowedExtension(ext string, mediaType domain.MediaType) bool {
	if mediaType == domain.MediaVideo {
		return videoExtensions[ext]
	}
	return imageExtensions[ext]
}

func allowedMime(mime string, mediaType domain.MediaType) bool {
	if mediaType == domain.MediaVideo {
		return videoMimeTypes[mime]
	}
	return imageMimeTypes[mime]
}
