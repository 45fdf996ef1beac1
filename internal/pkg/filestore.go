package pkg

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is where the upload dir is served.
const URLPrefix = "/uploads"

var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// FileStore keeps uploaded images on disk, one directory per owner.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) Dir() string { return fs.dir }

// SaveImage stores a new image for the owner and returns its public URL.
// Older images stay until PruneImages; kind is "tasks" or "blocks".
func (fs *FileStore) SaveImage(file *multipart.FileHeader, kind string, ownerID uuid.UUID) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}

	ownerDir := filepath.Join(fs.dir, kind, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	name := uuid.NewString() + ext
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("error opening uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(ownerDir, name))
	if err != nil {
		return "", fmt.Errorf("error creating destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("error copying file contents: %w", err)
	}
	return path.Join(URLPrefix, kind, ownerID.String(), name), nil
}

func (fs *FileStore) path(url string) (string, error) {
	rel := strings.TrimPrefix(url, URLPrefix+"/")
	if rel == url || strings.Contains(rel, "..") {
		return "", fmt.Errorf("not an upload url: %q", url)
	}
	return filepath.Join(fs.dir, filepath.FromSlash(rel)), nil
}

// RemoveImage deletes the file behind an URL returned by SaveImage.
func (fs *FileStore) RemoveImage(url string) error {
	p, err := fs.path(url)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PruneImages deletes the owner's images except keepURL.
func (fs *FileStore) PruneImages(kind string, ownerID uuid.UUID, keepURL string) error {
	keep, err := fs.path(keepURL)
	if err != nil {
		return err
	}
	ownerDir := filepath.Join(fs.dir, kind, ownerID.String())
	entries, err := os.ReadDir(ownerDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(ownerDir, e.Name())
		if p == keep {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}
