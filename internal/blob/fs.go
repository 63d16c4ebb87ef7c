package blob

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSStore stores blobs under root/bucket/path on the local filesystem.
type FSStore struct {
	root string
}

// NewFSStore returns a Store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("blob: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: dir}, nil
}

// Put writes data under bucket/prefix with a random file name and returns the name.
func (s *FSStore) Put(_ context.Context, bucket, prefix string, data []byte, contentType string) (string, error) {
	name := uuid.New().String() + extensionFor(contentType)
	dir := filepath.Join(s.root, bucket, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Get reads the object at bucket/path, or ErrNotFound.
func (s *FSStore) Get(_ context.Context, bucket, path string) (*Object, error) {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Object{Data: data, ContentType: contentType}, nil
}

// Delete removes the object at bucket/path; deleting a missing object is a no-op.
func (s *FSStore) Delete(_ context.Context, bucket, path string) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve joins bucket/path under the store root, rejecting paths that
// escape it.
func (s *FSStore) resolve(bucket, path string) (string, error) {
	full := filepath.Join(s.root, bucket, filepath.FromSlash(path))
	base := filepath.Clean(filepath.Join(s.root, bucket)) + string(filepath.Separator)
	if !strings.HasPrefix(full, base) {
		return "", ErrNotFound
	}
	return full, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		exts, _ := mime.ExtensionsByType(contentType)
		if len(exts) > 0 {
			return exts[0]
		}
		return ".bin"
	}
}
