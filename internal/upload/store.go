// Package upload persists user-submitted images to local disk and
// hands back URLs the static file server can resolve.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploaded files into a single flat directory. Names are
// freshly minted UUIDs so client-supplied filenames never touch the
// filesystem.
type Store struct {
	dir string
}

// NewStore ensures dir exists and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies the multipart file to disk and returns the URL path it
// will be served under. Only the extension of the original filename is
// preserved, lowercased and sanity-checked.
func (s *Store) Save(file multipart.File, originalName string) (string, error) {
	name := uuid.NewString() + safeExtension(originalName)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return "/uploads/" + name, nil
}

func safeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return ext
	default:
		return ".png"
	}
}
