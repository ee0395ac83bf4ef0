// Package storage saves uploaded blobs under a local root and hands back
// stable relative references. Records store only the reference, never bytes.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// Kind selects the validation rules for an upload.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
)

var allowedExtensions = map[Kind][]string{
	KindPhoto:    {".jpg", ".jpeg", ".png", ".gif", ".webp"},
	KindDocument: {".pdf", ".jpg", ".jpeg", ".png"},
}

const thumbWidth = 200

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

// Save writes the upload under <root>/<subfolder>/<uuid><ext> and returns
// the relative reference "subfolder/<uuid><ext>". Photo uploads also get a
// jpeg thumbnail next to the original.
func (s *Store) Save(file multipart.File, filename, subfolder string, kind Kind) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extAllowed(kind, ext) {
		return "", fmt.Errorf("file extension %q not allowed for %s uploads", ext, kind)
	}

	dir := filepath.Join(s.root, subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + ext
	full := filepath.Join(dir, name)

	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	if kind == KindPhoto {
		if err := s.writeThumbnail(full); err != nil {
			// the original is saved; a missing thumbnail is not fatal
			return filepath.ToSlash(filepath.Join(subfolder, name)), nil
		}
	}

	return filepath.ToSlash(filepath.Join(subfolder, name)), nil
}

// Delete removes a previously saved file by its relative reference. A
// missing file is not an error.
func (s *Store) Delete(ref string) error {
	if ref == "" {
		return nil
	}

	full := filepath.Join(s.root, filepath.FromSlash(ref))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path resolves a relative reference to an absolute path under the root.
func (s *Store) Path(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func (s *Store) writeThumbnail(full string) error {
	img, err := imaging.Open(full)
	if err != nil {
		return err
	}

	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	ext := filepath.Ext(full)
	thumbPath := strings.TrimSuffix(full, ext) + "_thumb.jpg"

	return imaging.Save(thumb, thumbPath, imaging.JPEGQuality(85))
}

func extAllowed(kind Kind, ext string) bool {
	for _, allowed := range allowedExtensions[kind] {
		if ext == allowed {
			return true
		}
	}
	return false
}
