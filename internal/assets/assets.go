package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/leitbox/internal/domain"
)

// AllowedExtensions lists the image types accepted for upload and import.
var AllowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// ErrUnsupportedImage is returned for uploads with an extension outside AllowedExtensions.
var ErrUnsupportedImage = fmt.Errorf("%w: unsupported image type", domain.ErrValidation)

// Store keeps card images in a single directory.
type Store struct {
	Dir string
}

// NewStore creates the image directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// IsImageFile reports whether name has an allowed image extension.
func IsImageFile(name string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// SaveUpload writes r under a fresh unique name keeping the extension of
// filename, and returns the stored path.
func (s *Store) SaveUpload(filename string, r io.Reader) (string, error) {
	if !IsImageFile(filename) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, filename)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close image %s: %w", path, err)
	}
	return path, nil
}

// Import copies an existing image file into the store under its own base
// name, as the folder importer does. When that name already holds different
// bytes the copy gets a unique prefix instead; identical bytes are reused.
func (s *Store) Import(src string) (string, error) {
	dst := filepath.Join(s.Dir, filepath.Base(src))
	if sameFile(src, dst) {
		return dst, nil
	}
	if _, err := os.Stat(dst); err == nil {
		same, err := sameContent(src, dst)
		if err != nil {
			return "", err
		}
		if same {
			return dst, nil
		}
		dst = filepath.Join(s.Dir, uuid.NewString()+"-"+filepath.Base(src))
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return dst, nil
}

func sameContent(a, b string) (bool, error) {
	ab, err := os.ReadFile(a)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", a, err)
	}
	bb, err := os.ReadFile(b)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", b, err)
	}
	return bytes.Equal(ab, bb), nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// DeleteImageFile removes a local image. Empty refs, remote URLs and files
// already gone are not errors.
func (s *Store) DeleteImageFile(ref string) error {
	if ref == "" || domain.IsRemoteRef(ref) {
		return nil
	}
	err := os.Remove(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", ref, err)
	}
	slog.Debug("Image deleted", "path", ref)
	return nil
}

// FS exposes the image directory for serving.
func (s *Store) FS() fs.FS {
	return os.DirFS(s.Dir)
}
