package filestore

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored file does not exist or the name
// escapes the storage root.
var ErrNotFound = errors.New("file not found")

// Store writes and reads opaque byte blobs under a single root directory.
// Files are written once under a generated name and never rewritten.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a Store rooted there.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// Save writes data under a random filename preserving ext (".jpg" when
// empty) and returns the generated filename.
func (s *Store) Save(data []byte, ext string) (string, error) {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.root, name), data, 0o644); err != nil {
		return "", fmt.Errorf("store file: %w", err)
	}
	return name, nil
}

// SaveNamed writes data under the exact name given. Callers own collision
// avoidance; existing files are never overwritten.
func (s *Store) SaveNamed(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("store file: %w", err)
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// Open returns the stored bytes for name, or ErrNotFound.
func (s *Store) Open(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// ContentType guesses a media type from the filename extension.
func (s *Store) ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// resolve joins name with the root and rejects anything that escapes it.
func (s *Store) resolve(name string) (string, error) {
	path := filepath.Join(s.root, filepath.Clean("/"+name))
	if path != s.root && !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", ErrNotFound
	}
	return path, nil
}
