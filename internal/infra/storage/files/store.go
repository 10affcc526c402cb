package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"padicrib/internal/app/policies"
)

var (
	ErrPathEscape = errors.New("files: path escapes storage root")
	ErrNotFound   = errors.New("files: not found")
	ErrEmptyName  = errors.New("files: file name is required")
)

// Store keeps files under one directory. Public stores set URLPrefix so the
// recorded path doubles as the URL the file is served from.
type Store struct {
	Root      string
	URLPrefix string
}

var _ policies.FileStore = (*Store)(nil)

func New(root, urlPrefix string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("files: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("files: create root: %w", err)
	}
	return &Store{Root: abs, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save writes the upload under a random name keeping the original extension.
func (s *Store) Save(ctx context.Context, up policies.Upload) (string, error) {
	if up.Body == nil {
		return "", ErrEmptyName
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(up.Name)))
	dst := filepath.Join(s.Root, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("files: create %s: %w", name, err)
	}
	if _, err := io.Copy(f, up.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("files: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	if s.URLPrefix != "" {
		return s.URLPrefix + "/" + name, nil
	}
	return name, nil
}

// Resolve maps a recorded path to an existing file strictly inside Root.
func (s *Store) Resolve(path string) (string, error) {
	name := strings.TrimSpace(path)
	if s.URLPrefix != "" {
		name = strings.TrimPrefix(name, s.URLPrefix+"/")
	}
	if name == "" {
		return "", ErrEmptyName
	}
	full := filepath.Join(s.Root, filepath.FromSlash(name))
	rel, err := filepath.Rel(s.Root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", ErrPathEscape
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrNotFound
	}
	return full, nil
}

// Remove deletes a stored file; already missing files are not an error.
func (s *Store) Remove(_ context.Context, path string) error {
	full, err := s.Resolve(path)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.Remove(full)
}
