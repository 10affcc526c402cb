package ginserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"padicrib/internal/app/policies"
)

const defaultMaxUpload = 5 << 20

var ErrInvalidUpload = errors.New("upload: invalid file")

// Uploads validates image uploads and writes them to the public or private store.
type Uploads struct {
	Public   policies.FileStore
	Private  policies.FileStore
	MaxBytes int64
	Logger   *slog.Logger
}

func (u Uploads) maxBytes() int64 {
	if u.MaxBytes > 0 {
		return u.MaxBytes
	}
	return defaultMaxUpload
}

// save stores one image; anything but image/jpeg, png, webp or gif is refused.
func (u Uploads) save(ctx context.Context, store policies.FileStore, fh *multipart.FileHeader) (string, error) {
	if store == nil {
		return "", errors.New("upload: file store not configured")
	}
	limit := u.maxBytes()
	if fh.Size <= 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidUpload, fh.Filename)
	}
	if fh.Size > limit {
		return "", fmt.Errorf("%w: %s is too large (max %d MB)", ErrInvalidUpload, fh.Filename, limit>>20)
	}
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", fmt.Errorf("upload: read %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: %s is too large (max %d MB)", ErrInvalidUpload, fh.Filename, limit>>20)
	}
	contentType := http.DetectContentType(data)
	if !isAllowedImageType(contentType) {
		return "", fmt.Errorf("%w: unsupported content type %s", ErrInvalidUpload, contentType)
	}
	return store.Save(ctx, policies.Upload{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
}

// saveAll stores every file or none of them.
func (u Uploads) saveAll(ctx context.Context, store policies.FileStore, headers []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(headers))
	for _, fh := range headers {
		path, err := u.save(ctx, store, fh)
		if err != nil {
			u.discard(ctx, store, paths...)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// discard removes files written for a request that then failed.
func (u Uploads) discard(ctx context.Context, store policies.FileStore, paths ...string) {
	if store == nil {
		return
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := store.Remove(ctx, p); err != nil && u.Logger != nil {
			u.Logger.WarnContext(ctx, "upload cleanup failed", "path", p, "error", err)
		}
	}
}

func isAllowedImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	default:
		return false
	}
}

func firstFile(headers []*multipart.FileHeader) []*multipart.FileHeader {
	if len(headers) == 0 {
		return nil
	}
	return headers[:1]
}
