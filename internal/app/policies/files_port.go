package policies

import (
	"context"
	"io"
)

// FileRemover deletes a stored file. Callers treat failures as advisory.
type FileRemover interface {
	Remove(ctx context.Context, path string) error
}

// Upload is one incoming file. Name is only used for its extension.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileStore keeps uploads and returns the path recorded against them.
type FileStore interface {
	FileRemover
	Save(ctx context.Context, upload Upload) (string, error)
}
