// Package blob persists uploaded images and hands back a reference the
// banner records can store.
package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"attendboard/internal/apperr"
)

// DefaultExt is used when the filename hint has no usable extension.
const DefaultExt = "jpg"

// Store accepts a byte stream and returns a stable reference (URL or path).
// Implementations generate unique storage names; the hint only contributes
// its extension.
type Store interface {
	Put(ctx context.Context, r io.Reader, filenameHint string) (string, error)
}

// Ext returns the lowercase extension of name without the dot, or
// DefaultExt when it is missing or not alphanumeric.
func Ext(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(filepath.Base(name)), ".")
	if ext == "" || len(ext) > 10 {
		return DefaultExt
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return DefaultExt
		}
	}
	return strings.ToLower(ext)
}

// classify turns a write failure into an apperr, separating oversized
// uploads from I/O faults.
func classify(msg string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.InvalidInput("File too large")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Blob("Upload aborted", err)
	}
	return apperr.Blob(msg, err)
}

// ctxReader stops a stream copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
