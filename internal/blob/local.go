package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"attendboard/internal/metrics"
)

// BannerDir is the subdirectory banner images are written to.
const BannerDir = "banners"

// Local writes blobs to disk under root/banners and returns references
// under publicPrefix, which the HTTP layer serves from root.
type Local struct {
	root         string
	publicPrefix string
}

// NewLocal creates a disk-backed store.
func NewLocal(root, publicPrefix string) *Local {
	return &Local{root: root, publicPrefix: publicPrefix}
}

// Root is the directory served at the public prefix.
func (l *Local) Root() string { return l.root }

// EnsureDir creates the banner directory.
func (l *Local) EnsureDir() error {
	return os.MkdirAll(filepath.Join(l.root, BannerDir), 0o755)
}

// Put streams r into a uniquely named file. The bytes go to a temp file in
// the same directory first, so a failed copy never leaves a partial blob
// under the final name.
func (l *Local) Put(ctx context.Context, r io.Reader, filenameHint string) (string, error) {
	dir := filepath.Join(l.root, BannerDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.BlobUploads.WithLabelValues("local", metrics.OutcomeError).Inc()
		return "", classify("Failed to create upload directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		metrics.BlobUploads.WithLabelValues("local", metrics.OutcomeError).Inc()
		return "", classify("Failed to create file", err)
	}
	discard := func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("file", tmp.Name()).Warn("blob: remove partial upload failed")
		}
	}

	n, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r})
	if err != nil {
		discard()
		metrics.BlobUploads.WithLabelValues("local", metrics.OutcomeError).Inc()
		return "", classify("Failed to write file", err)
	}
	if err := tmp.Close(); err != nil {
		discard()
		metrics.BlobUploads.WithLabelValues("local", metrics.OutcomeError).Inc()
		return "", classify("Failed to write file", err)
	}

	name := fmt.Sprintf("%s.%s", uuid.NewString(), Ext(filenameHint))
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		discard()
		metrics.BlobUploads.WithLabelValues("local", metrics.OutcomeError).Inc()
		return "", classify("Failed to create file", err)
	}

	metrics.BlobUploads.WithLabelValues("local", metrics.OutcomeOK).Inc()
	metrics.UploadedBytes.Add(float64(n))
	log.WithFields(log.Fields{"file": name, "bytes": n}).Debug("blob stored")
	return path.Join(l.publicPrefix, BannerDir, name), nil
}
