package artifact

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Publisher copies a saved artifact somewhere outside the reports root and
// returns where it went.
type Publisher interface {
	Publish(ctx context.Context, kind Kind, localPath string) (string, error)
}

// ObjectStore is the subset of s3client.Client the bucket publisher uses.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
	ObjectURI(key string) string
}

// BucketPublisher uploads artifacts to {prefix}/{runID}/{category}/{file}.
type BucketPublisher struct {
	store  ObjectStore
	fs     afero.Fs
	prefix string
	runID  string
}

// NewBucketPublisher returns a publisher writing under prefix/runID.
func NewBucketPublisher(store ObjectStore, fs afero.Fs, prefix, runID string) *BucketPublisher {
	return &BucketPublisher{
		store:  store,
		fs:     fs,
		prefix: strings.Trim(prefix, "/"),
		runID:  runID,
	}
}

// Key returns the object key for a local artifact.
func (p *BucketPublisher) Key(kind Kind, localPath string) string {
	parts := make([]string, 0, 4)
	if p.prefix != "" {
		parts = append(parts, p.prefix)
	}
	parts = append(parts, p.runID, category(kind), filepath.Base(localPath))
	return path.Join(parts...)
}

func (p *BucketPublisher) Publish(ctx context.Context, kind Kind, localPath string) (string, error) {
	data, err := afero.ReadFile(p.fs, localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}
	key := p.Key(kind, localPath)
	if err := p.store.PutObject(ctx, key, data, kind.ContentType()); err != nil {
		return "", err
	}
	return p.store.ObjectURI(key), nil
}

func category(kind Kind) string {
	switch kind {
	case KindTrace:
		return "traces"
	case KindScreenshot:
		return "screenshots"
	case KindVideo:
		return "videos"
	case KindDownload:
		return "downloads"
	default:
		return "other"
	}
}
