package backup

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/export"
)

// Sink stores backup files
type Sink interface {
	// Write stores data under name and returns where it went
	Write(ctx context.Context, name string, data []byte) (string, error)
	Close() error
}

// NewSink returns a GCS sink when a bucket is configured, a local one otherwise
func NewSink(ctx context.Context, cfg config.BackupConfig) (Sink, error) {
	if cfg.GCSBucket != "" {
		return NewGCSSink(ctx, cfg)
	}
	return NewLocalSink(cfg.Dir), nil
}

// LocalSink writes backups to a directory
type LocalSink struct {
	dir string
}

// NewLocalSink creates a sink writing under dir
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{dir: dir}
}

// Write stores data as dir/name
func (s *LocalSink) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create backup directory")
	}

	target := filepath.Join(s.dir, filepath.Base(name))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write backup file")
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(err, "failed to move backup file into place")
	}
	return target, nil
}

// Close is a no-op
func (s *LocalSink) Close() error { return nil }

// GCSSink uploads backups to a Google Cloud Storage bucket
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink creates a GCS sink. Credentials come from the configured file
// or the environment's default credentials.
func NewGCSSink(ctx context.Context, cfg config.BackupConfig) (*GCSSink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCS client")
	}

	return &GCSSink{client: client, bucket: cfg.GCSBucket, prefix: cfg.GCSPrefix}, nil
}

// Write uploads data as prefix/name
func (s *GCSSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	object := path.Join(s.prefix, name)

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = export.ContentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "failed to upload %s", object)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to finalize %s", object)
	}

	return "gs://" + s.bucket + "/" + object, nil
}

// Close closes the GCS client
func (s *GCSSink) Close() error {
	return s.client.Close()
}
