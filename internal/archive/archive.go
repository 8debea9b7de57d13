// Package archive stores alerts pruned from the delivered log in
// S3-compatible storage. When no bucket is configured the Noop archiver is
// used and pruned alerts are discarded.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pulse/internal/config"
	"github.com/hyperengineering/pulse/internal/reminder"
	"github.com/hyperengineering/pulse/internal/types"
)

// Compile-time interface checks
var (
	_ reminder.Archiver = (*S3Archiver)(nil)
	_ reminder.Archiver = Noop{}
)

// s3Client defines the minimal minio.Client operations used by S3Archiver.
// This interface enables testing with mock implementations.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// S3Archiver writes each batch of pruned alerts as one JSON Lines object.
type S3Archiver struct {
	client s3Client
	bucket string
	now    func() time.Time
}

// Archive uploads alerts as alerts/<date>/<ulid>.jsonl. An empty batch is a
// no-op.
func (a *S3Archiver) Archive(ctx context.Context, alerts []types.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := encodeJSONL(alerts)
	if err != nil {
		return fmt.Errorf("encode archive batch: %w", err)
	}

	key := objectKey(a.now())
	if err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), "application/x-ndjson"); err != nil {
		return fmt.Errorf("upload archive batch to S3: %w", err)
	}
	return nil
}

// Noop discards pruned alerts.
type Noop struct{}

// Archive does nothing.
func (Noop) Archive(context.Context, []types.Alert) error {
	return nil
}

// New creates the appropriate archiver based on configuration.
// Returns Noop when bucket is empty, S3Archiver otherwise.
func New(cfg config.ArchiveConfig) (reminder.Archiver, error) {
	if cfg.Bucket == "" {
		return Noop{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Archiver{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

func encodeJSONL(alerts []types.Alert) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range alerts {
		if err := enc.Encode(a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// objectKey returns the S3 object key for one archive batch.
// Convention: alerts/{yyyy-mm-dd}/{ulid}.jsonl
func objectKey(now time.Time) string {
	return "alerts/" + types.DateOf(now).String() + "/" + ulid.Make().String() + ".jsonl"
}
