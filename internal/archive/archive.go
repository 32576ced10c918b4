// Package archive persists raw order payloads before any external side
// effect. Submissions that drift between the LIMS and the status database can
// always be replayed from the archived bytes. Writes are create-only: an
// archived payload is never overwritten.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Driver identifies a concrete archive backend implementation.
type Driver string

const (
	// DriverFilesystem stores payloads under a local directory (default, dev).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores payloads in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps payloads in process memory (tests).
	DriverMemory Driver = "memory"
)

// ErrExists is returned when a key is already archived.
var ErrExists = errors.New("archive: payload already exists")

// Info describes an archived payload.
type Info struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size_bytes"`
	SHA256   string    `json:"sha256"`
	StoredAt time.Time `json:"stored_at"`
}

// Store is the archive contract consumed by the intake pipeline.
type Store interface {
	Archive(ctx context.Context, key string, payload []byte) error
	Fetch(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// OpenFromEnv selects an archive backend using environment variables.
//
//	CG_ARCHIVE_DRIVER: fs|s3|memory (default fs)
//	CG_ARCHIVE_PATH: root directory for the fs driver (default ./orderdata)
//	CG_ARCHIVE_S3_BUCKET: bucket name, required for s3
//	CG_ARCHIVE_S3_REGION: region (default us-east-1)
//	CG_ARCHIVE_S3_ENDPOINT: optional custom endpoint (MinIO)
//	CG_ARCHIVE_S3_PATH_STYLE: true|false (default false)
func OpenFromEnv(ctx context.Context) (Store, error) {
	driver := os.Getenv("CG_ARCHIVE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("CG_ARCHIVE_PATH"))
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		bucket := os.Getenv("CG_ARCHIVE_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("CG_ARCHIVE_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, S3Config{
			Bucket:          bucket,
			Region:          os.Getenv("CG_ARCHIVE_S3_REGION"),
			Endpoint:        os.Getenv("CG_ARCHIVE_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("CG_ARCHIVE_S3_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("CG_ARCHIVE_S3_SECRET_KEY"),
			PathStyle:       strings.EqualFold(os.Getenv("CG_ARCHIVE_S3_PATH_STYLE"), "true"),
		})
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}

// sanitizeKey rejects keys that could escape the archive root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("archive: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("archive: invalid key %q", key)
	}
	return key, nil
}
