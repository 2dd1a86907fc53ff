package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-insight/pkg/config"
)

const (
	MinPresignExpiry = time.Minute
	MaxPresignExpiry = 7 * 24 * time.Hour
)

// ErrStorageUnavailable is returned by the Unavailable store.
var ErrStorageUnavailable = errors.New("object storage is not configured")

// ObjectStore persists recording blobs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Name() string
}

// New builds the store selected by cfg.Provider. Missing credentials yield
// Unavailable instead of an error so the API can still boot.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.Provider {
	case "minio":
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			if logger != nil {
				logger.Warn("storage.disabled", zap.String("reason", "missing minio credentials"))
			}
			return Unavailable{}, nil
		}
		return NewMinIOStore(ctx, cfg)
	case "s3":
		return NewS3Store(ctx, cfg)
	case "none", "":
		return Unavailable{}, nil
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// RecordingKey returns the tenant-prefixed object key of a recording blob.
func RecordingKey(orgID, recordingID uuid.UUID, fileName string) (string, error) {
	if orgID == uuid.Nil {
		return "", fmt.Errorf("recording key requires an organization id")
	}
	return path.Join("org", orgID.String(), "recordings", recordingID.String(), SanitizeFileName(fileName)), nil
}

// SanitizeFileName keeps [A-Za-z0-9._-] and replaces anything else with '_'.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "recording"
	}
	return out
}

// ClampPresignExpiry bounds expiry to what S3 signatures accept.
func ClampPresignExpiry(expiry time.Duration) time.Duration {
	if expiry <= 0 {
		return time.Hour
	}
	if expiry < MinPresignExpiry {
		return MinPresignExpiry
	}
	if expiry > MaxPresignExpiry {
		return MaxPresignExpiry
	}
	return expiry
}

// Unavailable is the store used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Put(context.Context, string, io.Reader, int64, string) error {
	return ErrStorageUnavailable
}

func (Unavailable) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrStorageUnavailable
}

func (Unavailable) Delete(context.Context, string) error { return ErrStorageUnavailable }

func (Unavailable) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrStorageUnavailable
}

func (Unavailable) Name() string { return "none" }
