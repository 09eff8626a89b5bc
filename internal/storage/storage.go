package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// Category namespaces object keys so one provider can hold unrelated kinds
// of content without key collisions.
type Category string

const (
	CategoryAvatar  Category = "avatar"
	CategoryImaging Category = "imaging"
	CategoryReport  Category = "report"
)

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

// Provider is the object store the app writes avatars, imaging uploads and
// generated reports to. Implementations: local disk, S3, GCS.
type Provider interface {
	Put(ctx context.Context, category Category, key string, contentType string, r io.Reader) error
	Get(ctx context.Context, category Category, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, category Category, key string) error
	Attrs(ctx context.Context, category Category, key string) (*ObjectAttrs, error)
	PublicURL(category Category, key string) string
}

// FromEnv picks the provider named by STORAGE_PROVIDER. Local disk is the
// default so a bare checkout runs without cloud credentials.
func FromEnv(logg *logger.Logger) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_PROVIDER")))
	switch mode {
	case "", "local":
		return NewLocalProvider(logg)
	case "s3":
		return NewS3Provider(logg)
	case "gcs":
		return NewGCSProvider(logg)
	default:
		return nil, fmt.Errorf("unknown STORAGE_PROVIDER %q (want local, s3 or gcs)", mode)
	}
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return key, nil
}
