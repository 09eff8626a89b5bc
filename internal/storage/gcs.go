package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// gcsProvider mirrors the s3 layout: one bucket, category-prefixed keys.
// GOOGLE_APPLICATION_CREDENTIALS or STORAGE_GCS_CREDENTIALS_FILE supplies
// auth; STORAGE_GCS_EMULATOR_HOST switches to an unauthenticated emulator.
type gcsProvider struct {
	log       *logger.Logger
	client    *gcstorage.Client
	bucket    string
	cdnDomain string
	baseURL   string
}

func NewGCSProvider(logg *logger.Logger) (Provider, error) {
	bucket := strings.TrimSpace(os.Getenv("STORAGE_GCS_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("missing STORAGE_GCS_BUCKET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var opts []option.ClientOption
	emulator := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_GCS_EMULATOR_HOST")), "/")
	if emulator != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", emulator)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		if creds := strings.TrimSpace(os.Getenv("STORAGE_GCS_CREDENTIALS_FILE")); creds != "" {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
		opts = append(opts, option.WithScopes(gcstorage.ScopeReadWrite))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	p := &gcsProvider{
		log:       logg.With("component", "GCSStorage"),
		client:    client,
		bucket:    bucket,
		cdnDomain: strings.TrimSpace(os.Getenv("STORAGE_CDN_DOMAIN")),
		baseURL:   emulator,
	}
	p.log.Info("gcs object storage ready", "bucket", bucket, "emulator", emulator != "")
	return p, nil
}

func (p *gcsProvider) objectKey(category Category, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", category, k), nil
}

func (p *gcsProvider) Put(ctx context.Context, category Category, key string, contentType string, r io.Reader) error {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := p.client.Bucket(p.bucket).Object(ok).NewWriter(ctx)
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", ok, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", ok, err)
	}
	return nil
}

// gcsReadCloser ties the reader's lifetime to its timeout context. Cancelling
// before the caller reads would hand back an empty object.
type gcsReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *gcsReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (p *gcsProvider) Get(ctx context.Context, category Category, key string) (io.ReadCloser, error) {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := p.client.Bucket(p.bucket).Object(ok).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("gcs open %s: %w", ok, err)
	}
	return &gcsReadCloser{ReadCloser: r, cancel: cancel}, nil
}

func (p *gcsProvider) Delete(ctx context.Context, category Category, key string) error {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := p.client.Bucket(p.bucket).Object(ok).Delete(ctx); err != nil {
		return fmt.Errorf("gcs delete %s: %w", ok, err)
	}
	return nil
}

func (p *gcsProvider) Attrs(ctx context.Context, category Category, key string) (*ObjectAttrs, error) {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	attrs, err := p.client.Bucket(p.bucket).Object(ok).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs attrs %s: %w", ok, err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}

func (p *gcsProvider) PublicURL(category Category, key string) string {
	ok, err := p.objectKey(category, key)
	if err != nil {
		return key
	}
	if p.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", p.cdnDomain, ok)
	}
	if p.baseURL != "" {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", p.baseURL, p.bucket, strings.ReplaceAll(ok, "/", "%2F"))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", p.bucket, ok)
}
