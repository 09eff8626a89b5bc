package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// localProvider keeps objects on disk under <root>/<category>/<key>. It backs
// development and test runs; the public URLs it hands out assume the HTTP
// server mounts the root at /uploads.
type localProvider struct {
	log     *logger.Logger
	root    string
	baseURL string
}

func NewLocalProvider(logg *logger.Logger) (Provider, error) {
	root := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if root == "" {
		root = "data/uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage root %q: %w", root, err)
	}
	base := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")), "/")
	if base == "" {
		base = "/uploads"
	}
	logg.With("component", "LocalStorage").Info("local object storage ready", "root", root, "base_url", base)
	return &localProvider{
		log:     logg.With("component", "LocalStorage"),
		root:    root,
		baseURL: base,
	}, nil
}

// Root exposes the storage directory so the router can serve it statically.
func (p *localProvider) Root() string { return p.root }

func (p *localProvider) path(category Category, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.root, string(category), filepath.FromSlash(k)), nil
}

func (p *localProvider) Put(ctx context.Context, category Category, key string, contentType string, r io.Reader) error {
	path, err := p.path(category, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close object: %w", err)
	}
	// Rename so readers never observe a half-written object.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish object: %w", err)
	}
	return nil
}

func (p *localProvider) Get(ctx context.Context, category Category, key string) (io.ReadCloser, error) {
	path, err := p.path(category, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object %s/%s: %w", category, key, err)
	}
	return f, nil
}

func (p *localProvider) Delete(ctx context.Context, category Category, key string) error {
	path, err := p.path(category, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s/%s: %w", category, key, err)
	}
	return nil
}

func (p *localProvider) Attrs(ctx context.Context, category Category, key string) (*ObjectAttrs, error) {
	path, err := p.path(category, key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat object %s/%s: %w", category, key, err)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())))
	return &ObjectAttrs{
		Size:        info.Size(),
		ContentType: contentTypeForKey(key),
		Updated:     info.ModTime().UTC(),
		ETag:        hex.EncodeToString(sum[:8]),
	}, nil
}

func (p *localProvider) PublicURL(category Category, key string) string {
	k, err := cleanKey(key)
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s/%s/%s", p.baseURL, category, k)
}
