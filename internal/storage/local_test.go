package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

func newLocalForTest(t *testing.T) Provider {
	t.Helper()
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "/uploads")
	logg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	p, err := NewLocalProvider(logg)
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}
	return p
}

func TestLocalProviderRoundTrip(t *testing.T) {
	p := newLocalForTest(t)
	ctx := context.Background()

	body := []byte("fundus photo bytes")
	if err := p.Put(ctx, CategoryImaging, "cases/abc/fundus.png", "image/png", bytes.NewReader(body)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := p.Get(ctx, CategoryImaging, "cases/abc/fundus.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("object body mismatch: want %q got %q", body, got)
	}

	attrs, err := p.Attrs(ctx, CategoryImaging, "cases/abc/fundus.png")
	if err != nil {
		t.Fatalf("Attrs: %v", err)
	}
	if attrs.Size != int64(len(body)) {
		t.Fatalf("attrs size: want %d got %d", len(body), attrs.Size)
	}
	if attrs.ContentType != "image/png" {
		t.Fatalf("attrs content type: want image/png got %q", attrs.ContentType)
	}

	if url := p.PublicURL(CategoryImaging, "cases/abc/fundus.png"); url != "/uploads/imaging/cases/abc/fundus.png" {
		t.Fatalf("public url: got %q", url)
	}

	if err := p.Delete(ctx, CategoryImaging, "cases/abc/fundus.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := p.Get(ctx, CategoryImaging, "cases/abc/fundus.png"); err == nil {
		t.Fatalf("expected Get after Delete to fail")
	}
	// Deleting twice stays quiet.
	if err := p.Delete(ctx, CategoryImaging, "cases/abc/fundus.png"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestLocalProviderRejectsTraversalKeys(t *testing.T) {
	p := newLocalForTest(t)
	ctx := context.Background()

	if err := p.Put(ctx, CategoryAvatar, "../outside.png", "image/png", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if err := p.Put(ctx, CategoryAvatar, "", "image/png", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}
