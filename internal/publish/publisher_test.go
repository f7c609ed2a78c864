package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kzahran/portfolio-pipeline/internal/blob"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPublishTree_MasterManifestFirst(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"240/playlist.m3u8": "#EXTM3U",
		"240/segment000.ts": "seg",
		"480/playlist.m3u8": "#EXTM3U",
		"480/segment000.ts": "seg",
		"master.m3u8":       "#EXTM3U",
	})

	store := blob.NewMemoryStore()
	p := &Publisher{Store: store}

	keys, err := p.PublishTree(context.Background(), "bkt", dir, "projects/fit/showroom-9/media/cover/intro", "master.m3u8")
	if err != nil {
		t.Fatalf("PublishTree: %v", err)
	}
	if len(keys) != 5 {
		t.Fatalf("published %d keys, want 5", len(keys))
	}
	if keys[0] != "projects/fit/showroom-9/media/cover/intro/master.m3u8" {
		t.Errorf("first key = %s, want master manifest", keys[0])
	}

	// Every file landed exactly once under the destination prefix.
	listed, err := store.List(context.Background(), "bkt", "projects/fit/showroom-9/media/cover/intro/")
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 5 {
		t.Errorf("store holds %d keys, want 5", len(listed))
	}
}

func TestPublishTree_ContentTypes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"master.m3u8":       "#EXTM3U",
		"480/segment000.ts": "seg",
		"notes.txt":         "x",
	})

	store := blob.NewMemoryStore()
	p := &Publisher{Store: store}

	if _, err := p.PublishTree(context.Background(), "bkt", dir, "projects/a/b/media/v", "master.m3u8"); err != nil {
		t.Fatalf("PublishTree: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"projects/a/b/media/v/master.m3u8", "application/x-mpegURL"},
		{"projects/a/b/media/v/480/segment000.ts", "video/MP2T"},
		{"projects/a/b/media/v/notes.txt", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := store.ContentType("bkt", tt.key); got != tt.want {
			t.Errorf("content type of %s = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestPublishTree_UploadFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"master.m3u8": "#EXTM3U", "480/playlist.m3u8": "#EXTM3U"})

	store := blob.NewMemoryStore()
	store.PutErr = map[string]error{"480": errors.New("store unavailable")}
	p := &Publisher{Store: store}

	_, err := p.PublishTree(context.Background(), "bkt", dir, "projects/a/b/media/v", "master.m3u8")
	if err == nil {
		t.Fatal("expected publish error to propagate")
	}
}

func TestPublishFile(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "photo.webp")
	if err := os.WriteFile(local, []byte("webp-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := blob.NewMemoryStore()
	p := &Publisher{Store: store}

	key, err := p.PublishFile(context.Background(), "bkt", local, "projects/interior/loft-42/media", "photo.webp")
	if err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	if key != "projects/interior/loft-42/media/photo.webp" {
		t.Errorf("key = %s", key)
	}
	if got := store.ContentType("bkt", key); got != "image/webp" {
		t.Errorf("content type = %q, want image/webp", got)
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"photo.png", "photo"},
		{"intro.MP4", "intro"},
		{"archive.tar.gz", "archive.tar"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
