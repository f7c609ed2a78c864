package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kzahran/portfolio-pipeline/internal/blob"
	"github.com/kzahran/portfolio-pipeline/internal/mediakind"
)

const testBucket = "portfolio"

func seedRecord(t *testing.T, store *blob.MemoryStore, r ProjectRecord) {
	t.Helper()
	data, err := json.MarshalIndent(&r, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	store.Seed(testBucket, RecordKey(r.Category, r.ID), data, "application/json")
}

func loadRecord(t *testing.T, store *blob.MemoryStore, category, id string) ProjectRecord {
	t.Helper()
	data, err := store.Get(context.Background(), testBucket, RecordKey(category, id))
	if err != nil {
		t.Fatal(err)
	}
	var r ProjectRecord
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	return r
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
}

func TestMerge_AppendsGalleryMedia(t *testing.T) {
	store := blob.NewMemoryStore()
	seedRecord(t, store, ProjectRecord{
		ID: "loft-42", Category: "interior", Title: "Loft 42",
		CreatedAt: "2026-01-01T00:00:00Z",
		Media:     []MediaRef{{Type: "image", Src: "projects/interior/loft-42/media/old.webp"}},
	})

	m := &Merger{Store: store, Now: fixedNow}
	changed, err := m.Merge(context.Background(), testBucket, "interior", "loft-42", []Update{
		{Kind: mediakind.Image, Src: "projects/interior/loft-42/media/photo.webp"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !changed {
		t.Fatal("expected a write")
	}

	r := loadRecord(t, store, "interior", "loft-42")
	if len(r.Media) != 2 {
		t.Fatalf("media count = %d, want 2", len(r.Media))
	}
	// Prior entries keep their order; new entries append at the end.
	if r.Media[0].Src != "projects/interior/loft-42/media/old.webp" {
		t.Errorf("existing entry moved: %+v", r.Media)
	}
	if r.Media[1].Src != "projects/interior/loft-42/media/photo.webp" || r.Media[1].Type != "image" {
		t.Errorf("new entry wrong: %+v", r.Media[1])
	}
	if r.UpdatedAt != "2026-08-29T12:00:00Z" {
		t.Errorf("updatedAt = %q", r.UpdatedAt)
	}
	if r.Cover != "" {
		t.Errorf("gallery merge touched cover: %q", r.Cover)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	store := blob.NewMemoryStore()
	seedRecord(t, store, ProjectRecord{ID: "loft-42", Category: "interior", CreatedAt: "2026-01-01T00:00:00Z"})

	m := &Merger{Store: store, Now: fixedNow}
	updates := []Update{{Kind: mediakind.Video, Src: "projects/interior/loft-42/media/tour/master.m3u8"}}

	if _, err := m.Merge(context.Background(), testBucket, "interior", "loft-42", updates); err != nil {
		t.Fatal(err)
	}
	first, _ := store.Get(context.Background(), testBucket, RecordKey("interior", "loft-42"))

	changed, err := m.Merge(context.Background(), testBucket, "interior", "loft-42", updates)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second merge of identical updates wrote the record")
	}
	second, _ := store.Get(context.Background(), testBucket, RecordKey("interior", "loft-42"))
	if !bytes.Equal(first, second) {
		t.Error("record bytes changed on redundant merge")
	}

	r := loadRecord(t, store, "interior", "loft-42")
	if len(r.Media) != 1 {
		t.Errorf("media count = %d, want 1 (no duplicate src)", len(r.Media))
	}
}

func TestMerge_CoverOverwrites(t *testing.T) {
	store := blob.NewMemoryStore()
	seedRecord(t, store, ProjectRecord{
		ID: "showroom-9", Category: "fit", CreatedAt: "2026-01-01T00:00:00Z",
		Cover: "projects/fit/showroom-9/media/cover/old/master.m3u8",
	})

	m := &Merger{Store: store, Now: fixedNow}
	changed, err := m.Merge(context.Background(), testBucket, "fit", "showroom-9", []Update{
		{Kind: mediakind.Video, Src: "projects/fit/showroom-9/media/cover/intro/master.m3u8", Cover: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a write")
	}

	r := loadRecord(t, store, "fit", "showroom-9")
	if r.Cover != "projects/fit/showroom-9/media/cover/intro/master.m3u8" {
		t.Errorf("cover = %q, want new cover", r.Cover)
	}
	// Cover uploads never join the gallery list.
	if len(r.Media) != 0 {
		t.Errorf("cover merge appended to media: %+v", r.Media)
	}
}

func TestMerge_RecordAbsent(t *testing.T) {
	store := blob.NewMemoryStore()
	m := &Merger{Store: store, Now: fixedNow}

	changed, err := m.Merge(context.Background(), testBucket, "interior", "ghost", []Update{
		{Kind: mediakind.Image, Src: "projects/interior/ghost/media/photo.webp"},
	})
	if err != nil {
		t.Fatalf("absent record must not error: %v", err)
	}
	if changed {
		t.Error("absent record must not be created by the pipeline")
	}
	if _, err := store.Get(context.Background(), testBucket, RecordKey("interior", "ghost")); !blob.IsNotFound(err) {
		t.Error("merge created a record")
	}
}

func TestMerge_UnreadableRecord(t *testing.T) {
	store := blob.NewMemoryStore()
	store.Seed(testBucket, RecordKey("interior", "loft-42"), []byte("{not json"), "application/json")

	m := &Merger{Store: store, Now: fixedNow}
	_, err := m.Merge(context.Background(), testBucket, "interior", "loft-42", []Update{
		{Kind: mediakind.Image, Src: "x"},
	})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMerge_NoUpdates(t *testing.T) {
	store := blob.NewMemoryStore()
	m := &Merger{Store: store, Now: fixedNow}
	changed, err := m.Merge(context.Background(), testBucket, "interior", "loft-42", nil)
	if err != nil || changed {
		t.Errorf("empty merge = (%v, %v), want (false, nil)", changed, err)
	}
}

// TestMerge_LastWriterWins pins the accepted race: two concurrent
// read-modify-write cycles against the same record, where the later write
// silently discards the earlier merge's contribution. The store's GetHook
// runs a competing full merge after this merger has read its (now stale)
// copy.
func TestMerge_LastWriterWins(t *testing.T) {
	store := blob.NewMemoryStore()
	seedRecord(t, store, ProjectRecord{ID: "loft-42", Category: "interior", CreatedAt: "2026-01-01T00:00:00Z"})

	competing := &Merger{Store: store, Now: fixedNow}
	interleaved := false
	store.GetHook = func(bucket, key string) {
		if interleaved {
			return
		}
		interleaved = true
		_, err := competing.Merge(context.Background(), testBucket, "interior", "loft-42", []Update{
			{Kind: mediakind.Image, Src: "projects/interior/loft-42/media/first.webp"},
		})
		if err != nil {
			t.Errorf("competing merge: %v", err)
		}
	}

	m := &Merger{Store: store, Now: fixedNow}
	if _, err := m.Merge(context.Background(), testBucket, "interior", "loft-42", []Update{
		{Kind: mediakind.Image, Src: "projects/interior/loft-42/media/second.webp"},
	}); err != nil {
		t.Fatal(err)
	}

	r := loadRecord(t, store, "interior", "loft-42")
	if len(r.Media) != 1 || r.Media[0].Src != "projects/interior/loft-42/media/second.webp" {
		t.Fatalf("expected the later writer to win wholesale, got %+v", r.Media)
	}
}
