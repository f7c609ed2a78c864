package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/blob"
	"github.com/kzahran/portfolio-pipeline/internal/mediakind"
)

// Update is one media reference to fold into a project record. Src is the
// primary published path: the master playlist for videos, the single output
// key for images and passthrough files.
type Update struct {
	Kind  mediakind.Kind
	Src   string
	Cover bool
}

// Merger performs the read-modify-write merge against the metadata record.
type Merger struct {
	Store blob.Store

	// Now stamps updatedAt; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// Merge loads the project record, applies the updates, and persists the
// record if anything changed. It returns whether a write happened.
//
// An absent record is not an error: record creation belongs to the admin
// API, so the merge is skipped and the published media stays unreferenced
// until a later merge or an out-of-band repair.
func (m *Merger) Merge(ctx context.Context, bucket, category, projectID string, updates []Update) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}

	key := RecordKey(category, projectID)
	data, err := m.Store.Get(ctx, bucket, key)
	if err != nil {
		if blob.IsNotFound(err) {
			log.Warn().
				Str("key", key).
				Msg("Metadata record absent, nothing to merge")
			return false, nil
		}
		return false, fmt.Errorf("load metadata record %s: %w", key, err)
	}

	var record ProjectRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return false, fmt.Errorf("decode metadata record %s: %w", key, err)
	}

	changed := false
	for _, u := range updates {
		if u.Cover {
			// The newest cover upload always wins the cover slot.
			if record.Cover != u.Src {
				record.Cover = u.Src
				changed = true
			}
			continue
		}
		if record.HasMedia(u.Src) {
			log.Debug().Str("src", u.Src).Msg("Media reference already present, skipping")
			continue
		}
		record.Media = append(record.Media, MediaRef{Type: string(u.Kind), Src: u.Src})
		changed = true
	}

	if !changed {
		log.Debug().Str("key", key).Msg("Metadata record unchanged, no write")
		return false, nil
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	record.UpdatedAt = now().UTC().Format(time.RFC3339)

	out, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode metadata record %s: %w", key, err)
	}
	if err := m.Store.Put(ctx, bucket, key, bytes.NewReader(out), "application/json"); err != nil {
		return false, fmt.Errorf("store metadata record %s: %w", key, err)
	}

	log.Info().
		Str("key", key).
		Int("mediaCount", len(record.Media)).
		Str("cover", record.Cover).
		Msg("Metadata record merged")
	return true, nil
}
