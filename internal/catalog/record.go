// Package catalog holds the shared per-project metadata record and the merge
// operation that folds freshly published media into it.
//
// The record is created, updated, and deleted by the external admin API; this
// pipeline only merges media references in. Both sides read-modify-write the
// same JSON document with no locking; the later write wins. That hazard is
// accepted and must stay observable, so the merger takes no locks either.
package catalog

import "fmt"

// MediaRef is one entry in a project's media gallery. Src is unique within a
// record's media list, and list order is display order.
type MediaRef struct {
	Type string `json:"type"`
	Src  string `json:"src"`
}

// ProjectRecord is the per-project metadata document at
// projects/{category}/{id}/metadata.json. Identity is (category, id).
type ProjectRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Area        string     `json:"area"`
	Description string     `json:"description"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
	Cover       string     `json:"cover"`
	Media       []MediaRef `json:"media"`
}

// RecordKey is the storage key of a project's metadata record.
func RecordKey(category, projectID string) string {
	return fmt.Sprintf("projects/%s/%s/metadata.json", category, projectID)
}

// HasMedia reports whether the record already references src.
func (r *ProjectRecord) HasMedia(src string) bool {
	for _, m := range r.Media {
		if m.Src == src {
			return true
		}
	}
	return false
}
