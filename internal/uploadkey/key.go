// Package uploadkey parses storage keys written under the uploads/ namespace.
//
// The admin upload flow writes objects at
// uploads/{category}/{projectID}/{roleFolder}/{filename}, where roleFolder
// is "cover" for a project's cover slot and "original" for gallery media.
// Keys that do not match this grammar are not processing candidates.
package uploadkey

import (
	"errors"
	"fmt"
	"strings"
)

// Root is the namespace prefix for raw uploads.
const Root = "uploads"

// ErrMalformedKey reports a storage key that does not match the uploads grammar.
// Callers skip such keys; a malformed key never fails a whole event batch.
var ErrMalformedKey = errors.New("malformed upload key")

// Role says whether an uploaded asset is destined for a project's cover slot
// or its general media gallery.
type Role string

const (
	RoleCover   Role = "cover"
	RoleGallery Role = "gallery"
)

// Key is the parsed form of a valid uploads/ storage key.
type Key struct {
	Category  string
	ProjectID string
	Role      Role
	Filename  string
}

// Parse splits a storage key and validates it against the uploads grammar.
// A valid key has at least five slash-separated segments, is rooted at
// "uploads", and has non-empty category, project ID, and filename segments.
// The role is cover if "cover" appears as any intermediate segment.
func Parse(key string) (Key, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 5 || parts[0] != Root {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	k := Key{
		Category:  parts[1],
		ProjectID: parts[2],
		Role:      RoleGallery,
		Filename:  parts[len(parts)-1],
	}
	if k.Category == "" || k.ProjectID == "" || k.Filename == "" {
		return Key{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedKey, key)
	}

	for _, seg := range parts[3 : len(parts)-1] {
		if seg == "cover" {
			k.Role = RoleCover
			break
		}
	}
	return k, nil
}

// Valid reports whether key matches the uploads grammar.
func Valid(key string) bool {
	_, err := Parse(key)
	return err == nil
}
