// Package publish republishes local transcode output trees into the
// projects/ namespace of the blob store.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/blob"
	"github.com/kzahran/portfolio-pipeline/internal/mediakind"
)

// Publisher uploads every file under a local directory tree to a destination
// prefix, preserving relative paths and tagging content types from the fixed
// extension table.
type Publisher struct {
	Store blob.Store
}

// PublishTree walks localDir and uploads each regular file to
// destPrefix/{relativePath}. It returns the published keys in visit order.
//
// firstRel, when non-empty, names a tree-relative file (slash-separated)
// that must be uploaded first and lead the returned key list. Video
// packages pass the master playlist here: downstream consumers rely on the
// first key of a video result being the master manifest.
func (p *Publisher) PublishTree(ctx context.Context, bucket, localDir, destPrefix, firstRel string) ([]string, error) {
	var keys []string

	publish := func(rel string) error {
		key := destPrefix + "/" + rel
		contentType := mediakind.ContentTypeFor(rel)
		localPath := filepath.Join(localDir, filepath.FromSlash(rel))
		if err := blob.PutFile(ctx, p.Store, bucket, key, localPath, contentType); err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
		keys = append(keys, key)
		return nil
	}

	if firstRel != "" {
		if err := publish(firstRel); err != nil {
			return nil, err
		}
	}

	err := filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == firstRel {
			return nil // already published ahead of the walk
		}
		return publish(rel)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("destPrefix", destPrefix).
		Int("files", len(keys)).
		Msg("Output tree published")
	return keys, nil
}

// PublishFile uploads a single local file to destPrefix/{name} and returns
// the published key.
func (p *Publisher) PublishFile(ctx context.Context, bucket, localPath, destPrefix, name string) (string, error) {
	key := destPrefix + "/" + name
	if err := blob.PutFile(ctx, p.Store, bucket, key, localPath, mediakind.ContentTypeFor(name)); err != nil {
		return "", fmt.Errorf("publish %s: %w", key, err)
	}
	return key, nil
}

// BaseName strips the extension from a filename, for deriving output names.
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
