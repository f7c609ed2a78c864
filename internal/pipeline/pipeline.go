// Package pipeline drives one batch of upload notifications through
// parse → classify → transcode → publish → merge.
//
// Notifications in a batch are processed strictly sequentially. Malformed
// keys and failed conversions are skipped; an infrastructure failure
// (download, publish, passthrough copy) aborts the remaining batch and is
// surfaced to the hosting runtime, which may redeliver. Redelivery is safe:
// output keys overwrite and the metadata merge deduplicates by source path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/blob"
	"github.com/kzahran/portfolio-pipeline/internal/catalog"
	"github.com/kzahran/portfolio-pipeline/internal/mediakind"
	"github.com/kzahran/portfolio-pipeline/internal/metrics"
	"github.com/kzahran/portfolio-pipeline/internal/publish"
	"github.com/kzahran/portfolio-pipeline/internal/transcode"
	"github.com/kzahran/portfolio-pipeline/internal/uploadkey"
)

// AssetResult is one processed asset in the batch summary. Keys holds the
// published keys; for videos, Keys[0] is always the master manifest.
type AssetResult struct {
	Kind   mediakind.Kind `json:"type"`
	Source string         `json:"original"`
	Keys   []string       `json:"converted"`
}

// Summary is the per-invocation result returned to the caller.
type Summary struct {
	Results []AssetResult `json:"results"`
	Skipped int           `json:"skipped"`
}

// Pipeline wires the stages together over one blob store.
type Pipeline struct {
	store     blob.Store
	images    *transcode.ImageTranscoder
	videos    *transcode.VideoTranscoder
	publisher *publish.Publisher
	merger    *catalog.Merger
	cfg       Config
}

// New builds a Pipeline from a store and the two encoder capabilities.
func New(store blob.Store, imageEnc transcode.ImageEncoder, videoEnc transcode.VideoEncoder, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		store:     store,
		images:    &transcode.ImageTranscoder{Encoder: imageEnc},
		videos:    &transcode.VideoTranscoder{Encoder: videoEnc, Renditions: cfg.Renditions},
		publisher: &publish.Publisher{Store: store},
		merger:    &catalog.Merger{Store: store},
		cfg:       cfg,
	}
}

// Run processes every record of the event in order and returns the batch
// summary. A non-nil error means processing stopped early; the summary still
// covers the notifications completed before the abort, and their side
// effects stand (no rollback).
func (p *Pipeline) Run(ctx context.Context, event events.S3Event) (Summary, error) {
	batchStart := time.Now()
	summary := Summary{}

	rec := metrics.New()
	defer func() {
		rec.Metric("BatchMs", float64(time.Since(batchStart).Milliseconds()), metrics.UnitMilliseconds)
		rec.Flush()
	}()

	for _, record := range event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			log.Warn().Str("rawKey", record.S3.Object.Key).Err(err).Msg("Unescapable object key, skipping")
			summary.Skipped++
			rec.Add("SkippedNotifications", 1)
			continue
		}

		bucket := p.cfg.Bucket
		if bucket == "" {
			bucket = record.S3.Bucket.Name
		}

		result, err := p.processOne(ctx, bucket, key, rec)
		if err != nil {
			// Infrastructure failure: abort the rest of the batch.
			rec.Count("BatchAborts")
			return summary, fmt.Errorf("processing %s: %w", key, err)
		}
		if result == nil {
			summary.Skipped++
			rec.Add("SkippedNotifications", 1)
			continue
		}
		summary.Results = append(summary.Results, *result)
	}

	log.Info().
		Int("processed", len(summary.Results)).
		Int("skipped", summary.Skipped).
		Dur("duration", time.Since(batchStart)).
		Msg("Batch complete")
	return summary, nil
}

// processOne handles a single notification. A nil, nil return means the
// notification was skipped (malformed key or dropped asset); an error means
// the batch must abort.
func (p *Pipeline) processOne(ctx context.Context, bucket, key string, rec *metrics.Recorder) (*AssetResult, error) {
	parsed, err := uploadkey.Parse(key)
	if err != nil {
		log.Warn().Str("key", key).Msg("Skipping key outside the uploads grammar")
		return nil, nil
	}

	logger := log.With().
		Str("key", key).
		Str("category", parsed.Category).
		Str("projectId", parsed.ProjectID).
		Logger()
	logger.Info().Msg("Processing upload")

	// Fresh scratch dir per notification, released whatever happens.
	scratch := filepath.Join(os.TempDir(), "upload-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	destPrefix := p.cfg.OutputPrefix + "/" + parsed.Category + "/" + parsed.ProjectID + "/media"
	if parsed.Role == uploadkey.RoleCover {
		destPrefix += "/cover"
	}

	kind := mediakind.Classify(parsed.Filename)
	var keys []string

	switch kind {
	case mediakind.Image:
		keys, err = p.processImage(ctx, bucket, key, parsed, scratch, destPrefix)
	case mediakind.Video:
		keys, err = p.processVideo(ctx, bucket, key, parsed, scratch, destPrefix)
	default:
		// Passthrough: copy server-side, no local round trip.
		dstKey := destPrefix + "/" + parsed.Filename
		if copyErr := p.store.Copy(ctx, bucket, key, dstKey); copyErr != nil {
			return nil, copyErr
		}
		keys = []string{dstKey}
	}
	if err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, nil // asset dropped, batch continues
	}

	rec.Add(processedMetric(kind), 1)

	update := catalog.Update{
		Kind:  kind,
		Src:   keys[0],
		Cover: parsed.Role == uploadkey.RoleCover,
	}
	if _, err := p.merger.Merge(ctx, bucket, parsed.Category, parsed.ProjectID, []catalog.Update{update}); err != nil {
		// The published artifacts stay unreferenced until a later merge or
		// out-of-band repair; the batch goes on.
		logger.Error().Err(err).Msg("Metadata merge failed — artifacts published but unreferenced")
		rec.Add("MergeFailures", 1)
	}

	return &AssetResult{Kind: kind, Source: key, Keys: keys}, nil
}

// processImage converts one image to WebP and publishes it. A conversion
// failure drops the asset (nil, nil); a download or publish failure aborts.
func (p *Pipeline) processImage(ctx context.Context, bucket, key string, parsed uploadkey.Key, scratch, destPrefix string) ([]string, error) {
	inputPath := filepath.Join(scratch, parsed.Filename)
	if err := p.store.Download(ctx, bucket, key, inputPath); err != nil {
		return nil, err
	}

	outputName := publish.BaseName(parsed.Filename) + ".webp"
	outputPath := filepath.Join(scratch, outputName)
	if err := p.images.Transcode(ctx, inputPath, outputPath); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Image conversion failed, dropping asset")
		metrics.New().Count("ImageTranscodeFailures").Property("key", key).Flush()
		return nil, nil
	}

	publishedKey, err := p.publisher.PublishFile(ctx, bucket, outputPath, destPrefix, outputName)
	if err != nil {
		return nil, err
	}
	return []string{publishedKey}, nil
}

// processVideo builds the HLS package and publishes it master-first. A video
// with zero successful renditions is dropped (nil, nil).
func (p *Pipeline) processVideo(ctx context.Context, bucket, key string, parsed uploadkey.Key, scratch, destPrefix string) ([]string, error) {
	inputPath := filepath.Join(scratch, parsed.Filename)
	if err := p.store.Download(ctx, bucket, key, inputPath); err != nil {
		return nil, err
	}

	baseName := publish.BaseName(parsed.Filename)
	outputDir := filepath.Join(scratch, "hls", baseName)
	if _, err := p.videos.Transcode(ctx, inputPath, outputDir); err != nil {
		if errors.Is(err, transcode.ErrNoRenditions) {
			log.Error().Err(err).Str("key", key).Msg("Every rendition failed, dropping asset")
			metrics.New().Count("VideoTranscodeFailures").Property("key", key).Flush()
			return nil, nil
		}
		return nil, err
	}

	keys, err := p.publisher.PublishTree(ctx, bucket, outputDir, destPrefix+"/"+baseName, transcode.MasterPlaylist)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func processedMetric(kind mediakind.Kind) string {
	switch kind {
	case mediakind.Image:
		return "ImagesProcessed"
	case mediakind.Video:
		return "VideosProcessed"
	default:
		return "OthersProcessed"
	}
}
