// Package main re-drives the upload pipeline over objects already sitting
// under the uploads/ prefix, for reprocessing after a pipeline fix, or for
// buckets populated before the trigger existed. Safe to rerun: output keys
// overwrite and the metadata merge deduplicates by source path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/lambdaboot"
	"github.com/kzahran/portfolio-pipeline/internal/logging"
	"github.com/kzahran/portfolio-pipeline/internal/pipeline"
	"github.com/kzahran/portfolio-pipeline/internal/transcode"
	"github.com/kzahran/portfolio-pipeline/internal/uploadkey"
)

func main() {
	bucket := flag.String("bucket", "", "bucket to backfill (required)")
	prefix := flag.String("prefix", uploadkey.Root+"/", "key prefix to scan")
	dryRun := flag.Bool("dry-run", false, "list candidate keys without processing")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}
	logging.Init()

	if *bucket == "" {
		fmt.Fprintln(os.Stderr, "usage: backfill -bucket <name> [-prefix uploads/] [-dry-run]")
		os.Exit(2)
	}

	ctx := context.Background()
	store := lambdaboot.InitStore(lambdaboot.InitAWS())

	keys, err := store.List(ctx, *bucket, *prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list uploads")
	}

	var candidates []string
	for _, key := range keys {
		if uploadkey.Valid(key) {
			candidates = append(candidates, key)
		}
	}
	log.Info().
		Int("listed", len(keys)).
		Int("candidates", len(candidates)).
		Msg("Scan complete")

	if *dryRun {
		for _, key := range candidates {
			fmt.Println(key)
		}
		return
	}

	cfg := pipeline.ConfigFromEnv()
	cfg.Bucket = *bucket
	pipe := pipeline.New(store, &transcode.CWebPEncoder{}, &transcode.FFmpegEncoder{}, cfg)

	start := time.Now()
	processed, skipped := 0, 0

	// One synthetic single-record batch per key, so one bad asset cannot
	// abort the whole backfill the way it would abort an event batch.
	for _, key := range candidates {
		event := events.S3Event{Records: []events.S3EventRecord{{
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: *bucket},
				Object: events.S3Object{Key: key},
			},
		}}}
		summary, err := pipe.Run(ctx, event)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("Backfill of key failed, continuing")
			skipped++
			continue
		}
		processed += len(summary.Results)
		skipped += summary.Skipped
	}

	log.Info().
		Int("processed", processed).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("Backfill complete")
}
