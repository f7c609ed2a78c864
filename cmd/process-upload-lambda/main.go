// Package main is the Lambda entry point for upload processing.
//
// Triggered by S3 PUT events on the uploads/ prefix. Converts images to
// WebP and videos to HLS, republishes the results under projects/, and
// merges references into the project's metadata record.
//
// Container: Heavy (includes ffmpeg and cwebp)
// Memory: 1024 MB
// Timeout: 15 minutes
//
// Environment variables:
//   - BUCKET_NAME: destination bucket (optional; defaults to the event's bucket)
//   - OUTPUT_PREFIX: output namespace root (default "projects")
//   - FFMPEG_PATH, CWEBP_PATH: encoder binary overrides
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/lambdaboot"
	"github.com/kzahran/portfolio-pipeline/internal/logging"
	"github.com/kzahran/portfolio-pipeline/internal/pipeline"
	"github.com/kzahran/portfolio-pipeline/internal/transcode"
)

var pipe *pipeline.Pipeline

var coldStart = true

func init() {
	initStart := time.Now()
	logging.Init()

	awsCfg := lambdaboot.InitAWS()
	store := lambdaboot.InitStore(awsCfg)

	cfg := pipeline.ConfigFromEnv()
	pipe = pipeline.New(store, &transcode.CWebPEncoder{}, &transcode.FFmpegEncoder{}, cfg)

	// Flag missing encoder binaries at cold start; a missing tool shows up
	// later as per-asset failures, not an init crash.
	ffmpegOK := transcode.CheckFFmpegAvailable() == nil
	cwebpOK := transcode.CheckCWebPAvailable() == nil
	if !ffmpegOK {
		log.Warn().Msg("ffmpeg not found: video uploads will fail per-asset")
	}
	if !cwebpOK {
		log.Warn().Msg("cwebp not found: image uploads will fail per-asset")
	}

	lambdaboot.StartupLog("process-upload-lambda", initStart).
		S3Bucket("destination", cfg.Bucket).
		Config("outputPrefix", cfg.OutputPrefix).
		Feature("ffmpeg", ffmpegOK).
		Feature("cwebp", cwebpOK).
		Log()
}

// Response uses the API-Gateway-style shape: a status code plus a JSON body
// carrying the per-asset results.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type responseBody struct {
	Message string                 `json:"message"`
	Results []pipeline.AssetResult `json:"results"`
	Skipped int                    `json:"skipped"`
}

func handler(ctx context.Context, event events.S3Event) (Response, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "process-upload-lambda").Msg("Cold start detected - first invocation")
	}
	log.Info().Int("records", len(event.Records)).Msg("Processing upload batch")

	summary, err := pipe.Run(ctx, event)
	if err != nil {
		// Surfacing the error lets the event source redeliver the batch.
		log.Error().Err(err).Msg("Batch aborted")
		return Response{}, err
	}

	body, err := json.Marshal(responseBody{
		Message: "Processing complete",
		Results: summary.Results,
		Skipped: summary.Skipped,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

func main() {
	lambda.Start(handler)
}
