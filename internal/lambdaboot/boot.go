// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Both the event-triggered Lambda and the local backfill tool need AWS
// config, an S3 client, and startup logging; this package keeps their init
// paths to a short composition of helpers.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/blob"
	"github.com/kzahran/portfolio-pipeline/internal/logging"
)

// InitAWS loads the default AWS config. Fatals if credentials resolution fails.
func InitAWS() aws.Config {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg
}

// InitStore creates the production blob store from an AWS config.
func InitStore(cfg aws.Config) *blob.S3Store {
	return blob.NewS3Store(s3.NewFromConfig(cfg))
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
