package pipeline

import (
	"os"

	"github.com/kzahran/portfolio-pipeline/internal/transcode"
)

// Config carries all pipeline settings, constructed once at cold start and
// passed in explicitly. No package holds mutable configuration globals.
type Config struct {
	// Bucket is the destination bucket. Empty means publish back into the
	// bucket named by each event record.
	Bucket string

	// OutputPrefix is the root of the published namespace, default "projects".
	OutputPrefix string

	// Renditions is the fixed HLS ladder, in attempt order.
	Renditions []transcode.RenditionPreset
}

// ConfigFromEnv reads the Lambda configuration from the environment.
func ConfigFromEnv() Config {
	prefix := os.Getenv("OUTPUT_PREFIX")
	if prefix == "" {
		prefix = "projects"
	}
	return Config{
		Bucket:       os.Getenv("BUCKET_NAME"),
		OutputPrefix: prefix,
		Renditions:   transcode.DefaultRenditions(),
	}
}

func (c Config) withDefaults() Config {
	if c.OutputPrefix == "" {
		c.OutputPrefix = "projects"
	}
	if len(c.Renditions) == 0 {
		c.Renditions = transcode.DefaultRenditions()
	}
	return c
}
