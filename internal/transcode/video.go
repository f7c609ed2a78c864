package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kzahran/portfolio-pipeline/internal/metrics"
)

// MasterPlaylist is the filename of the top-level HLS manifest.
const MasterPlaylist = "master.m3u8"

// VariantPlaylist is the per-rendition playlist filename.
const VariantPlaylist = "playlist.m3u8"

// VideoTranscoder turns one input video into an HLS package: one variant
// subdirectory per rendition plus a master playlist listing the renditions
// that actually encoded. A failed rendition is skipped, not fatal; the whole
// asset fails only when every rendition does.
type VideoTranscoder struct {
	Encoder    VideoEncoder
	Renditions []RenditionPreset
}

func (t *VideoTranscoder) renditions() []RenditionPreset {
	if len(t.Renditions) > 0 {
		return t.Renditions
	}
	return DefaultRenditions()
}

// Transcode encodes inputPath into outputDir and writes the master playlist.
// It returns the presets that succeeded, in attempt order, the same order
// their entries appear in the master playlist. When none succeed it returns
// ErrNoRenditions and writes no master playlist.
func (t *VideoTranscoder) Transcode(ctx context.Context, inputPath, outputDir string) ([]RenditionPreset, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	lines := []string{"#EXTM3U", "#EXT-X-VERSION:3"}
	var produced []RenditionPreset

	for _, preset := range t.renditions() {
		variantDir := filepath.Join(outputDir, preset.Name)
		encodeStart := time.Now()
		if err := t.Encoder.EncodeRendition(ctx, inputPath, variantDir, preset); err != nil {
			log.Warn().
				Err(err).
				Str("rendition", preset.Name).
				Str("input", inputPath).
				Msg("Rendition encode failed, skipping rendition")
			metrics.New().
				Count("RenditionFailures").
				Property("rendition", preset.Name).
				Flush()
			continue
		}
		metrics.New().
			Metric("RenditionEncodeMs", float64(time.Since(encodeStart).Milliseconds()), metrics.UnitMilliseconds).
			Property("rendition", preset.Name).
			Flush()

		lines = append(lines,
			fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d", preset.Bandwidth, preset.Width, preset.Height),
			preset.Name+"/"+VariantPlaylist,
		)
		produced = append(produced, preset)
	}

	if len(produced) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRenditions, inputPath)
	}

	masterPath := filepath.Join(outputDir, MasterPlaylist)
	if err := os.WriteFile(masterPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write master playlist: %w", err)
	}

	log.Info().
		Str("input", inputPath).
		Int("renditions", len(produced)).
		Msg("HLS package generated")
	return produced, nil
}
