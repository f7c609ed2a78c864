// Package transcode converts uploaded media into web delivery formats:
// still images to WebP, videos to multi-rendition HLS packages.
//
// The actual encoders are external tools (cwebp, ffmpeg) invoked as
// subprocesses and judged purely by exit status and output files. They sit
// behind the ImageEncoder/VideoEncoder interfaces so tests can substitute
// deterministic fakes, including ones that simulate partial failure.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// RenditionPreset is one resolution/bitrate variant of an HLS package.
type RenditionPreset struct {
	// Name is the variant subdirectory and master playlist label, e.g. "480".
	Name      string
	Width     int
	Height    int
	Bandwidth int
}

// DefaultRenditions is the fixed rendition ladder, in the order renditions
// are attempted and listed in the master playlist. The ladder is short
// because each rendition is a full encode inside the Lambda time budget.
func DefaultRenditions() []RenditionPreset {
	return []RenditionPreset{
		{Name: "480", Width: 854, Height: 480, Bandwidth: 1500000},
		{Name: "240", Width: 426, Height: 240, Bandwidth: 500000},
	}
}

// DefaultEncodeTimeout bounds a single encoder invocation.
const DefaultEncodeTimeout = 10 * time.Minute

// ImageEncoder produces one still-image output file from one input file.
type ImageEncoder interface {
	Encode(ctx context.Context, inputPath, outputPath string) error
}

// VideoEncoder produces one HLS rendition (segments plus variant playlist)
// into variantDir from one input file.
type VideoEncoder interface {
	EncodeRendition(ctx context.Context, inputPath, variantDir string, preset RenditionPreset) error
}

// CWebPEncoder shells out to the cwebp binary.
type CWebPEncoder struct {
	// BinaryPath overrides PATH lookup; CWEBP_PATH env wins over both.
	BinaryPath string
	// Quality is the WebP quality factor; zero means the fixed default of 85.
	Quality int
	// Timeout bounds the invocation; zero means DefaultEncodeTimeout.
	Timeout time.Duration
}

var _ ImageEncoder = (*CWebPEncoder)(nil)

// Encode converts inputPath to a WebP file at outputPath.
func (e *CWebPEncoder) Encode(ctx context.Context, inputPath, outputPath string) error {
	bin, err := resolveBinary("CWEBP_PATH", e.BinaryPath, "cwebp")
	if err != nil {
		return err
	}

	quality := e.Quality
	if quality == 0 {
		quality = 85
	}

	ctx, cancel := context.WithTimeout(ctx, orDefault(e.Timeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"-quiet",
		"-q", strconv.Itoa(quality),
		inputPath,
		"-o", outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("cwebp timed out after %s", orDefault(e.Timeout))
		}
		return fmt.Errorf("cwebp failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// FFmpegEncoder shells out to the ffmpeg binary for HLS renditions.
type FFmpegEncoder struct {
	// BinaryPath overrides PATH lookup; FFMPEG_PATH env wins over both.
	BinaryPath string
	// Timeout bounds one rendition encode; zero means DefaultEncodeTimeout.
	Timeout time.Duration
}

var _ VideoEncoder = (*FFmpegEncoder)(nil)

// EncodeRendition runs one HLS encode: scale and letterbox-pad to the target
// dimensions preserving aspect ratio, h264/aac at fixed quality, 4-second
// segments, on-demand playlist.
func (e *FFmpegEncoder) EncodeRendition(ctx context.Context, inputPath, variantDir string, preset RenditionPreset) error {
	bin, err := resolveBinary("FFMPEG_PATH", e.BinaryPath, "ffmpeg")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return fmt.Errorf("create variant dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, orDefault(e.Timeout))
	defer cancel()

	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		preset.Width, preset.Height, preset.Width, preset.Height)

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-crf", "23",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ac", "2",
		"-f", "hls",
		"-hls_time", "4",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(variantDir, "segment%03d.ts"),
		filepath.Join(variantDir, "playlist.m3u8"),
	}

	log.Debug().Str("rendition", preset.Name).Strs("args", args).Msg("Running ffmpeg HLS encode")

	encodeStart := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(encodeStart)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %s for rendition %s", orDefault(e.Timeout), preset.Name)
		}
		return fmt.Errorf("ffmpeg failed for rendition %s: %w\nOutput: %s", preset.Name, err, string(output))
	}

	log.Debug().Str("rendition", preset.Name).Dur("elapsed", elapsed).Msg("Rendition encoded")
	return nil
}

// CheckFFmpegAvailable reports whether an ffmpeg binary can be resolved.
// Called at startup to flag missing video capability early.
func CheckFFmpegAvailable() error {
	_, err := resolveBinary("FFMPEG_PATH", "", "ffmpeg")
	return err
}

// CheckCWebPAvailable reports whether a cwebp binary can be resolved.
func CheckCWebPAvailable() error {
	_, err := resolveBinary("CWEBP_PATH", "", "cwebp")
	return err
}

// resolveBinary picks the encoder binary: env override, then the configured
// path, then a PATH lookup of the default name.
func resolveBinary(envVar, configured, name string) (string, error) {
	if p := os.Getenv(envVar); p != "" {
		return p, nil
	}
	if configured != "" {
		return configured, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return path, nil
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultEncodeTimeout
	}
	return d
}

// ErrNoRenditions reports a video whose every rendition encode failed.
var ErrNoRenditions = errors.New("no renditions produced")
