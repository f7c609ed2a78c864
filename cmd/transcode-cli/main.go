// Package main is a local CLI for exercising the transcode layer without S3.
// Useful for verifying the ffmpeg/cwebp toolchain inside the Lambda container
// image before deploying.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/image/webp"

	"github.com/kzahran/portfolio-pipeline/internal/logging"
	"github.com/kzahran/portfolio-pipeline/internal/transcode"
)

var rootCmd = &cobra.Command{
	Use:   "transcode-cli",
	Short: "Convert local media the way the upload pipeline does",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("No .env file found, relying on system env")
		}
		logging.Init()
	},
}

var imageCmd = &cobra.Command{
	Use:   "image <input> [output.webp]",
	Short: "Convert one image to WebP, flattening transparency onto white",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := trimExt(input) + ".webp"
		if len(args) == 2 {
			output = args[1]
		}

		tr := &transcode.ImageTranscoder{Encoder: &transcode.CWebPEncoder{}}
		if err := tr.Transcode(context.Background(), input, output); err != nil {
			return err
		}

		// Decode the result to confirm the encoder produced a readable file.
		f, err := os.Open(output)
		if err != nil {
			return err
		}
		defer f.Close()
		img, err := webp.Decode(f)
		if err != nil {
			return fmt.Errorf("output is not decodable WebP: %w", err)
		}

		bounds := img.Bounds()
		fmt.Printf("wrote %s (%dx%d)\n", output, bounds.Dx(), bounds.Dy())
		return nil
	},
}

var videoCmd = &cobra.Command{
	Use:   "video <input> [output-dir]",
	Short: "Convert one video to an HLS package",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		outputDir := trimExt(input) + "-hls"
		if len(args) == 2 {
			outputDir = args[1]
		}

		tr := &transcode.VideoTranscoder{Encoder: &transcode.FFmpegEncoder{}}
		produced, err := tr.Transcode(context.Background(), input, outputDir)
		if err != nil {
			return err
		}

		for _, preset := range produced {
			fmt.Printf("rendition %s: %dx%d @ %d\n", preset.Name, preset.Width, preset.Height, preset.Bandwidth)
		}
		fmt.Printf("wrote %s\n", filepath.Join(outputDir, transcode.MasterPlaylist))
		return nil
	},
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

func main() {
	rootCmd.AddCommand(imageCmd, videoCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
