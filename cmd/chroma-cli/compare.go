package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/fpang/chroma-restore/internal/slider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/webp"
)

var (
	originalFlag  string
	colorizedFlag string
	positionFlag  float64
	widthFlag     int
	compareOut    string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Render a before/after comparison frame",
	Long: `Compare renders the colorized photo with the original revealed left of a
divider at --position percent, the same frame the web slider shows.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		frame, err := renderComparison(originalFlag, colorizedFlag, positionFlag, widthFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to render comparison")
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, frame); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode comparison")
		}
		if err := os.WriteFile(compareOut, buf.Bytes(), 0o644); err != nil {
			log.Fatal().Err(err).Str("path", compareOut).Msg("Failed to write comparison")
		}

		log.Info().
			Str("path", compareOut).
			Int("width", frame.Bounds().Dx()).
			Int("height", frame.Bounds().Dy()).
			Float64("position", positionFlag).
			Msg("Comparison written")
	},
}

func init() {
	compareCmd.Flags().StringVar(&originalFlag, "original", "", "The black and white original")
	compareCmd.Flags().StringVar(&colorizedFlag, "colorized", "", "The colorized image")
	compareCmd.Flags().Float64Var(&positionFlag, "position", slider.DefaultPosition, "Divider position in percent (0-100)")
	compareCmd.Flags().IntVar(&widthFlag, "width", 1200, "Frame width in pixels")
	compareCmd.Flags().StringVarP(&compareOut, "output", "o", "comparison.png", "Where to write the frame")
	compareCmd.MarkFlagRequired("original")
	compareCmd.MarkFlagRequired("colorized")
}

// renderComparison decodes both images and draws one slider frame.
func renderComparison(originalPath, colorizedPath string, position float64, width int) (*image.RGBA, error) {
	before, err := decodeImageFile(originalPath)
	if err != nil {
		return nil, err
	}
	after, err := decodeImageFile(colorizedPath)
	if err != nil {
		return nil, err
	}

	frame := slider.Render(after, before, slider.New().WithPosition(position), width)
	if frame == nil {
		return nil, fmt.Errorf("cannot render a %d pixel wide frame", width)
	}
	return frame, nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
