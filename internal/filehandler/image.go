package filehandler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes an uploaded photo for the preview panel.
//
// Dimensions come from the image header via image.DecodeConfig. EXIF fields
// come from evanoberholster/imagemeta, which reads only the metadata block.
// Scanned prints usually carry no EXIF at all; that is not an error.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`

	DateTaken time.Time `json:"dateTaken,omitempty"`
	HasDate   bool      `json:"hasDate"`

	CameraMake  string `json:"cameraMake,omitempty"`
	CameraModel string `json:"cameraModel,omitempty"`
}

// InspectImage decodes the image header and, when present, EXIF metadata.
// It fails only if the bytes are not a decodable image.
func InspectImage(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	info := &ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}

	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Str("format", format).Msg("No EXIF metadata in image")
		return info, nil
	}

	// Priority: DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		info.DateTaken = exifData.DateTimeOriginal()
		info.HasDate = true
	case !exifData.CreateDate().IsZero():
		info.DateTaken = exifData.CreateDate()
		info.HasDate = true
	case !exifData.ModifyDate().IsZero():
		info.DateTaken = exifData.ModifyDate()
		info.HasDate = true
	}

	info.CameraMake = strings.TrimSpace(exifData.Make)
	info.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Int("width", info.Width).
		Int("height", info.Height).
		Bool("has_date", info.HasDate).
		Str("camera", info.Camera()).
		Msg("Image inspection complete")

	return info, nil
}

// AspectRatio returns width/height, or 0 for a degenerate image.
func (i *ImageInfo) AspectRatio() float64 {
	if i == nil || i.Height == 0 {
		return 0
	}
	return float64(i.Width) / float64(i.Height)
}

// Camera joins make and model for display.
func (i *ImageInfo) Camera() string {
	return strings.TrimSpace(i.CameraMake + " " + i.CameraModel)
}
