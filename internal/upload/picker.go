package upload

import (
	"errors"
	"sort"

	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// selectFile is replaced in tests.
var selectFile = zenity.SelectFile

// PickFile opens the native file dialog filtered to image files. It returns
// the chosen path, or ok=false if the user canceled.
func PickFile() (path string, ok bool, err error) {
	selected, err := selectFile(
		zenity.Title("Select a black and white photo"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: imagePatterns(),
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			log.Debug().Msg("File picker canceled")
			return "", false, nil
		}
		log.Error().Err(err).Msg("File picker failed")
		return "", false, err
	}
	if selected == "" {
		return "", false, nil
	}

	log.Info().Str("path", selected).Msg("File picked via native dialog")
	return selected, true, nil
}

func imagePatterns() []string {
	patterns := make([]string, 0, len(filehandler.SupportedImageExtensions))
	for ext := range filehandler.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	sort.Strings(patterns)
	return patterns
}
