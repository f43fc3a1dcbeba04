// Package upload turns drag-and-drop, picker and command-line inputs into a
// single accepted image. Only the first file offered is considered; anything
// that is not an image, or is over the size cap, is discarded without error.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSize matches the "Max 10MB" advertised by the upload panel.
const DefaultMaxSize int64 = 10 << 20

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

// Candidate is one offered file, not yet read.
type Candidate struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromMultipart lists the files posted under field, in order. Browsers send
// both dropped and picked files this way.
func FromMultipart(form *multipart.Form, field string) []Candidate {
	if form == nil {
		return nil
	}
	headers := form.File[field]
	cands := make([]Candidate, 0, len(headers))
	for _, fh := range headers {
		cands = append(cands, Candidate{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return cands
}

// FromPaths lists local files, in order. The content type comes from the
// extension, then from sniffing the first bytes. A file that cannot be
// stat'ed still becomes a candidate; reading it later reports the failure.
func FromPaths(paths []string) []Candidate {
	cands := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		c := Candidate{
			Filename: filepath.Base(p),
			Open: func() (io.ReadCloser, error) {
				return os.Open(p)
			},
		}
		if info, err := os.Stat(p); err == nil {
			c.Size = info.Size()
		} else {
			log.Debug().Err(err).Str("path", p).Msg("Cannot stat candidate file")
		}
		c.ContentType = filehandler.DetectContentType(p, readHead(p))
		cands = append(cands, c)
	}
	return cands
}

func readHead(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, buf)
	return buf[:n]
}

// Select takes the first candidate and accepts it if it declares an image
// content type and, when maxSize > 0, is no larger than maxSize. The second
// result is false when nothing was accepted.
func Select(cands []Candidate, maxSize int64) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	if len(cands) > 1 {
		log.Debug().Int("ignored", len(cands)-1).Msg("Extra files ignored")
	}

	c := cands[0]
	if !filehandler.IsImageContentType(c.ContentType) {
		log.Debug().
			Str("file", c.Filename).
			Str("content_type", c.ContentType).
			Msg("Non-image file discarded")
		return Candidate{}, false
	}
	if maxSize > 0 && c.Size > maxSize {
		log.Debug().
			Str("file", c.Filename).
			Int64("size", c.Size).
			Int64("max_size", maxSize).
			Msg("Oversize file discarded")
		return Candidate{}, false
	}
	return c, true
}

// Read encodes an accepted candidate for preview. Failures wrap
// filehandler.ErrReadFile.
func Read(c Candidate) (*filehandler.Preview, error) {
	if c.Open == nil {
		return nil, fmt.Errorf("%w: %s has no content", filehandler.ErrReadFile, c.Filename)
	}
	rc, err := c.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filehandler.ErrReadFile, err)
	}
	defer rc.Close()

	preview, err := filehandler.ReadPreview(rc, c.ContentType)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("file", c.Filename).
		Str("mime_type", c.ContentType).
		Int64("size_bytes", preview.Size).
		Msg("Image accepted")
	return preview, nil
}
