package main

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/fpang/chroma-restore/internal/config"
	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/session"
	"github.com/fpang/chroma-restore/internal/slider"
	"github.com/fpang/chroma-restore/internal/upload"
	"github.com/rs/zerolog/log"
)

const (
	// multipartOverhead allows for form boundaries and headers on top of the
	// file size cap.
	multipartOverhead = 1 << 20

	defaultCompareWidth = 800
	maxCompareWidth     = 4096
)

type server struct {
	orch          *session.Orchestrator
	maxSize       int64
	apiKeyPresent bool

	// pick opens the native file dialog; replaced in tests.
	pick func() (string, bool, error)
}

func newServer(orch *session.Orchestrator, cfg *config.Config, apiKeyPresent bool) *server {
	return &server{
		orch:          orch,
		maxSize:       cfg.Upload.MaxSize,
		apiKeyPresent: apiKeyPresent,
		pick:          upload.PickFile,
	}
}

func (s *server) respondState(w http.ResponseWriter, r *http.Request, m session.Model) {
	withImages := r.URL.Query().Get("images") == "1"
	respondJSON(w, http.StatusOK, newStateView(m, withImages, s.apiKeyPresent))
}

// GET /api/state
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.orch.Snapshot())
}

// POST /api/upload
// Multipart form with one or more "file" fields. Only the first is
// considered; a non-image or oversize file is discarded with 204.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxSize + multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			log.Debug().Int64("limit", tooBig.Limit).Msg("Upload over size cap discarded")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	s.accept(w, r, upload.FromMultipart(r.MultipartForm, "file"))
}

// POST /api/pick
// Opens the native file dialog and loads the chosen file.
func (s *server) handlePick(w http.ResponseWriter, r *http.Request) {
	path, ok, err := s.pick()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{"canceled": true})
		return
	}
	s.accept(w, r, upload.FromPaths([]string{path}))
}

// accept runs the upload surface over cands and dispatches the outcome.
func (s *server) accept(w http.ResponseWriter, r *http.Request, cands []upload.Candidate) {
	c, ok := upload.Select(cands, s.maxSize)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	preview, err := upload.Read(c)
	if err != nil {
		s.respondState(w, r, s.orch.Dispatch(session.FileReadFailed{Err: err}))
		return
	}

	var info *filehandler.ImageInfo
	if data, _, err := filehandler.DecodeDataURL(preview.DataURL); err == nil {
		if info, err = filehandler.InspectImage(data); err != nil {
			log.Debug().Err(err).Str("file", c.Filename).Msg("Image header not decodable; previewing anyway")
		}
	}

	s.respondState(w, r, s.orch.Accept(c.Filename, preview, info))
}

// POST /api/hint
func (s *server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hint string `json:"hint"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.respondState(w, r, s.orch.Dispatch(session.HintChanged{Hint: req.Hint}))
}

// POST /api/colorize
func (s *server) handleColorize(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.orch.Dispatch(session.ColorizeRequested{}))
}

// POST /api/dismiss
func (s *server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.orch.Dispatch(session.Dismissed{}))
}

// POST /api/reset
func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.orch.Dispatch(session.Reset{}))
}

// POST /api/slider
// Body: {"type": "press"|"move"|"release"|"resize", "x": 0, "left": 0, "width": 0}
func (s *server) handleSlider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type  string  `json:"type"`
		X     float64 `json:"x"`
		Left  float64 `json:"left"`
		Width float64 `json:"width"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	kind := session.SliderEventKind(req.Type)
	switch kind {
	case session.SliderPress, session.SliderMove, session.SliderRelease, session.SliderResize:
	default:
		httpError(w, http.StatusBadRequest, "type must be press, move, release or resize")
		return
	}

	m := s.orch.Dispatch(session.SliderEvent{
		Kind:   kind,
		X:      req.X,
		Bounds: slider.Bounds{Left: req.Left, Width: req.Width},
	})
	if m.Slider == nil {
		httpError(w, http.StatusConflict, "no comparison to adjust")
		return
	}
	respondJSON(w, http.StatusOK, newSliderView(m))
}

// GET /api/compare.png?width=800
// Renders the comparison frame at the current divider position.
func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	m := s.orch.Snapshot()
	if m.State != session.Complete || m.Slider == nil {
		httpError(w, http.StatusConflict, "no colorized image yet")
		return
	}

	width := defaultCompareWidth
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxCompareWidth {
			httpError(w, http.StatusBadRequest, "width must be between 1 and 4096")
			return
		}
		width = n
	}

	after, err := decodeImage(filehandler.DataURL(m.Images.ProcessedMIME, m.Images.Processed))
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, "colorized image cannot be decoded")
		return
	}
	before, err := decodeImage(m.Images.Original)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, "original image cannot be decoded")
		return
	}

	frame := slider.Render(after, before, *m.Slider, width)
	if frame == nil {
		httpError(w, http.StatusUnprocessableEntity, "image has no area")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to encode frame")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// GET /api/download
func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, err := s.orch.Download()
	if err != nil {
		if errors.Is(err, session.ErrNotComplete) {
			httpError(w, http.StatusConflict, err.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, "download failed")
		return
	}

	log.Info().Str("filename", d.Filename).Int("bytes", len(d.Data)).Msg("Colorized image downloaded")
	w.Header().Set("Content-Type", d.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.Write(d.Data)
}

func decodeImage(dataURL string) (image.Image, error) {
	data, _, err := filehandler.DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
