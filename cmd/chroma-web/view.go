package main

import (
	"fmt"

	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/session"
	"github.com/fpang/chroma-restore/internal/slider"
)

// stateView is the JSON shape of GET /api/state.
//
// Image data is large, so it is only included when the client asks for it
// (?images=1). ImageKey changes whenever the images do; the frontend refetches
// with images only when it sees a new key.
type stateView struct {
	State          session.State            `json:"state"`
	ImageKey       string                   `json:"imageKey"`
	HasImage       bool                     `json:"hasImage"`
	CanColorize    bool                     `json:"canColorize"`
	Filename       string                   `json:"filename,omitempty"`
	Hint           string                   `json:"hint"`
	Error          *session.ProcessingError `json:"error,omitempty"`
	LoadingMessage string                   `json:"loadingMessage,omitempty"`
	APIKeyPresent  bool                     `json:"apiKeyPresent"`

	Original      string                 `json:"original,omitempty"`
	Processed     string                 `json:"processed,omitempty"`
	OriginalInfo  *filehandler.ImageInfo `json:"originalInfo,omitempty"`
	ProcessedInfo *filehandler.ImageInfo `json:"processedInfo,omitempty"`

	Slider *sliderView `json:"slider,omitempty"`
}

type sliderView struct {
	Position float64          `json:"position"`
	Dragging bool             `json:"dragging"`
	Layout   *slider.Geometry `json:"layout,omitempty"`
}

func newStateView(m session.Model, withImages, apiKeyPresent bool) stateView {
	v := stateView{
		State:          m.State,
		HasImage:       m.HasImage(),
		CanColorize:    m.CanColorize(),
		Hint:           m.Hint,
		Error:          m.Err,
		LoadingMessage: m.LoadingMessage(),
		APIKeyPresent:  apiKeyPresent,
		Slider:         newSliderView(m),
	}
	if m.Images == nil {
		return v
	}

	v.Filename = m.Images.Filename
	v.ImageKey = fmt.Sprintf("%s/%d/%t", m.ID, m.Run, m.Images.Processed != "")
	v.OriginalInfo = m.Images.Info
	v.ProcessedInfo = m.Images.ProcessedInfo
	if withImages {
		v.Original = m.Images.Original
		if m.Images.Processed != "" {
			v.Processed = filehandler.DataURL(m.Images.ProcessedMIME, m.Images.Processed)
		}
	}
	return v
}

func newSliderView(m session.Model) *sliderView {
	if m.Slider == nil {
		return nil
	}
	sv := &sliderView{
		Position: m.Slider.Position(),
		Dragging: m.Slider.Dragging(),
	}
	if m.Slider.Bounds().Width > 0 && m.Images != nil && m.Images.ProcessedInfo != nil {
		after := m.Images.ProcessedInfo
		beforeW, beforeH := after.Width, after.Height
		if m.Images.Info != nil {
			beforeW, beforeH = m.Images.Info.Width, m.Images.Info.Height
		}
		g := m.Slider.Layout(after.Width, after.Height, beforeW, beforeH)
		sv.Layout = &g
	}
	return sv
}
