// Package slider models the before/after comparison widget.
//
// A Slider is an immutable value: every gesture returns a new Slider. The
// divider position is a percentage of the measured container width and is
// always within [0, 100]. Geometry is derived from the measured width, never
// from a percentage of the parent, so both image layers stay pixel-aligned.
package slider

import (
	"image"
	"math"
)

const (
	// DefaultPosition is the even split shown on mount.
	DefaultPosition = 50.0

	// DividerWidth is the thickness of the divider line in pixels.
	DividerWidth = 4

	// HandleRadius is the radius of the round drag handle in pixels.
	HandleRadius = 16
)

// Bounds is the measured placement of the container on screen.
type Bounds struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// Slider is the divider state. The zero value is not mounted; use New.
type Slider struct {
	position float64
	dragging bool
	bounds   Bounds
}

// New returns a slider at DefaultPosition, not dragging.
func New() Slider {
	return Slider{position: DefaultPosition}
}

// Position returns the divider position in [0, 100].
func (s Slider) Position() float64 { return s.position }

// Dragging reports whether a press is in progress.
func (s Slider) Dragging() bool { return s.dragging }

// Bounds returns the last measured container bounds.
func (s Slider) Bounds() Bounds { return s.bounds }

// Resize records a new measurement. The position is kept, so the divider
// reflows with the container. A drag in progress continues against the new
// bounds.
func (s Slider) Resize(b Bounds) Slider {
	if math.IsNaN(b.Left) || math.IsInf(b.Left, 0) {
		b.Left = 0
	}
	if math.IsNaN(b.Width) || math.IsInf(b.Width, 0) || b.Width < 0 {
		b.Width = 0
	}
	s.bounds = b
	return s
}

// Press starts a drag. The divider does not jump to the press point.
func (s Slider) Press(x float64) Slider {
	s.dragging = true
	return s
}

// Move updates the position while dragging. x is a viewport coordinate and
// may lie anywhere, including far outside the container.
func (s Slider) Move(x float64) Slider {
	if !s.dragging || s.bounds.Width <= 0 || math.IsNaN(x) {
		return s
	}
	s.position = clamp((x - s.bounds.Left) / s.bounds.Width * 100)
	return s
}

// Release ends a drag wherever the pointer is.
func (s Slider) Release() Slider {
	s.dragging = false
	return s
}

// WithPosition returns a slider at p, clamped. Used to render a frame at a
// chosen split without a gesture.
func (s Slider) WithPosition(p float64) Slider {
	if math.IsNaN(p) {
		return s
	}
	s.position = clamp(p)
	return s
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// Geometry is the pixel layout of one frame, in container coordinates.
type Geometry struct {
	// Width and Height are the rendered box of the background ("after") image.
	Width  int `json:"width"`
	Height int `json:"height"`

	// ClipWidth is how much of the "before" layer is visible from the left.
	ClipWidth int `json:"clipWidth"`

	// Before is where the "before" image is drawn. It is bound to the full
	// container width and fitted "contain", so an image with a different
	// aspect ratio letterboxes instead of drifting.
	Before image.Rectangle `json:"before"`

	DividerX     int `json:"dividerX"`
	DividerWidth int `json:"dividerWidth"`
	HandleRadius int `json:"handleRadius"`
}

// Layout computes the frame geometry for the current measured width.
// Dimensions that are zero or negative give a zero-height box.
func (s Slider) Layout(afterW, afterH, beforeW, beforeH int) Geometry {
	width := int(math.Round(s.bounds.Width))
	g := Geometry{
		Width:        width,
		DividerWidth: DividerWidth,
		HandleRadius: HandleRadius,
	}
	if width <= 0 || afterW <= 0 || afterH <= 0 {
		return g
	}

	g.Height = int(math.Round(float64(width) * float64(afterH) / float64(afterW)))
	g.ClipWidth = int(math.Round(float64(width) * s.position / 100))
	g.DividerX = g.ClipWidth
	g.Before = containRect(beforeW, beforeH, g.Width, g.Height)
	return g
}

// containRect fits a srcW x srcH image inside a boxW x boxH box, centered.
func containRect(srcW, srcH, boxW, boxH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || boxW <= 0 || boxH <= 0 {
		return image.Rect(0, 0, boxW, boxH)
	}
	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	x := (boxW - w) / 2
	y := (boxH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
