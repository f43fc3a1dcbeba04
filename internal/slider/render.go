package slider

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

var (
	dividerColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	handleColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	handleRing     = color.RGBA{R: 32, G: 32, B: 32, A: 255}
	letterboxColor = color.RGBA{A: 255}
)

// Render composes a comparison frame width pixels wide: the full "after"
// image, the "before" image clipped at the divider, the divider line and the
// drag handle. It returns nil when no frame can be drawn.
func Render(after, before image.Image, s Slider, width int) *image.RGBA {
	if after == nil || before == nil || width <= 0 {
		return nil
	}
	ab, bb := after.Bounds(), before.Bounds()
	g := s.Resize(Bounds{Width: float64(width)}).Layout(ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	if g.Height <= 0 {
		return nil
	}

	frame := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.ApproxBiLinear.Scale(frame, frame.Bounds(), after, ab, draw.Src, nil)

	if g.ClipWidth > 0 {
		layer := image.NewRGBA(frame.Bounds())
		draw.Draw(layer, layer.Bounds(), image.NewUniform(letterboxColor), image.Point{}, draw.Src)
		draw.ApproxBiLinear.Scale(layer, g.Before, before, bb, draw.Src, nil)
		clip := image.Rect(0, 0, g.ClipWidth, g.Height)
		draw.Draw(frame, clip, layer, image.Point{}, draw.Src)
	}

	half := g.DividerWidth / 2
	divider := image.Rect(g.DividerX-half, 0, g.DividerX-half+g.DividerWidth, g.Height).Intersect(frame.Bounds())
	draw.Draw(frame, divider, image.NewUniform(dividerColor), image.Point{}, draw.Src)

	drawHandle(frame, image.Pt(g.DividerX, g.Height/2), g.HandleRadius)
	return frame
}

// drawHandle fills a disc with a one-pixel dark ring, clipped to dst.
func drawHandle(dst *image.RGBA, c image.Point, r int) {
	if r <= 0 {
		return
	}
	outer := r * r
	inner := (r - 1) * (r - 1)
	area := image.Rect(c.X-r, c.Y-r, c.X+r+1, c.Y+r+1).Intersect(dst.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			dx, dy := x-c.X, y-c.Y
			d := dx*dx + dy*dy
			switch {
			case d <= inner:
				dst.SetRGBA(x, y, handleColor)
			case d <= outer:
				dst.SetRGBA(x, y, handleRing)
			}
		}
	}
}
