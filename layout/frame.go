package layout

import (
	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
)

// Frame is a device-space box with a text direction. Lines run along the
// text direction and stack across it.
type Frame struct {
	Rect     coords.Rect
	Rotation int
}

// Size returns the box extent along and across the text direction.
func (f Frame) Size() (along, across float64) {
	switch coords.NormalizeRotation(f.Rotation) {
	case 90, 270:
		return f.Rect.Height(), f.Rect.Width()
	}
	return f.Rect.Width(), f.Rect.Height()
}

// ToDevice maps a frame-local point, u along the text and v down across
// the lines, to device space.
func (f Frame) ToDevice(u, v float64) coords.Point {
	r := f.Rect
	switch coords.NormalizeRotation(f.Rotation) {
	case 90:
		return coords.Point{X: r.X0 + v, Y: r.Y1 - u}
	case 180:
		return coords.Point{X: r.X1 - u, Y: r.Y1 - v}
	case 270:
		return coords.Point{X: r.X1 - v, Y: r.Y0 + u}
	}
	return coords.Point{X: r.X0 + u, Y: r.Y0 + v}
}

// Resize returns a frame anchored at the same corner with the given
// extent along and across the text.
func (f Frame) Resize(along, across float64) Frame {
	a := f.ToDevice(0, 0)
	b := f.ToDevice(along, across)
	return Frame{Rect: coords.NewRect(a.X, a.Y, b.X, b.Y), Rotation: f.Rotation}
}

// Reach returns how far the frame could extend from its origin corner,
// along and across the text, before leaving bounds.
func (f Frame) Reach(bounds coords.Rect) (along, across float64) {
	o := f.ToDevice(0, 0)
	switch coords.NormalizeRotation(f.Rotation) {
	case 90:
		return o.Y - bounds.Y0, bounds.X1 - o.X
	case 180:
		return o.X - bounds.X0, o.Y - bounds.Y0
	case 270:
		return bounds.Y1 - o.Y, o.X - bounds.X0
	}
	return bounds.X1 - o.X, bounds.Y1 - o.Y
}

// Shift moves the frame by dx, dy in device space.
func (f Frame) Shift(dx, dy float64) Frame {
	return Frame{Rect: f.Rect.Translate(dx, dy), Rotation: f.Rotation}
}

// InkBounds is the device rectangle covered by the glyphs of the layout.
func (r Result) InkBounds(f Frame) coords.Rect {
	top := r.InkTop()
	a := f.ToDevice(0, top)
	b := f.ToDevice(r.Width, top+r.InkHeight())
	return coords.NewRect(a.X, a.Y, b.X, b.Y)
}

// Bounds is the device rectangle the laid-out text occupies in frame.
func (r Result) Bounds(f Frame) coords.Rect {
	return f.Resize(r.Width, r.Height).Rect
}

// Runs converts a layout into positioned builder runs. Origins are
// converted to the user space of page.
func (r Result) Runs(page *semantic.Page, f Frame) []builder.TextRun {
	var out []builder.TextRun
	for _, l := range r.Lines {
		for _, it := range l.Items {
			origin := page.PointToUser(f.ToDevice(it.Offset, l.Baseline))
			out = append(out, builder.TextRun{
				Text:     it.Text,
				Font:     it.Font,
				Size:     it.Size,
				Color:    it.Color,
				X:        origin.X,
				Y:        origin.Y,
				Rotation: coords.NormalizeRotation(f.Rotation),
			})
		}
	}
	return out
}

// Render draws the layout on pb as one text object and returns the runes
// the fonts could not encode.
func (r Result) Render(pb builder.PageBuilder, f Frame) []rune {
	before := len(pb.Missing())
	pb.DrawTextRuns(r.Runs(pb.Page(), f))
	return pb.Missing()[before:]
}
