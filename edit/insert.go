package edit

import (
	"fmt"
	"math"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/layout"
)

// measureSlack pads measured widths against rounding between the shaper
// and the fitter.
const measureSlack = 1

// geometry is the room an edit may use, in frame-local terms.
type geometry struct {
	// anchor is the destination frame; text starts at its origin corner.
	anchor layout.Frame
	// along is the initial line length, maxAlong the most the page allows.
	along, maxAlong float64
	// across is the room for stacked lines.
	across float64
	// footAcross is the destination's own extent across the lines.
	footAcross float64
	shiftLeft  bool
}

// geometry bounds the insertion by the page margins. Lines may run past the
// destination's end by the configured slack; lines stack down to the margin.
func (e *Engine) geometry(page *semantic.Page, dest coords.Rect, rotation int, shiftLeft bool, size float64) geometry {
	bounds := inset(page.DeviceRect(), e.cfg.Layout.Margin)
	f := layout.Frame{Rect: dest, Rotation: rotation}
	footAlong, footAcross := f.Size()
	reachAlong, reachAcross := f.Reach(bounds)
	shiftLeft = shiftLeft && coords.NormalizeRotation(rotation) == 90
	if shiftLeft {
		reachAcross = dest.X1 - bounds.X0
	}
	lead := (e.cfg.Layout.LineHeight - 1) / 2 * size
	return geometry{
		anchor:     f,
		along:      math.Max(footAlong, math.Min(footAlong+e.cfg.Layout.RightSlack, reachAlong)),
		maxAlong:   math.Max(footAlong, reachAlong),
		across:     math.Max(footAcross, reachAcross) + 2*lead,
		footAcross: footAcross,
		shiftLeft:  shiftLeft,
	}
}

func inset(r coords.Rect, m float64) coords.Rect {
	in := coords.Rect{X0: r.X0 + m, Y0: r.Y0 + m, X1: r.X1 - m, Y1: r.Y1 - m}
	if in.IsEmpty() {
		return r
	}
	return in
}

// placement is a successful fit and the tier that produced it.
type placement struct {
	res      layout.Result
	strategy Strategy
	rotation int
}

// fit tries the insertion tiers in order: the text at its own size in the
// initial box, then in a box widened to the measured text length, then
// shrunk. Horizontal text may shrink down to the configured floor only.
func (e *Engine) fit(runs []layout.Run, g geometry, vertical bool) (placement, error) {
	rot := g.anchor.Rotation
	if r := e.layout.Fit(runs, g.along, g.across, layout.FitOptions{}); r.Fits {
		return placement{res: r, strategy: StrategyFixed, rotation: rot}, nil
	}
	wide := math.Min(g.maxAlong, math.Max(g.along, e.measure(runs)+measureSlack))
	if wide > g.along {
		if r := e.layout.Fit(runs, wide, g.across, layout.FitOptions{}); r.Fits {
			return placement{res: r, strategy: StrategyWiden, rotation: rot}, nil
		}
	}
	floor := e.cfg.Layout.MinShrink
	if vertical {
		floor = e.cfg.Layout.VerticalFloor
	}
	r := e.layout.Fit(runs, wide, g.across, layout.FitOptions{Shrink: true, MinScale: floor})
	if r.Fits {
		return placement{res: r, strategy: StrategyShrink, rotation: rot}, nil
	}
	return placement{}, fmt.Errorf("%.1fx%.1f needed in %.1fx%.1f at scale %.2f", r.Width, r.Height, wide, g.across, floor)
}

// measure is the shaped length of the longest explicit line.
func (e *Engine) measure(runs []layout.Run) float64 {
	longest, cur := 0.0, 0.0
	for _, r := range runs {
		if r.Break {
			longest, cur = math.Max(longest, cur), 0
			continue
		}
		cur += e.resolver.Measure(r.Text, e.layout.FontFor(r, r.Text), r.Size)
	}
	return math.Max(longest, cur)
}

// frame positions the layout so the first line's glyphs start at the
// destination's top edge. Rotated text grown past its footprint moves left
// when asked to.
func (p placement) frame(g geometry) layout.Frame {
	f := g.anchor.Resize(p.res.BoxWidth, p.res.BoxHeight)
	dx, dy := acrossVector(p.rotation)
	top := p.res.InkTop()
	f = f.Shift(-dx*top, -dy*top)
	if g.shiftLeft {
		if excess := p.res.InkHeight() - g.footAcross; excess > 0 {
			f = f.Shift(-excess, 0)
		}
	}
	return f
}

// acrossVector is the device direction lines stack in.
func acrossVector(rotation int) (dx, dy float64) {
	switch coords.NormalizeRotation(rotation) {
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return 0, 1
}

// tighten binary-searches the smallest box extent across the lines that
// still holds the layout at its chosen scale.
func (e *Engine) tighten(runs []layout.Run, p placement) placement {
	scaled := scaleRuns(runs, p.res.Scale)
	lo, hi := 0.0, p.res.BoxHeight
	best := p
	for i := 0; i < e.cfg.Layout.SearchSteps && hi-lo > e.cfg.Layout.SearchGranule; i++ {
		mid := (lo + hi) / 2
		r := e.layout.Fit(scaled, p.res.BoxWidth, mid, layout.FitOptions{})
		if r.Fits {
			r.Scale = p.res.Scale
			best.res, hi = r, mid
		} else {
			lo = mid
		}
	}
	return best
}

func scaleRuns(runs []layout.Run, scale float64) []layout.Run {
	if scale == 1 {
		return runs
	}
	out := make([]layout.Run, len(runs))
	for i, r := range runs {
		r.Size *= scale
		out[i] = r
	}
	return out
}
