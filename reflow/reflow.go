// Package reflow moves text blocks down a page to make room for text that
// grew taller than its original footprint.
package reflow

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/contentstream/editor"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlap"
	"github.com/wudi/pdfedit/textindex"
)

// XRange is a horizontal extent in device space.
type XRange struct {
	X0, X1 float64
}

func (r XRange) overlaps(rect coords.Rect) bool {
	return rect.X0 < r.X1 && r.X0 < rect.X1
}

// Move records one shifted block.
type Move struct {
	BlockID string
	From    coords.Rect
	To      coords.Rect
}

// Result lists the moved blocks in top-down order and the blocks left in
// place because they would have crossed the page bottom.
type Result struct {
	Moved   []Move
	Skipped []string
}

// IDs returns the ids of the moved blocks.
func (r Result) IDs() []string {
	out := make([]string, len(r.Moved))
	for i, m := range r.Moved {
		out[i] = m.BlockID
	}
	return out
}

// Engine pushes blocks down. It reads block geometry from the index and
// keeps it current.
type Engine struct {
	index    *textindex.Index
	resolver *fonts.Resolver
	guard    *overlap.Guard
	editor   editor.Editor
	ext      *extractor.Extractor
	logger   observability.Logger

	gap     float64
	epsilon float64
}

type Option func(*Engine)

// WithGap sets the minimum distance between a shifted block and the block
// above it.
func WithGap(gap float64) Option {
	return func(e *Engine) { e.gap = gap }
}

// WithEpsilon widens the window of blocks considered below the new bottom.
func WithEpsilon(eps float64) Option {
	return func(e *Engine) { e.epsilon = eps }
}

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithGuard(g *overlap.Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

func New(index *textindex.Index, resolver *fonts.Resolver, opts ...Option) *Engine {
	if resolver == nil {
		resolver = fonts.NewResolver()
	}
	e := &Engine{
		index:    index,
		resolver: resolver,
		guard:    overlap.New(),
		editor:   editor.NewEditor(),
		ext:      extractor.New(),
		logger:   observability.NopLogger{},
		gap:      2,
		epsilon:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan computes the cascade without touching the page: blocks whose top
// lies in [aboveY, newBottomY+epsilon] and that overlap xr, each moved the
// least amount that keeps it gap below the previous block's new bottom.
func (e *Engine) Plan(page *semantic.Page, aboveY, newBottomY float64, xr XRange) Result {
	var cands []*textindex.Block
	for _, b := range e.index.Blocks(page.Index) {
		top := b.LayoutRect.Y0
		if top >= aboveY && top <= newBottomY+e.epsilon && xr.overlaps(b.LayoutRect) {
			cands = append(cands, b)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].LayoutRect.Y0 < cands[j].LayoutRect.Y0 })

	var res Result
	bottom := page.DeviceRect().Y1
	floor := newBottomY
	for _, b := range cands {
		shift := math.Max(0, floor+e.gap-b.LayoutRect.Y0)
		to := b.LayoutRect.Translate(0, shift)
		switch {
		case to.Y1 > bottom:
			res.Skipped = append(res.Skipped, b.ID)
			floor = math.Max(floor, b.LayoutRect.Y1)
		case shift == 0:
			floor = math.Max(floor, b.LayoutRect.Y1)
		default:
			res.Moved = append(res.Moved, Move{BlockID: b.ID, From: b.LayoutRect, To: to})
			floor = to.Y1
		}
	}
	return res
}

// PushDown applies Plan to page. All affected regions are cleared in one
// pass before any span is drawn again, so a moved block can never be
// clipped by the clear of another.
func (e *Engine) PushDown(ctx context.Context, page *semantic.Page, aboveY, newBottomY float64, xr XRange) (Result, error) {
	res := e.Plan(page, aboveY, newBottomY, xr)
	if len(res.Moved) == 0 {
		return res, nil
	}

	spans, err := e.ext.Spans(ctx, page)
	if err != nil {
		return Result{}, fmt.Errorf("reflow page %d: %w", page.Index, err)
	}

	descs := make([][]overlap.Descriptor, len(res.Moved))
	rects := make([]coords.Rect, len(res.Moved))
	for i, m := range res.Moved {
		descs[i] = e.guard.Capture(page, m.From)
		rects[i] = m.From
	}

	cleared, err := e.editor.ClearText(ctx, page, rects...)
	if err != nil {
		return Result{}, fmt.Errorf("reflow page %d: clear: %w", page.Index, err)
	}
	removed := make(map[int]bool, len(cleared.RemovedOps))
	for _, i := range cleared.RemovedOps {
		removed[i] = true
	}

	groups := make([][]builder.TextRun, len(res.Moved))
	for _, s := range spans {
		if !removed[s.OpIndex] {
			continue
		}
		i := owner(res.Moved, s.BBox)
		dy := res.Moved[i].To.Y0 - res.Moved[i].From.Y0
		groups[i] = append(groups[i], e.shifted(page, s, dy))
	}

	pb := builder.EditPage(page, e.resolver)
	for _, runs := range groups {
		pb.DrawTextRuns(runs)
	}
	if missing := pb.Missing(); len(missing) > 0 {
		e.logger.Warn("reflow fallback font could not encode text",
			observability.Int("page", page.Index), observability.String("runes", string(missing)))
	}

	for i, m := range res.Moved {
		e.guard.Restore(page, descs[i], m.To.Y0-m.From.Y0)
		if err := e.index.SetLayoutRect(m.BlockID, m.To); err != nil {
			return Result{}, err
		}
	}
	e.logger.Debug("reflow applied",
		observability.Int("page", page.Index),
		observability.Int("moved", len(res.Moved)),
		observability.Int("skipped", len(res.Skipped)))
	return res, nil
}

// owner picks the moved block whose original rect holds most of box.
func owner(moved []Move, box coords.Rect) int {
	best, bestArea := 0, -1.0
	c := box.Center()
	for i, m := range moved {
		area := m.From.Intersect(box).Area()
		if m.From.Contains(c) {
			area += box.Area() + 1
		}
		if area > bestArea {
			best, bestArea = i, area
		}
	}
	return best
}

// shifted rebuilds a span at its new origin. The original font resource and
// operand are reused; the builder falls back to the resolved font when the
// resource is gone.
func (e *Engine) shifted(page *semantic.Page, s extractor.Span, dy float64) builder.TextRun {
	origin := page.PointToUser(coords.Point{X: s.Origin.X, Y: s.Origin.Y + dy})
	name := s.BaseFont
	if name == "" {
		name = s.FontName
	}
	return builder.TextRun{
		Text:         s.Text,
		Font:         e.resolver.ResolveFor(name, s.Text),
		FontResource: s.FontName,
		Operand:      s.Operand,
		Size:         s.Size,
		Color:        builder.ColorFrom(s.Color),
		X:            origin.X,
		Y:            origin.Y,
		Rotation:     s.Rotation,
	}
}
