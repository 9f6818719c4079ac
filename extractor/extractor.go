// Package extractor turns traced content streams into device-space spans,
// lines and blocks, and extracts full-page or clipped text.
package extractor

import (
	"context"
	"strings"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

// Span is the text of one show operator in device space.
type Span struct {
	OpIndex    int
	TextObject int
	Text       string
	Chars      []Char
	Origin     coords.Point // baseline start
	Dir        coords.Point // unit baseline vector, y down
	BBox       coords.Rect
	Font       *semantic.Font
	FontName   string // resource name
	BaseFont   string
	FontSize   float64 // Tf operand
	Size       float64 // effective size on the page
	Color      []float64
	Rotation   int
	Operand    semantic.Operand
}

// Char is one glyph in device space.
type Char struct {
	Text string
	BBox coords.Rect
}

// Extractor reads text out of pages.
type Extractor struct {
	tracer *contentstream.Tracer
}

func New() *Extractor {
	return &Extractor{tracer: contentstream.NewTracer()}
}

// Spans returns the visible text spans of page in content stream order.
func (e *Extractor) Spans(ctx context.Context, page *semantic.Page) ([]Span, error) {
	res, err := e.tracer.TracePage(ctx, page)
	if err != nil {
		return nil, err
	}
	out := make([]Span, 0, len(res.Spans))
	for _, s := range res.Spans {
		if !s.Render.Visible() {
			continue
		}
		out = append(out, toDevice(page, s))
	}
	return out, nil
}

// Blocks groups the page's spans into blocks.
func (e *Extractor) Blocks(ctx context.Context, page *semantic.Page) ([]Block, error) {
	spans, err := e.Spans(ctx, page)
	if err != nil {
		return nil, err
	}
	return GroupBlocks(spans), nil
}

// Text returns the page text, one line per row and blocks in paint order.
func (e *Extractor) Text(ctx context.Context, page *semantic.Page) (string, error) {
	blocks, err := e.Blocks(ctx, page)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text())
	}
	return strings.Join(parts, "\n"), nil
}

// TextInRect returns the text of glyphs whose center lies inside rect.
func (e *Extractor) TextInRect(ctx context.Context, page *semantic.Page, rect coords.Rect) (string, error) {
	blocks, err := e.Blocks(ctx, page)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, b := range blocks {
		for _, l := range b.Lines {
			if !l.BBox.Intersects(rect) {
				continue
			}
			if t := l.clip(rect); strings.TrimSpace(t) != "" {
				lines = append(lines, t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func toDevice(page *semantic.Page, s contentstream.Span) Span {
	out := Span{
		OpIndex:    s.OpIndex,
		TextObject: s.TextObject,
		Text:       s.Text,
		Origin:     page.PointToDevice(s.Origin),
		BBox:       page.ToDevice(s.BBox),
		Font:       s.Font,
		FontName:   s.FontName,
		FontSize:   s.FontSize,
		Size:       s.Size,
		Color:      s.Color,
		Rotation:   s.Rotation,
		Operand:    s.Operand,
	}
	if s.Font != nil {
		out.BaseFont = fonts.StripSubset(s.Font.BaseFont)
	}
	d := s.Direction()
	out.Dir = coords.Point{X: d.X, Y: -d.Y}
	out.Chars = make([]Char, len(s.Chars))
	for i, c := range s.Chars {
		out.Chars[i] = Char{Text: c.Text, BBox: page.ToDevice(c.BBox)}
	}
	return out
}
