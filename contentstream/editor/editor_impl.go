package editor

import (
	"context"
	"math"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
)

// coverage is the share of a text op's box that must fall inside a region
// for the op to be cleared.
const coverage = 0.5

type EditorImpl struct{}

func NewEditor() *EditorImpl {
	return &EditorImpl{}
}

var _ Editor = (*EditorImpl)(nil)
var _ SpatialIndex = (*OpSpatialIndex)(nil)

// ClearText flattens the page contents into one stream and replaces every
// text-showing op inside the rects by a glyph-free TJ that advances the
// text position by the same amount, so later relative positioning in the
// same text object is unaffected. Annotations are left alone.
func (e *EditorImpl) ClearText(ctx context.Context, page *semantic.Page, rects ...coords.Rect) (ClearResult, error) {
	var res ClearResult
	if len(rects) == 0 {
		return res, nil
	}
	var ops []semantic.Operation
	for _, cs := range page.Contents {
		ops = append(ops, cs.Operations...)
	}

	idx := NewOpSpatialIndex(page.MediaBox)
	if err := idx.Index(ctx, ops, page.Resources); err != nil {
		return res, err
	}
	spans := make(map[int]contentstream.Span)
	for _, s := range idx.Trace().Spans {
		spans[s.OpIndex] = s
	}

	user := make([]semantic.Rectangle, len(rects))
	for i, r := range rects {
		user[i] = page.ToUser(r)
	}

	remove := make(map[int]contentstream.Span)
	for _, region := range user {
		for _, i := range idx.Query(region) {
			s, ok := spans[i]
			if !ok || !covered(s.BBox, region) {
				continue
			}
			remove[i] = s
		}
	}

	if len(remove) > 0 {
		out := make([]semantic.Operation, 0, len(ops)+len(remove))
		for i, op := range ops {
			s, ok := remove[i]
			if !ok {
				out = append(out, op)
				continue
			}
			res.RemovedOps = append(res.RemovedOps, i)
			res.RemovedText = append(res.RemovedText, s.Text)
			out = append(out, placeholder(op, s)...)
		}
		page.Contents = []semantic.ContentStream{{Operations: out}}
	}

	return res, nil
}

// placeholder keeps the line movement of ' and " and the horizontal
// advance of the removed glyphs.
func placeholder(op semantic.Operation, s contentstream.Span) []semantic.Operation {
	var out []semantic.Operation
	switch op.Operator {
	case "'":
		out = append(out, semantic.Op("T*"))
	case `"`:
		if len(op.Operands) == 3 {
			out = append(out,
				semantic.Operation{Operator: "Tw", Operands: []semantic.Operand{op.Operands[0]}},
				semantic.Operation{Operator: "Tc", Operands: []semantic.Operand{op.Operands[1]}},
			)
		}
		out = append(out, semantic.Op("T*"))
	}
	if s.Displacement != 0 {
		out = append(out, semantic.Op("TJ", semantic.ArrayOperand{Values: []semantic.Operand{
			semantic.NumberOperand{Value: round(s.Displacement)},
		}}))
	}
	return out
}

func covered(box, region semantic.Rectangle) bool {
	c := semantic.Rectangle{
		LLX: math.Max(box.LLX, region.LLX), LLY: math.Max(box.LLY, region.LLY),
		URX: math.Min(box.URX, region.URX), URY: math.Min(box.URY, region.URY),
	}
	if c.URX < c.LLX || c.URY < c.LLY {
		return false
	}
	area := box.Width() * box.Height()
	if area <= 0 {
		cx, cy := (box.LLX+box.URX)/2, (box.LLY+box.URY)/2
		return cx >= region.LLX && cx <= region.URX && cy >= region.LLY && cy <= region.URY
	}
	return c.Width()*c.Height() >= coverage*area
}

func round(v float64) float64 { return math.Round(v*1000) / 1000 }
