package contentstream

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

// ErrStateUnderflow is returned in strict mode for a Q without matching q.
var ErrStateUnderflow = errors.New("graphics state stack underflow")

// OpBBox represents the bounding box of an operation in user space.
type OpBBox struct {
	OpIndex int
	Rect    semantic.Rectangle
	Text    bool
}

// Char is one shown glyph with its user-space box.
type Char struct {
	Text string
	BBox semantic.Rectangle
}

// Span is the text shown by one text-showing operator.
type Span struct {
	OpIndex    int
	TextObject int // ordinal of the enclosing BT
	Text       string
	Chars      []Char
	Origin     coords.Point // baseline start, user space
	End        coords.Point // baseline end, user space
	BBox       semantic.Rectangle
	Font       *semantic.Font
	FontName   string // resource name
	FontSize   float64
	Size       float64 // effective size on the page
	Color      []float64
	Rotation   int
	Render     TextRenderMode
	Operand    semantic.Operand // string or TJ array, as shown
	// Displacement is the TJ adjustment that moves the text matrix exactly
	// as far as this span did. Zero when the font size is zero.
	Displacement float64
}

// Direction is the unit baseline vector in user space.
func (s Span) Direction() coords.Point {
	dx, dy := s.End.X-s.Origin.X, s.End.Y-s.Origin.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		r := coords.RotateDegrees(s.Rotation)
		return r.TransformVector(coords.Point{X: 1})
	}
	return coords.Point{X: dx / l, Y: dy / l}
}

// Result holds everything a trace found.
type Result struct {
	Spans []Span
	Boxes []OpBBox
}

// Tracer calculates text spans and the bounding boxes of operations in a
// content stream.
type Tracer struct {
	// Strict makes unbalanced Q an error instead of being ignored.
	Strict bool
}

func NewTracer() *Tracer {
	return &Tracer{}
}

// TracePage traces the concatenated contents of a page.
func (t *Tracer) TracePage(ctx context.Context, p *semantic.Page) (*Result, error) {
	var ops []semantic.Operation
	for _, cs := range p.Contents {
		ops = append(ops, cs.Operations...)
	}
	return t.Trace(ctx, ops, p.Resources)
}

// Trace executes the operations virtually.
func (t *Tracer) Trace(ctx context.Context, ops []semantic.Operation, resources *semantic.Resources) (*Result, error) {
	if resources == nil {
		resources = semantic.NewResources()
	}
	res := &Result{}
	gs := NewGraphicsState()
	ts := &TextState{}
	ts.reset()
	textObject := -1
	var path []coords.Point

	for i, op := range ops {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		nums, _ := op.Numbers()
		switch op.Operator {
		case "q":
			gs.Save()
		case "Q":
			if !gs.Restore() && t.Strict {
				return nil, ErrStateUnderflow
			}
		case "cm":
			if len(nums) == 6 {
				gs.CTM = matrix(nums).Multiply(gs.CTM)
			}

		case "g", "rg", "k", "sc", "scn":
			if len(nums) > 0 {
				gs.FillColor = append([]float64(nil), nums...)
			}
		case "cs":
			gs.FillColor = []float64{0}

		case "BT":
			textObject++
			ts.reset()
		case "ET":
		case "Tc":
			if len(nums) == 1 {
				gs.Text.CharSpacing = nums[0]
			}
		case "Tw":
			if len(nums) == 1 {
				gs.Text.WordSpacing = nums[0]
			}
		case "Tz":
			if len(nums) == 1 {
				gs.Text.Scale = nums[0]
			}
		case "TL":
			if len(nums) == 1 {
				gs.Text.Leading = nums[0]
			}
		case "Ts":
			if len(nums) == 1 {
				gs.Text.Rise = nums[0]
			}
		case "Tr":
			if len(nums) == 1 {
				gs.Text.Render = TextRenderMode(nums[0])
			}
		case "Tf":
			if len(op.Operands) == 2 {
				if name, ok := op.Operands[0].(semantic.NameOperand); ok {
					gs.Text.FontName = name.Value
					gs.Text.Font = resources.Fonts[name.Value]
				}
				if size, ok := op.Operands[1].(semantic.NumberOperand); ok {
					gs.Text.FontSize = size.Value
				}
			}
		case "Tm":
			if len(nums) == 6 {
				ts.TextLineMatrix = matrix(nums)
				ts.TextMatrix = ts.TextLineMatrix
			}
		case "Td":
			if len(nums) == 2 {
				ts.moveLine(nums[0], nums[1])
			}
		case "TD":
			if len(nums) == 2 {
				gs.Text.Leading = -nums[1]
				ts.moveLine(nums[0], nums[1])
			}
		case "T*":
			ts.moveLine(0, -gs.Text.Leading)

		case "Tj", "'", `"`, "TJ":
			operand, ok := t.prepareShow(op, gs, ts)
			if !ok {
				continue
			}
			span := t.show(operand, gs, ts)
			span.OpIndex = i
			span.TextObject = textObject
			span.Operand = operand
			if len(span.Chars) > 0 {
				res.Spans = append(res.Spans, span)
				res.Boxes = append(res.Boxes, OpBBox{OpIndex: i, Rect: span.BBox, Text: true})
			}

		case "m", "l":
			if len(nums) == 2 {
				path = append(path, gs.CTM.Transform(coords.Point{X: nums[0], Y: nums[1]}))
			}
		case "c":
			if len(nums) == 6 {
				for j := 0; j < 6; j += 2 {
					path = append(path, gs.CTM.Transform(coords.Point{X: nums[j], Y: nums[j+1]}))
				}
			}
		case "v", "y":
			if len(nums) == 4 {
				for j := 0; j < 4; j += 2 {
					path = append(path, gs.CTM.Transform(coords.Point{X: nums[j], Y: nums[j+1]}))
				}
			}
		case "re":
			if len(nums) == 4 {
				x, y, w, h := nums[0], nums[1], nums[2], nums[3]
				path = append(path,
					gs.CTM.Transform(coords.Point{X: x, Y: y}),
					gs.CTM.Transform(coords.Point{X: x + w, Y: y}),
					gs.CTM.Transform(coords.Point{X: x, Y: y + h}),
					gs.CTM.Transform(coords.Point{X: x + w, Y: y + h}),
				)
			}
		case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
			if len(path) > 0 {
				res.Boxes = append(res.Boxes, OpBBox{OpIndex: i, Rect: pointsToRect(path...)})
			}
			path = path[:0]
		case "n":
			path = path[:0]

		case "Do":
			if len(op.Operands) == 1 {
				if name, ok := op.Operands[0].(semantic.NameOperand); ok {
					if r, ok := xobjectRect(resources, name.Value, gs.CTM); ok {
						res.Boxes = append(res.Boxes, OpBBox{OpIndex: i, Rect: r})
					}
				}
			}
		case "BI":
			res.Boxes = append(res.Boxes, OpBBox{OpIndex: i, Rect: unitSquare(gs.CTM)})
		}
	}
	return res, nil
}

// prepareShow applies the positioning side effects of ' and " and returns
// the shown operand.
func (t *Tracer) prepareShow(op semantic.Operation, gs *GraphicsState, ts *TextState) (semantic.Operand, bool) {
	switch op.Operator {
	case "'":
		ts.moveLine(0, -gs.Text.Leading)
	case `"`:
		if len(op.Operands) != 3 {
			return nil, false
		}
		if aw, ok := op.Operands[0].(semantic.NumberOperand); ok {
			gs.Text.WordSpacing = aw.Value
		}
		if ac, ok := op.Operands[1].(semantic.NumberOperand); ok {
			gs.Text.CharSpacing = ac.Value
		}
		ts.moveLine(0, -gs.Text.Leading)
		return op.Operands[2], true
	}
	if len(op.Operands) != 1 {
		return nil, false
	}
	return op.Operands[0], true
}

func (t *Tracer) show(operand semantic.Operand, gs *GraphicsState, ts *TextState) Span {
	tp := gs.Text
	th := tp.Scale / 100
	span := Span{
		Font:     tp.Font,
		FontName: tp.FontName,
		FontSize: tp.FontSize,
		Color:    append([]float64(nil), gs.FillColor...),
		Render:   tp.Render,
	}
	ascent, descent := fonts.VerticalMetrics(tp.Font)
	composite := fonts.IsComposite(tp.Font)

	trm := func() coords.Matrix {
		return coords.Matrix{tp.FontSize * th, 0, 0, tp.FontSize, 0, tp.Rise}.Multiply(ts.TextMatrix).Multiply(gs.CTM)
	}
	m := trm()
	span.Origin = m.Transform(coords.Point{})
	dir := m.TransformVector(coords.Point{X: 1})
	span.Rotation = coords.SnapRotation(dir.X, dir.Y)
	span.Size = math.Abs(tp.FontSize) * ts.TextMatrix.Multiply(gs.CTM).VerticalScale()

	var text strings.Builder
	advance := 0.0 // text space, horizontal scaling applied
	showString := func(data []byte) {
		for _, g := range fonts.Decode(tp.Font, data) {
			m := trm()
			w := g.Width / 1000
			box := pointsToRect(
				m.Transform(coords.Point{X: 0, Y: descent}),
				m.Transform(coords.Point{X: w, Y: descent}),
				m.Transform(coords.Point{X: 0, Y: ascent}),
				m.Transform(coords.Point{X: w, Y: ascent}),
			)
			span.Chars = append(span.Chars, Char{Text: g.Text, BBox: box})
			text.WriteString(g.Text)

			tx := w*tp.FontSize + tp.CharSpacing
			if !composite && g.Len == 1 && g.Code == 32 {
				tx += tp.WordSpacing
			}
			ts.TextMatrix = coords.Translate(tx*th, 0).Multiply(ts.TextMatrix)
			advance += tx * th
		}
	}

	switch v := operand.(type) {
	case semantic.StringOperand:
		showString(v.Value)
	case semantic.ArrayOperand:
		for _, item := range v.Values {
			switch it := item.(type) {
			case semantic.StringOperand:
				showString(it.Value)
			case semantic.NumberOperand:
				// A kern of more than a quarter em reads as a word break.
				if it.Value < -250 && text.Len() > 0 && !strings.HasSuffix(text.String(), " ") {
					text.WriteByte(' ')
				}
				kern := -it.Value / 1000 * tp.FontSize * th
				ts.TextMatrix = coords.Translate(kern, 0).Multiply(ts.TextMatrix)
				advance += kern
			}
		}
	}

	span.Text = text.String()
	span.End = trm().Transform(coords.Point{})
	if tp.FontSize != 0 && th != 0 {
		span.Displacement = -advance * 1000 / (tp.FontSize * th)
	}
	for i, c := range span.Chars {
		if i == 0 {
			span.BBox = c.BBox
			continue
		}
		span.BBox = unionRect(span.BBox, c.BBox)
	}
	return span
}

func xobjectRect(resources *semantic.Resources, name string, ctm coords.Matrix) (semantic.Rectangle, bool) {
	obj, ok := resources.Other["XObject"][name]
	if !ok {
		return semantic.Rectangle{}, false
	}
	s, ok := obj.(*raw.StreamObj)
	if !ok {
		return unitSquare(ctm), true
	}
	if sub, _ := s.Dict.Name("Subtype"); sub != "Form" {
		return unitSquare(ctm), true
	}
	bbox, _ := s.Dict.Get("BBox")
	arr, ok := bbox.(*raw.ArrayObj)
	if !ok {
		return unitSquare(ctm), true
	}
	b, ok := arr.Floats()
	if !ok || len(b) != 4 {
		return unitSquare(ctm), true
	}
	m := ctm
	if mo, ok := s.Dict.Get("Matrix"); ok {
		if ma, ok := mo.(*raw.ArrayObj); ok {
			if vals, ok := ma.Floats(); ok && len(vals) == 6 {
				m = matrix(vals).Multiply(ctm)
			}
		}
	}
	return pointsToRect(
		m.Transform(coords.Point{X: b[0], Y: b[1]}),
		m.Transform(coords.Point{X: b[2], Y: b[1]}),
		m.Transform(coords.Point{X: b[0], Y: b[3]}),
		m.Transform(coords.Point{X: b[2], Y: b[3]}),
	), true
}

func unitSquare(m coords.Matrix) semantic.Rectangle {
	return pointsToRect(
		m.Transform(coords.Point{X: 0, Y: 0}),
		m.Transform(coords.Point{X: 1, Y: 0}),
		m.Transform(coords.Point{X: 0, Y: 1}),
		m.Transform(coords.Point{X: 1, Y: 1}),
	)
}

func matrix(v []float64) coords.Matrix {
	return coords.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
}

func pointsToRect(points ...coords.Point) semantic.Rectangle {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return semantic.Rectangle{LLX: minX, LLY: minY, URX: maxX, URY: maxY}
}

func unionRect(a, b semantic.Rectangle) semantic.Rectangle {
	return semantic.Rectangle{
		LLX: math.Min(a.LLX, b.LLX), LLY: math.Min(a.LLY, b.LLY),
		URX: math.Max(a.URX, b.URX), URY: math.Max(a.URY, b.URY),
	}
}
