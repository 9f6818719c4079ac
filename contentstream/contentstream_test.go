package contentstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

func helvetica() *semantic.Resources {
	res := semantic.NewResources()
	res.Fonts["F1"] = fonts.NewResolver().Font("Helvetica")
	return res
}

func TestTraceTextSpans(t *testing.T) {
	ops, err := semantic.ParseContent([]byte("BT /F1 12 Tf 1 0 0 1 72 700 Tm (Hello) Tj 0 -14 Td [(Wor) -50 (ld)] TJ ET"))
	require.NoError(t, err)

	res, err := NewTracer().Trace(context.Background(), ops, helvetica())
	require.NoError(t, err)
	require.Len(t, res.Spans, 2)

	hello := res.Spans[0]
	assert.Equal(t, "Hello", hello.Text)
	assert.Equal(t, 3, hello.OpIndex)
	assert.Equal(t, "F1", hello.FontName)
	assert.Equal(t, 12.0, hello.Size)
	assert.Equal(t, 0, hello.Rotation)
	assert.InDelta(t, 72, hello.Origin.X, 1e-9)
	assert.InDelta(t, 700, hello.Origin.Y, 1e-9)
	assert.InDelta(t, 72+fonts.TextWidth(res.Spans[0].Font, "Hello", 12), hello.End.X, 1e-6)
	assert.InDelta(t, 700+0.8*12, hello.BBox.URY, 1e-6)
	assert.InDelta(t, 700-0.2*12, hello.BBox.LLY, 1e-6)
	assert.Len(t, hello.Chars, 5)

	world := res.Spans[1]
	assert.Equal(t, "World", world.Text)
	assert.InDelta(t, 686, world.Origin.Y, 1e-9)
	assert.InDelta(t, 72, world.Origin.X, 1e-9)
	assert.Len(t, res.Boxes, 2)
}

func TestTraceDisplacement(t *testing.T) {
	ops, err := semantic.ParseContent([]byte("BT /F1 10 Tf 2 Tc 50 Tz (ab) Tj ET"))
	require.NoError(t, err)
	res, err := NewTracer().Trace(context.Background(), ops, helvetica())
	require.NoError(t, err)
	require.Len(t, res.Spans, 1)
	s := res.Spans[0]
	moved := s.End.X - s.Origin.X
	// A TJ of Displacement at the same size and scale moves the same distance.
	assert.InDelta(t, moved, -s.Displacement/1000*10*0.5, 1e-9)
}

func TestTraceRotationAndColor(t *testing.T) {
	ops, err := semantic.ParseContent([]byte("0 0 1 rg BT /F1 10 Tf 0 1 -1 0 300 200 Tm (Up) Tj ET"))
	require.NoError(t, err)
	res, err := NewTracer().Trace(context.Background(), ops, helvetica())
	require.NoError(t, err)
	require.Len(t, res.Spans, 1)
	assert.Equal(t, 90, res.Spans[0].Rotation)
	assert.Equal(t, []float64{0, 0, 1}, res.Spans[0].Color)
	assert.Greater(t, res.Spans[0].End.Y, res.Spans[0].Origin.Y)
	d := res.Spans[0].Direction()
	assert.InDelta(t, 1, d.Y, 1e-9)
}

func TestTraceQuoteOperators(t *testing.T) {
	ops, err := semantic.ParseContent([]byte("BT /F1 10 Tf 12 TL 50 500 Td (a) Tj (b) ' 1 0 (c) \" ET"))
	require.NoError(t, err)
	res, err := NewTracer().Trace(context.Background(), ops, helvetica())
	require.NoError(t, err)
	require.Len(t, res.Spans, 3)
	assert.InDelta(t, 500, res.Spans[0].Origin.Y, 1e-9)
	assert.InDelta(t, 488, res.Spans[1].Origin.Y, 1e-9)
	assert.InDelta(t, 476, res.Spans[2].Origin.Y, 1e-9)
}

func TestTraceGraphicsBoxes(t *testing.T) {
	ops, err := semantic.ParseContent([]byte("q 2 0 0 2 10 10 cm 0 0 5 5 re f Q 100 100 m 150 120 l S q 50 0 0 50 200 200 cm /Im1 Do Q"))
	require.NoError(t, err)
	res := helvetica()
	res.Other["XObject"] = map[string]raw.Object{"Im1": raw.NewStream(raw.Dict(), nil)}
	out, err := NewTracer().Trace(context.Background(), ops, res)
	require.NoError(t, err)
	require.Len(t, out.Boxes, 3)
	assert.Equal(t, semantic.Rectangle{LLX: 10, LLY: 10, URX: 20, URY: 20}, out.Boxes[0].Rect)
	assert.Equal(t, semantic.Rectangle{LLX: 100, LLY: 100, URX: 150, URY: 120}, out.Boxes[1].Rect)
	assert.Equal(t, semantic.Rectangle{LLX: 200, LLY: 200, URX: 250, URY: 250}, out.Boxes[2].Rect)
	assert.Empty(t, out.Spans)
}

func TestTraceStrictUnderflow(t *testing.T) {
	ops := []semantic.Operation{semantic.Op("Q")}
	_, err := (&Tracer{Strict: true}).Trace(context.Background(), ops, nil)
	assert.ErrorIs(t, err, ErrStateUnderflow)
	_, err = NewTracer().Trace(context.Background(), ops, nil)
	assert.NoError(t, err)
}
