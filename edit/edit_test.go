package edit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

func newDoc(t *testing.T, contents ...string) *semantic.Document {
	t.Helper()
	r := fonts.NewResolver()
	doc := &semantic.Document{Version: "1.7"}
	for _, c := range contents {
		ops, err := semantic.ParseContent([]byte(c))
		require.NoError(t, err)
		res := semantic.NewResources()
		res.Fonts["F1"] = r.Font("Helvetica")
		res.Fonts["F2"] = r.Font("Helvetica-Bold")
		doc.Pages = append(doc.Pages, &semantic.Page{
			MediaBox:  semantic.Rectangle{URX: 612, URY: 792},
			Resources: res,
			Contents:  []semantic.ContentStream{{Operations: ops}},
		})
	}
	return doc
}

func newEngine(t *testing.T, contents ...string) *Engine {
	t.Helper()
	e, err := New(context.Background(), newDoc(t, contents...))
	require.NoError(t, err)
	return e
}

func pageText(t *testing.T, e *Engine, i int) string {
	t.Helper()
	text, err := extractor.New().Text(context.Background(), e.Document().Pages[i])
	require.NoError(t, err)
	return text
}

const invoice = `BT /F1 12 Tf 72 720 Td (Invoice #100) Tj ET
BT /F1 12 Tf 72 690 Td (Total: $50) Tj ET`

func TestEditInvoice(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	target := e.Index().Blocks(0)[0]
	total := e.Index().Blocks(0)[1]
	totalRect := total.LayoutRect

	res, err := e.EditText(ctx, Request{
		Page: 1,
		Rect: target.LayoutRect.Translate(3, 2),
		Text: "Invoice #200 (Revised)",
		Hint: "Invoice #100",
	})
	require.NoError(t, err)
	assert.Equal(t, "p0-b0", res.BlockID)
	assert.Equal(t, 1.0, res.Similarity)
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Reflowed)

	text := pageText(t, e, 0)
	assert.Contains(t, strings.ReplaceAll(text, "\n", " "), "Invoice #200")
	assert.Contains(t, text, "(Revised)")
	assert.Contains(t, text, "Total: $50")
	assert.NotContains(t, text, "#100")

	assert.Equal(t, "Invoice #200 (Revised)", target.Text)
	assert.Equal(t, res.Rect, target.LayoutRect)
	assert.InDelta(t, 72, target.LayoutRect.X0, 0.01)
	assert.InDelta(t, 792-720-0.8*12, target.LayoutRect.Y0, 0.01)
	assert.False(t, target.LayoutRect.Intersects(totalRect))
	assert.Equal(t, totalRect, total.LayoutRect)
	assert.Equal(t, []int{0}, e.DirtyPages())
}

func TestEditVerificationFailedRollsBack(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, `BT /F1 12 Tf 72 720 Td (Hi) Tj ET BT /F1 12 Tf 72 600 Td (Other) Tj ET`)
	before, err := e.CapturePageSnapshot(ctx, 0)
	require.NoError(t, err)
	hi := e.Index().Blocks(0)[0]

	_, err = e.EditText(ctx, Request{Page: 1, Rect: hi.LayoutRect, Text: "Γειά σου"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 0, ee.Page)

	assert.Contains(t, pageText(t, e, 0), "Hi")
	after, err := e.CapturePageSnapshot(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, e.DirtyPages())

	b, err := e.Index().FindByRegion(ctx, e.Document(), 0, hi.Rect(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hi", b.Text)
}

func TestEditKeepsOtherText(t *testing.T) {
	ctx := context.Background()
	// Beta is painted on top of Alpha; clearing Alpha's footprint takes it
	// along.
	e := newEngine(t, `BT /F1 12 Tf 72 720 Td (Alpha) Tj ET BT /F1 12 Tf 72 720 Td (Beta) Tj ET`)

	_, err := e.EditText(ctx, Request{Page: 1, TargetID: "p0-b0", Text: "Gamma"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Contains(t, err.Error(), "Beta")
	text := pageText(t, e, 0)
	assert.Contains(t, text, "Alpha")
	assert.Contains(t, text, "Beta")
}

func TestEditRotatedBlock(t *testing.T) {
	ctx := context.Background()
	content := `BT /F1 12 Tf 0 1 -1 0 300 100 Tm (Column A) Tj ET`

	for _, shiftLeft := range []bool{false, true} {
		e := newEngine(t, content)
		b := e.Index().Blocks(0)[0]
		require.True(t, b.IsVertical())
		rough := b.LayoutRect
		identity := b.LayoutRect

		res, err := e.EditText(ctx, Request{
			Page:              1,
			Rect:              rough,
			Text:              "First line\nSecond line\nThird line",
			VerticalShiftLeft: shiftLeft,
		})
		require.NoError(t, err, "shift left %v", shiftLeft)
		assert.True(t, res.Rect.Intersects(rough))
		assert.Equal(t, identity, b.LayoutRect, "vertical edits keep the layout rect")
		assert.Equal(t, "First line\nSecond line\nThird line", b.Text)
		assert.Greater(t, res.Rect.Width(), rough.Width())
		if shiftLeft {
			assert.InDelta(t, rough.X1, res.Rect.X1, 0.01)
		} else {
			assert.InDelta(t, rough.X0, res.Rect.X0, 0.01)
		}

		text := pageText(t, e, 0)
		for _, want := range []string{"First line", "Second line", "Third line"} {
			assert.Contains(t, text, want)
		}
	}
}

func TestEditReflowsBlockBelow(t *testing.T) {
	ctx := context.Background()
	// Device boxes: Short spans [62.4, 74.4], Below [78.4, 90.4].
	e := newEngine(t, `BT /F1 12 Tf 72 720 Td (Short) Tj ET BT /F1 12 Tf 72 704 Td (Below) Tj ET`)
	short := e.Index().Blocks(0)[0]
	below := e.Index().Blocks(0)[1]
	require.InDelta(t, 4, below.LayoutRect.Y0-short.LayoutRect.Y1, 1e-6)
	oldBelow := below.LayoutRect
	page := e.Document().Pages[0]
	link := &semantic.GenericAnnotation{BaseAnnotation: semantic.BaseAnnotation{Type: "Link", Rect: page.ToUser(oldBelow)}}
	page.Annotations = append(page.Annotations, link)

	res, err := e.EditText(ctx, Request{Page: 1, Rect: short.LayoutRect, Text: "Short\nand a second line"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p0-b1"}, res.Reflowed)

	// Kinds the guard cannot recreate stay where they were.
	page = e.Document().Pages[0]
	require.Len(t, page.Annotations, 1)
	assert.Equal(t, "Link", page.Annotations[0].Subtype())
	assert.Equal(t, link.Rect, page.Annotations[0].Base().Rect)

	gap := e.Config().Reflow.Gap
	extra := res.Rect.Y1 - oldBelow.Y0
	assert.GreaterOrEqual(t, below.LayoutRect.Y0-oldBelow.Y0, extra+gap-1e-6)
	assert.GreaterOrEqual(t, below.LayoutRect.Y0, res.Rect.Y1+gap-1e-6)
	assert.False(t, below.LayoutRect.Intersects(res.Rect))

	spans, err := extractor.New().Spans(ctx, e.Document().Pages[0])
	require.NoError(t, err)
	var found bool
	for _, s := range spans {
		if s.Text == "Below" {
			found = true
			assert.InDelta(t, below.LayoutRect.Y0, s.BBox.Y0, 0.01)
		}
	}
	assert.True(t, found)
}

func TestEditRunMode(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, `BT /F1 10 Tf 72 720 Td (Second ) Tj /F2 10 Tf (page) Tj ET`)
	b := e.Index().Blocks(0)[0]
	require.Len(t, b.Runs, 2)

	res, err := e.EditText(ctx, Request{Page: 1, Rect: b.Runs[1].Rect, Hint: "page", Text: "sheet", Mode: ModeRun})
	require.NoError(t, err)
	assert.Equal(t, "p0-b0-r1", res.RunID)
	assert.Equal(t, "Second sheet", b.Text)

	spans, err := extractor.New().Spans(ctx, e.Document().Pages[0])
	require.NoError(t, err)
	var texts []string
	for _, s := range spans {
		if s.Text != "" {
			texts = append(texts, s.Text)
		}
		if s.Text == "sheet" {
			assert.Equal(t, "Helvetica-Bold", s.BaseFont)
		}
	}
	assert.Contains(t, texts, "Second ")
	assert.Contains(t, texts, "sheet")
	assert.NotContains(t, texts, "page")
}

func TestEditRunByID(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, `BT /F1 10 Tf 72 720 Td (Second ) Tj /F2 10 Tf (page) Tj ET`)
	b := e.Index().Blocks(0)[0]
	require.Len(t, b.Runs, 2)

	res, err := e.EditText(ctx, Request{Page: 1, TargetID: b.Runs[1].ID, Text: "sheet", Mode: ModeRun})
	require.NoError(t, err)
	assert.Equal(t, "p0-b0-r1", res.RunID)
	assert.Equal(t, "Second sheet", b.Text)

	text := pageText(t, e, 0)
	assert.Contains(t, text, "Second")
	assert.Contains(t, text, "sheet")
	assert.NotContains(t, text, "page")
}

func TestEditRunWithRepeatedText(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, `BT /F1 10 Tf 72 720 Td (page ) Tj /F2 10 Tf (page) Tj ET`)
	b := e.Index().Blocks(0)[0]
	require.Len(t, b.Runs, 2)
	require.Equal(t, "page page", b.Text)

	_, err := e.EditText(ctx, Request{Page: 1, TargetID: "p0-b0-r1", Text: "sheet", Mode: ModeRun})
	require.NoError(t, err)
	assert.Equal(t, "page sheet", b.Text)
	assert.Equal(t, "page ", b.Runs[0].Text)
	assert.Equal(t, "sheet", b.Runs[1].Text)

	text := pageText(t, e, 0)
	assert.Contains(t, text, "page")
	assert.Contains(t, text, "sheet")
}

func TestEditKeepsUnsupportedAnnotations(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	target := e.Index().Blocks(0)[0]
	page := e.Document().Pages[0]
	link := &semantic.GenericAnnotation{BaseAnnotation: semantic.BaseAnnotation{Type: "Link", Rect: page.ToUser(target.LayoutRect)}}
	page.Annotations = append(page.Annotations, link)

	_, err := e.EditText(ctx, Request{Page: 1, Rect: target.LayoutRect, Hint: "Invoice #100", Text: "Invoice #200"})
	require.NoError(t, err)

	page = e.Document().Pages[0]
	require.Len(t, page.Annotations, 1)
	assert.Equal(t, "Link", page.Annotations[0].Subtype())
	assert.Equal(t, link.Rect, page.Annotations[0].Base().Rect)
	assert.Contains(t, pageText(t, e, 0), "Invoice #200")
}

func TestEditMoveTarget(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	b := e.Index().Blocks(0)[1]
	dest := coords.NewRect(300, 400, 400, 412)

	res, err := e.EditText(ctx, Request{Page: 1, TargetID: b.ID, Text: "Total: $75", NewRect: &dest})
	require.NoError(t, err)
	assert.InDelta(t, 300, res.Rect.X0, 0.01)
	assert.InDelta(t, 400, res.Rect.Y0, 0.01)
	assert.Equal(t, res.Rect, b.LayoutRect)
}

func TestEditNotFound(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	before, err := e.CaptureDocSnapshot(ctx)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty region", Request{Page: 1, Rect: coords.NewRect(400, 500, 500, 600), Text: "x"}},
		{"page out of range", Request{Page: 3, Rect: coords.NewRect(0, 0, 612, 792), Text: "x"}},
		{"unknown id", Request{Page: 1, TargetID: "p0-b9", Text: "x"}},
		{"id on another page", Request{Page: 1, TargetID: "p1-b0", Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.EditText(ctx, tt.req)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
	after, err := e.CaptureDocSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEditOverflowUnresolvable(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	long := strings.Repeat("overflowing words ", 2000)

	_, err := e.EditText(ctx, Request{Page: 1, TargetID: "p0-b0", Text: long})
	assert.ErrorIs(t, err, ErrOverflowUnresolvable)
	assert.Contains(t, pageText(t, e, 0), "Invoice #100")
}

func TestEditMarkup(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	b := e.Index().Blocks(0)[0]

	_, err := e.EditText(ctx, Request{Page: 1, TargetID: b.ID, Text: "Invoice <b>#300</b>", Markup: "html"})
	require.NoError(t, err)
	assert.Equal(t, "Invoice #300", b.Text)

	spans, err := extractor.New().Spans(ctx, e.Document().Pages[0])
	require.NoError(t, err)
	var bold bool
	for _, s := range spans {
		if strings.Contains(s.Text, "#300") {
			bold = s.BaseFont == "Helvetica-Bold"
		}
	}
	assert.True(t, bold)
}

func TestEditDeletesText(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, invoice)
	_, err := e.EditText(ctx, Request{Page: 1, TargetID: "p0-b0", Text: ""})
	require.NoError(t, err)
	text := pageText(t, e, 0)
	assert.NotContains(t, text, "Invoice")
	assert.Contains(t, text, "Total: $50")
}
