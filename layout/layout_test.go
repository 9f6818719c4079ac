package layout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
)

var base = Style{Font: "Helvetica", Size: 10}

func TestParsePlain(t *testing.T) {
	runs := ParsePlain("Total\r\ndue", base)
	require.Len(t, runs, 3)
	assert.Equal(t, "Total", runs[0].Text)
	assert.True(t, runs[1].Break)
	assert.Equal(t, "due", runs[2].Text)
	assert.Equal(t, "Total\ndue", PlainText(runs))
}

func TestParseHTML(t *testing.T) {
	runs, err := ParseHTML(`<b>Total</b> due<br><span style="color: #ff0000">now</span>`, base)
	require.NoError(t, err)
	require.Len(t, runs, 4)

	assert.Equal(t, "Total", runs[0].Text)
	assert.True(t, runs[0].Bold)
	assert.Equal(t, " due", runs[1].Text)
	assert.False(t, runs[1].Bold)
	assert.True(t, runs[2].Break)
	assert.Equal(t, "now", runs[3].Text)
	assert.Equal(t, builder.Color{R: 1}, runs[3].Color)
}

func TestParseHTMLParagraphs(t *testing.T) {
	runs, err := ParseHTML("<p>one</p>\n<p><i>two</i></p>", base)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", PlainText(runs))
	assert.True(t, runs[len(runs)-1].Italic)
}

func TestParseMarkdown(t *testing.T) {
	runs, err := ParseMarkdown("Hello **world** and *you*", base)
	require.NoError(t, err)
	assert.Equal(t, "Hello world and you", PlainText(runs))

	styles := map[string]Run{}
	for _, r := range runs {
		styles[r.Text] = r
	}
	assert.True(t, styles["world"].Bold)
	assert.True(t, styles["you"].Italic)
	assert.False(t, styles["you"].Bold)
}

func TestParseMarkdownBlocks(t *testing.T) {
	runs, err := ParseMarkdown("line one\nline two", base)
	require.NoError(t, err)
	assert.Equal(t, "line one line two", PlainText(runs))

	runs, err = ParseMarkdown("- one\n- two", base)
	require.NoError(t, err)
	assert.Equal(t, "• one\n• two", PlainText(runs))

	runs, err = ParseMarkdown("use `code`", base)
	require.NoError(t, err)
	assert.Equal(t, "Courier", runs[len(runs)-1].Font)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want builder.Color
		ok   bool
	}{
		{"#f00", builder.Color{R: 1}, true},
		{"#0000ff", builder.Color{B: 1}, true},
		{"rgb(255, 255, 255)", builder.Color{R: 1, G: 1, B: 1}, true},
		{"Black", builder.Color{}, true},
		{"#12", builder.Color{}, false},
		{"rgb(1,2)", builder.Color{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknownMarkup(t *testing.T) {
	_, err := Parse("rtf", "x", base)
	assert.Error(t, err)
}

func TestFitWrapsAndReportsSpare(t *testing.T) {
	e := NewEngine(nil)
	full := e.Measure(ParsePlain("hello world", base))
	word := e.Measure(ParsePlain("world", base))
	require.Greater(t, full, word)

	res := e.Fit(ParsePlain("hello world", base), full-1, 100, FitOptions{})
	require.True(t, res.Fits)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "hello\nworld", res.Text())
	assert.InDelta(t, 24, res.Height, 1e-9)
	assert.InDelta(t, 76, res.Spare, 1e-9)
	assert.LessOrEqual(t, res.Width, full-1)
	assert.Equal(t, 1.0, res.Scale)

	one := e.Fit(ParsePlain("hello world", base), full+1, 100, FitOptions{})
	require.Len(t, one.Lines, 1)
	assert.InDelta(t, full, one.Width, 1e-9)
}

func TestFitOverflowWithoutShrink(t *testing.T) {
	e := NewEngine(nil)
	res := e.Fit(ParsePlain("one two three four", base), 200, 5, FitOptions{})
	assert.False(t, res.Fits)
	assert.Less(t, res.Spare, 0.0)
}

func TestFitShrink(t *testing.T) {
	e := NewEngine(nil)
	style := Style{Font: "Helvetica", Size: 12}
	w := e.Measure(ParsePlain("Total due", style))

	res := e.Fit(ParsePlain("Total due", style), w*0.7, 15, FitOptions{Shrink: true, MinScale: 0.5})
	require.True(t, res.Fits)
	assert.Len(t, res.Lines, 1)
	assert.InDelta(t, 0.7, res.Scale, 0.01)

	res = e.Fit(ParsePlain("Total due", style), w*0.7, 15, FitOptions{Shrink: true, MinScale: 0.8})
	assert.False(t, res.Fits)
}

func TestFitBreaksLongWord(t *testing.T) {
	e := NewEngine(nil)
	w := e.Measure(ParsePlain("abcde", base))
	res := e.Fit(ParsePlain("abcdefghijklmnop", base), w, 100, FitOptions{})
	require.Greater(t, len(res.Lines), 2)
	for _, l := range res.Lines {
		assert.LessOrEqual(t, l.Width, w+fitTolerance)
	}
	assert.Equal(t, "abcdefghijklmnop", stripNewlines(res.Text()))
}

func TestFitUsesCJKFallback(t *testing.T) {
	e := NewEngine(nil)
	res := e.Fit(ParsePlain("价格 Total", base), 500, 100, FitOptions{})
	require.Len(t, res.Lines, 1)
	fontsUsed := map[string]string{}
	for _, it := range res.Lines[0].Items {
		fontsUsed[it.Text] = it.Font
	}
	assert.Equal(t, fonts.CJKFont, fontsUsed["价格"])
	assert.Equal(t, "Helvetica", fontsUsed[" Total"])
}

func TestFitStyledRuns(t *testing.T) {
	e := NewEngine(nil)
	runs := []Run{
		{Text: "Total ", Font: "Helvetica", Size: 10, Bold: true},
		{Text: "due", Font: "Helvetica", Size: 10},
	}
	res := e.Fit(runs, 500, 100, FitOptions{})
	require.Len(t, res.Lines, 1)
	require.Len(t, res.Lines[0].Items, 2)
	assert.Equal(t, "Helvetica-Bold", res.Lines[0].Items[0].Font)
	assert.Equal(t, res.Lines[0].Items[0].Width, res.Lines[0].Items[1].Offset)
}

func TestFrame(t *testing.T) {
	r := coords.Rect{X0: 10, Y0: 20, X1: 110, Y1: 70}
	tests := []struct {
		rotation      int
		along, across float64
		origin        coords.Point
	}{
		{0, 100, 50, coords.Point{X: 10, Y: 20}},
		{90, 50, 100, coords.Point{X: 10, Y: 70}},
		{180, 100, 50, coords.Point{X: 110, Y: 70}},
		{270, 50, 100, coords.Point{X: 110, Y: 20}},
	}
	for _, tt := range tests {
		f := Frame{Rect: r, Rotation: tt.rotation}
		along, across := f.Size()
		assert.Equal(t, tt.along, along, "rotation %d", tt.rotation)
		assert.Equal(t, tt.across, across, "rotation %d", tt.rotation)
		assert.Equal(t, tt.origin, f.ToDevice(0, 0), "rotation %d", tt.rotation)
		assert.Equal(t, r, f.Resize(along, across).Rect, "rotation %d", tt.rotation)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	pb := builder.NewBuilder(nil).NewPage(300, 200)
	e := NewEngine(nil)
	frame := Frame{Rect: coords.Rect{X0: 50, Y0: 40, X1: 250, Y1: 100}}
	along, across := frame.Size()

	res := e.Fit(ParsePlain("Hello world", base), along, across, FitOptions{})
	require.True(t, res.Fits)
	assert.Empty(t, res.Render(pb, frame))

	spans, err := extractor.New().Spans(context.Background(), pb.Page())
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "Hello world", spans[0].Text)

	bounds := res.Bounds(frame)
	assert.True(t, frame.Rect.ContainsRect(bounds))
	got := spans[0].BBox
	assert.InDelta(t, bounds.X0, got.X0, 0.01)
	assert.GreaterOrEqual(t, got.Y0, bounds.Y0-0.01)
	assert.LessOrEqual(t, got.Y1, bounds.Y1+0.01)
}

func TestRenderReportsMissingRunes(t *testing.T) {
	pb := builder.NewBuilder(nil).NewPage(300, 200)
	e := NewEngine(nil)
	frame := Frame{Rect: coords.Rect{X0: 10, Y0: 10, X1: 290, Y1: 60}}
	res := e.Fit(ParsePlain("Σύνολο", base), 280, 50, FitOptions{})
	missing := res.Render(pb, frame)
	assert.Contains(t, missing, 'Σ')
}

func stripNewlines(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != '\n' {
			out = append(out, r)
		}
	}
	return string(out)
}

func TestInkExtents(t *testing.T) {
	e := NewEngine(nil)
	res := e.Fit(ParsePlain("one\ntwo", base), 200, 100, FitOptions{})
	require.Len(t, res.Lines, 2)
	// 10pt Helvetica at 1.2 line height: 1pt lead, 8pt ascent, 2pt descent.
	assert.InDelta(t, 1, res.InkTop(), 1e-9)
	assert.InDelta(t, 22, res.InkHeight(), 1e-9)

	f := Frame{Rect: coords.Rect{X0: 10, Y0: 10, X1: 210, Y1: 110}}
	ink := res.InkBounds(f)
	assert.InDelta(t, 11, ink.Y0, 1e-9)
	assert.InDelta(t, 33, ink.Y1, 1e-9)
	assert.InDelta(t, 10+res.Width, ink.X1, 1e-9)
}

func TestFrameReach(t *testing.T) {
	page := coords.Rect{X0: 0, Y0: 0, X1: 300, Y1: 400}
	r := coords.Rect{X0: 50, Y0: 100, X1: 150, Y1: 120}
	along, across := Frame{Rect: r}.Reach(page)
	assert.Equal(t, 250.0, along)
	assert.Equal(t, 300.0, across)

	along, across = Frame{Rect: r, Rotation: 90}.Reach(page)
	assert.Equal(t, 120.0, along)
	assert.Equal(t, 250.0, across)
}
