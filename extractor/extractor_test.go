package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

func fixturePage(t *testing.T, content string) *semantic.Page {
	t.Helper()
	ops, err := semantic.ParseContent([]byte(content))
	require.NoError(t, err)
	r := fonts.NewResolver()
	res := semantic.NewResources()
	res.Fonts["F1"] = r.Font("Helvetica")
	res.Fonts["F2"] = r.Font("Times-Bold")
	return &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: 612, URY: 792},
		Resources: res,
		Contents:  []semantic.ContentStream{{Operations: ops}},
	}
}

func TestBlocksGrouping(t *testing.T) {
	page := fixturePage(t, `
BT /F1 12 Tf 72 720 Td (Invoice) Tj ( #100) Tj 0 -14 Td (Due soon) Tj ET
BT /F2 10 Tf 72 600 Td (Total: $50) Tj ET
BT /F1 12 Tf 72 500 Td (Left) Tj 300 0 Td (Right) Tj ET`)

	blocks, err := New().Blocks(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	assert.Equal(t, "Invoice #100\nDue soon", blocks[0].Text())
	assert.Len(t, blocks[0].Lines, 2)
	assert.Len(t, blocks[0].Spans(), 3)
	assert.Equal(t, "Total: $50", blocks[1].Text())
	assert.Equal(t, "Times-Bold", blocks[1].Lines[0].Spans[0].BaseFont)
	assert.Equal(t, "Left", blocks[2].Text())
	assert.Equal(t, "Right", blocks[3].Text())

	// Device space: the first block sits near the top of the page.
	top := blocks[0].BBox
	assert.InDelta(t, 792-720-0.8*12, top.Y0, 1e-6)
	assert.InDelta(t, 72, top.X0, 1e-6)
	assert.Less(t, top.Y1, blocks[1].BBox.Y0)
}

func TestBlocksSplitOnDirection(t *testing.T) {
	page := fixturePage(t, `BT /F1 10 Tf 1 0 0 1 100 100 Tm (Across) Tj 0 1 -1 0 300 100 Tm (Up) Tj ET`)
	blocks, err := New().Blocks(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Rotation)
	assert.Equal(t, 90, blocks[1].Rotation)

	up := blocks[1].Lines[0].Spans[0]
	assert.InDelta(t, 0, up.Dir.X, 1e-9)
	assert.InDelta(t, -1, up.Dir.Y, 1e-9)
}

func TestRotatedLinesStayTogether(t *testing.T) {
	page := fixturePage(t, `BT /F1 10 Tf 12 TL 0 1 -1 0 300 100 Tm (Column) Tj T* (A) Tj ET`)
	blocks, err := New().Blocks(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Column\nA", blocks[0].Text())
}

func TestTextInRect(t *testing.T) {
	page := fixturePage(t, `BT /F1 12 Tf 72 720 Td (Hello) Tj ( world) Tj ET BT /F1 12 Tf 72 600 Td (Elsewhere) Tj ET`)
	ext := New()
	blocks, err := ext.Blocks(context.Background(), page)
	require.NoError(t, err)
	hello := blocks[0].Lines[0].Spans[0].BBox

	got, err := ext.TextInRect(context.Background(), page, hello)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)

	all, err := ext.Text(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nElsewhere", all)

	none, err := ext.TextInRect(context.Background(), page, coords.NewRect(500, 10, 600, 20))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvisibleTextSkipped(t *testing.T) {
	page := fixturePage(t, `BT /F1 12 Tf 3 Tr 72 720 Td (hidden) Tj ET BT 0 Tr /F1 12 Tf 72 700 Td (shown) Tj ET`)
	spans, err := New().Spans(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "shown", spans[0].Text)
}

func TestKernedWordBreak(t *testing.T) {
	page := fixturePage(t, `BT /F1 12 Tf 72 720 Td [(Hello) -400 (there)] TJ ET`)
	text, err := New().Text(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
}
