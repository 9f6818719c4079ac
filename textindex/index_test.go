package textindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

func page(t *testing.T, content string) *semantic.Page {
	t.Helper()
	ops, err := semantic.ParseContent([]byte(content))
	require.NoError(t, err)
	res := semantic.NewResources()
	res.Fonts["F1"] = fonts.NewResolver().Font("Helvetica")
	res.Fonts["F2"] = fonts.NewResolver().Font("Helvetica-Bold")
	return &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: 612, URY: 792},
		Resources: res,
		Contents:  []semantic.ContentStream{{Operations: ops}},
	}
}

func invoiceDoc(t *testing.T) *semantic.Document {
	return &semantic.Document{Pages: []*semantic.Page{
		page(t, `BT /F1 12 Tf 72 720 Td (Invoice #100) Tj ET BT /F1 12 Tf 72 690 Td (Total: $50) Tj ET`),
		page(t, `BT /F1 10 Tf 72 720 Td (Second ) Tj /F2 10 Tf (page) Tj ET`),
	}}
}

func TestBuild(t *testing.T) {
	doc := invoiceDoc(t)
	x := New(WithWorkers(2))
	require.NoError(t, x.Build(context.Background(), doc))
	require.Equal(t, 2, x.Pages())

	blocks := x.Blocks(0)
	require.Len(t, blocks, 2)
	assert.Equal(t, "p0-b0", blocks[0].ID)
	assert.Equal(t, "Invoice #100", blocks[0].Text)
	assert.Equal(t, "Helvetica", blocks[0].Font)
	assert.Equal(t, 12.0, blocks[0].Size)
	assert.Equal(t, "p0-b1", blocks[1].ID)
	assert.Equal(t, blocks[0].Rect(), blocks[0].LayoutRect)

	second := x.Blocks(1)
	require.Len(t, second, 1)
	require.Len(t, second[0].Runs, 2)
	assert.Equal(t, "p1-b0-r0", second[0].Runs[0].ID)
	assert.Equal(t, "Helvetica-Bold", second[0].Runs[1].Font)
	assert.Equal(t, 2, second[0].OriginalSpanCount)

	got, ok := x.Lookup("p1-b0")
	require.True(t, ok)
	assert.Same(t, second[0], got)

	// Build starts over.
	require.NoError(t, x.Build(context.Background(), &semantic.Document{Pages: doc.Pages[:1]}))
	_, ok = x.Lookup("p1-b0")
	assert.False(t, ok)
}

func TestBlockRotation(t *testing.T) {
	b := NewBlock("p0-b0", 0, coords.NewRect(0, 0, 10, 10), -90)
	assert.Equal(t, 270, b.Rotation())
	assert.True(t, b.IsVertical())
	b.SetRotation(180)
	assert.False(t, b.IsVertical())
}

func TestFindByRegion(t *testing.T) {
	doc := invoiceDoc(t)
	x := New()
	require.NoError(t, x.Build(context.Background(), doc))
	ctx := context.Background()

	invoice := x.Blocks(0)[0].LayoutRect
	total := x.Blocks(0)[1].LayoutRect
	both := invoice.Union(total)

	t.Run("closest center without hint", func(t *testing.T) {
		b, err := x.FindByRegion(ctx, doc, 0, total.Translate(2, 1), "")
		require.NoError(t, err)
		assert.Equal(t, "p0-b1", b.ID)
	})
	t.Run("hint beats distance", func(t *testing.T) {
		b, err := x.FindByRegion(ctx, doc, 0, both.Translate(0, 8), "invoice  #100")
		require.NoError(t, err)
		assert.Equal(t, "p0-b0", b.ID)
	})
	t.Run("unmatched hint falls back to distance", func(t *testing.T) {
		b, err := x.FindByRegion(ctx, doc, 0, invoice, "zzzzzzzz")
		require.NoError(t, err)
		assert.Equal(t, "p0-b0", b.ID)
	})
	t.Run("idempotent", func(t *testing.T) {
		a, err := x.FindByRegion(ctx, doc, 0, both, "Total")
		require.NoError(t, err)
		b, err := x.FindByRegion(ctx, doc, 0, both, "Total")
		require.NoError(t, err)
		assert.Same(t, a, b)
	})
	t.Run("nothing there", func(t *testing.T) {
		_, err := x.FindByRegion(ctx, doc, 0, coords.NewRect(400, 600, 500, 700), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFindByRegionRescansStalePage(t *testing.T) {
	doc := invoiceDoc(t)
	x := New()
	require.NoError(t, x.Build(context.Background(), doc))

	// New content appears behind the index's back.
	extra, err := semantic.ParseContent([]byte(`BT /F1 12 Tf 300 300 Td (Late) Tj ET`))
	require.NoError(t, err)
	doc.Pages[0].Contents = append(doc.Pages[0].Contents, semantic.ContentStream{Operations: extra})

	rough := coords.NewRect(300, 792-315, 340, 792-295)
	b, err := x.FindByRegion(context.Background(), doc, 0, rough, "")
	require.NoError(t, err)
	assert.Equal(t, "Late", b.Text)
	assert.Len(t, x.Blocks(0), 3)
}

func TestFindRun(t *testing.T) {
	doc := invoiceDoc(t)
	x := New()
	require.NoError(t, x.Build(context.Background(), doc))
	b := x.Blocks(1)[0]

	r, ok := x.FindRun(b, b.LayoutRect, "page")
	require.True(t, ok)
	assert.Equal(t, "page", r.Text)

	r, ok = x.FindRun(b, b.Runs[0].Rect, "")
	require.True(t, ok)
	assert.Equal(t, "Second ", r.Text)

	_, ok = x.FindRun(b, coords.NewRect(0, 0, 1, 1), "")
	assert.False(t, ok)
}

func TestLookupRun(t *testing.T) {
	x := New()
	require.NoError(t, x.Build(context.Background(), invoiceDoc(t)))

	b, r, ok := x.LookupRun("p1-b0-r1")
	require.True(t, ok)
	assert.Equal(t, "p1-b0", b.ID)
	assert.Equal(t, "page", r.Text)
	assert.Same(t, &b.Runs[1], r)

	for _, id := range []string{"p1-b0", "p1-b0-r7", "p9-b0-r0"} {
		_, _, ok := x.LookupRun(id)
		assert.False(t, ok, id)
	}
}

func TestCommitRunReplacesOnlyThatRun(t *testing.T) {
	doc := &semantic.Document{Pages: []*semantic.Page{
		page(t, `BT /F1 10 Tf 72 720 Td (page ) Tj /F2 10 Tf (page) Tj /F1 10 Tf ( end) Tj ET`),
	}}
	x := New()
	require.NoError(t, x.Build(context.Background(), doc))
	b := x.Blocks(0)[0]
	require.Len(t, b.Runs, 3)
	require.Equal(t, "page page end", b.Text)

	require.NoError(t, x.CommitRun("p0-b0-r1", "sheet", nil))
	assert.Equal(t, "page sheet end", b.Text)
	assert.Equal(t, "page ", b.Runs[0].Text)
	assert.Equal(t, "sheet", b.Runs[1].Text)

	// Later runs follow the shifted text.
	require.NoError(t, x.CommitRun("p0-b0-r2", "!", nil))
	assert.Equal(t, "page sheet!", b.Text)

	assert.ErrorIs(t, x.CommitRun("p0-b0-r9", "x", nil), ErrUnknownBlock)
}

func TestCommitAndLayout(t *testing.T) {
	x := New()
	require.NoError(t, x.Build(context.Background(), invoiceDoc(t)))
	b := x.Blocks(0)[0]
	identity := b.Rect()

	moved := identity.Translate(0, 30)
	require.NoError(t, x.Commit(b.ID, Update{Text: "Invoice #200", Font: "Helvetica", Size: 11, Color: []float64{1, 0, 0}, LayoutRect: &moved}))
	assert.Equal(t, "Invoice #200", b.Text)
	assert.Equal(t, moved, b.LayoutRect)
	assert.Equal(t, identity, b.Rect())
	require.Len(t, b.Runs, 1)
	assert.Equal(t, "Invoice #200", b.Runs[0].Text)
	require.NoError(t, x.CommitRun(b.Runs[0].ID, "Invoice #300", nil))
	assert.Equal(t, "Invoice #300", b.Text)

	require.NoError(t, x.SetLayoutRect(b.ID, identity))
	assert.Equal(t, identity, b.LayoutRect)

	assert.ErrorIs(t, x.SetLayoutRect("p9-b9", identity), ErrUnknownBlock)
	assert.ErrorIs(t, x.Commit("p9-b9", Update{}), ErrUnknownBlock)

	x.Clear()
	assert.Zero(t, x.Pages())
	assert.Nil(t, x.Blocks(0))
}

func TestRebuildPageRange(t *testing.T) {
	doc := invoiceDoc(t)
	x := New()
	require.NoError(t, x.Build(context.Background(), doc))
	assert.ErrorIs(t, x.RebuildPage(context.Background(), 5, doc), ErrPageRange)

	doc.Pages = doc.Pages[:1]
	require.NoError(t, x.RebuildPage(context.Background(), 0, doc))
	assert.Equal(t, 1, x.Pages())
	_, ok := x.Lookup("p1-b0")
	assert.False(t, ok)
}
