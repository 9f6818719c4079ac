package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/edit"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/overlap"
	"github.com/wudi/pdfedit/parser"
	"github.com/wudi/pdfedit/writer"
)

const (
	invoice = `BT /F1 12 Tf 72 720 Td (Invoice #100) Tj ET BT /F1 12 Tf 72 690 Td (Total: $50) Tj ET`
	terms   = `BT /F1 12 Tf 72 720 Td (Terms and conditions) Tj ET`
)

func fixture(t *testing.T, contents ...string) []byte {
	t.Helper()
	doc := &semantic.Document{Version: "1.7"}
	for _, c := range contents {
		ops, err := semantic.ParseContent([]byte(c))
		require.NoError(t, err)
		res := semantic.NewResources()
		res.Fonts["F1"] = fonts.NewResolver().Font("Helvetica")
		doc.Pages = append(doc.Pages, &semantic.Page{
			MediaBox:  semantic.Rectangle{URX: 612, URY: 792},
			Resources: res,
			Contents:  []semantic.ContentStream{{Operations: ops}},
		})
	}
	data, err := writer.Bytes(context.Background(), doc, writer.Config{Compress: true})
	require.NoError(t, err)
	return data
}

func open(t *testing.T, contents ...string) *Session {
	t.Helper()
	s, err := Open(context.Background(), fixture(t, contents...))
	require.NoError(t, err)
	return s
}

func TestOpenRejectsNonPDF(t *testing.T) {
	_, err := Open(context.Background(), []byte("GIF89a not a document"))
	assert.ErrorIs(t, err, parser.ErrNotPDF)
}

func TestEditUndoRedo(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice)
	blocks, err := s.Blocks(0)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.False(t, s.Modified())

	res, err := s.Edit(ctx, edit.Request{Page: 1, Rect: blocks[0].LayoutRect, Hint: "Invoice #100", Text: "Invoice #200"})
	require.NoError(t, err)
	assert.Equal(t, "p0-b0", res.BlockID)
	assert.True(t, s.Modified())
	assert.Equal(t, "Edit text on page 1", s.UndoDescription())

	text, err := s.Text(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Invoice #200")
	assert.Contains(t, text, "Total: $50")

	require.NoError(t, s.Undo(ctx))
	text, err = s.Text(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Invoice #100")
	assert.False(t, s.Modified())
	assert.True(t, s.CanRedo())

	require.NoError(t, s.Redo(ctx))
	text, err = s.Text(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Invoice #200")
}

func TestUndoRedoOnEmptyHistory(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice)
	before, err := s.Text(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, s.Undo(ctx))
	require.NoError(t, s.Redo(ctx))
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.False(t, s.Modified())

	after, err := s.Text(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFailedEditNotRecorded(t *testing.T) {
	s := open(t, invoice)
	_, err := s.Edit(context.Background(), edit.Request{
		Page: 1, Rect: coords.Rect{X0: 400, Y0: 400, X1: 500, Y1: 420}, Text: "x",
	})
	assert.ErrorIs(t, err, edit.ErrNotFound)
	assert.False(t, s.CanUndo())
	assert.False(t, s.Modified())
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice)
	blocks, err := s.Blocks(0)
	require.NoError(t, err)
	_, err = s.Edit(ctx, edit.Request{Page: 1, Rect: blocks[0].LayoutRect, Hint: "Invoice #100", Text: "Invoice #200"})
	require.NoError(t, err)

	data, err := s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, s.Modified())
	assert.Empty(t, s.Engine().DirtyPages())

	reopened, err := Open(ctx, data)
	require.NoError(t, err)
	text, err := reopened.Text(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Invoice #200")
	assert.Contains(t, text, "Total: $50")
	assert.NotContains(t, text, "#100")

	// Undo past the save is a pending change again.
	require.NoError(t, s.Undo(ctx))
	assert.True(t, s.Modified())
}

func TestStructuralHistory(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice, terms)

	require.NoError(t, s.DeletePage(ctx, 1))
	assert.Equal(t, 1, s.PageCount())
	assert.Equal(t, "Delete page 2", s.UndoDescription())

	require.NoError(t, s.InsertPage(ctx, 1, 0, 0))
	assert.Equal(t, 2, s.PageCount())
	blocks, err := s.Blocks(1)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	require.NoError(t, s.Undo(ctx))
	require.NoError(t, s.Undo(ctx))
	assert.Equal(t, 2, s.PageCount())
	text, err := s.Text(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, text, "Terms and conditions")

	require.NoError(t, s.MovePage(ctx, 1, 0))
	text, err = s.Text(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Terms and conditions")
	assert.False(t, s.CanRedo())
}

func TestNoOpStructuralChangeNotRecorded(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice)
	require.NoError(t, s.RotatePage(ctx, 0, 360))
	assert.False(t, s.CanUndo())

	require.NoError(t, s.RotatePage(ctx, 0, 90))
	assert.True(t, s.CanUndo())
	assert.Equal(t, 90, s.Engine().Document().Pages[0].Rotate)
	assert.Error(t, s.RotatePage(ctx, 0, 45))
	assert.Equal(t, 1, s.history.Len())
}

func TestAnnotations(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice)
	blocks, err := s.Blocks(0)
	require.NoError(t, err)

	require.NoError(t, s.AddHighlight(ctx, 0, blocks[0].LayoutRect, nil))
	require.NoError(t, s.AddAnnotation(ctx, 0, overlap.Descriptor{
		Kind:     overlap.KindFreeText,
		Rect:     coords.Rect{X0: 300, Y0: 100, X1: 400, Y1: 130},
		Contents: "Paid",
	}))
	annots := s.Engine().Document().Pages[0].Annotations
	require.Len(t, annots, 2)
	assert.Equal(t, "Highlight", annots[0].Subtype())
	assert.Equal(t, "FreeText", annots[1].Subtype())

	require.NoError(t, s.Undo(ctx))
	assert.Len(t, s.Engine().Document().Pages[0].Annotations, 1)
}

func TestSaveFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(in, fixture(t, invoice, terms), 0o644))

	s, err := OpenFile(ctx, in)
	require.NoError(t, err)
	require.NoError(t, s.DeletePage(ctx, 0))
	assert.ErrorIs(t, s.DeletePage(ctx, 0), edit.ErrAborted)
	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, s.SaveFile(ctx, out))
	assert.False(t, s.Modified())

	saved, err := OpenFile(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.PageCount())
	text, err := saved.Text(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Terms and conditions")
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := open(t, invoice)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)
	_, err := s.Edit(ctx, edit.Request{Page: 1, Text: "x"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Save(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Text(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)
}
