package edit

import (
	"context"
	"fmt"

	"github.com/h2non/filetype"

	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/parser"
	"github.com/wudi/pdfedit/writer"
)

// CaptureDocSnapshot serializes the whole document.
func (e *Engine) CaptureDocSnapshot(ctx context.Context) ([]byte, error) {
	data, err := writer.Bytes(ctx, e.doc, e.writeConfig())
	if err != nil {
		return nil, fmt.Errorf("capture document snapshot: %w", err)
	}
	return data, nil
}

// RestoreDocSnapshot replaces the document with the one in data and
// re-indexes every page. Every page is marked for compaction.
func (e *Engine) RestoreDocSnapshot(ctx context.Context, data []byte) error {
	doc, err := load(ctx, data)
	if err != nil {
		return fail(ErrSnapshotRestoreFailed, -1, "restore document", err)
	}
	if len(doc.Pages) == 0 {
		return fail(ErrSnapshotRestoreFailed, -1, "restore document", fmt.Errorf("snapshot has no pages"))
	}
	*e.doc = *doc
	renumber(e.doc)
	if err := e.index.Build(ctx, e.doc); err != nil {
		return fail(ErrSnapshotRestoreFailed, -1, "restore document", err)
	}
	e.dirty = make(map[int]bool, len(e.doc.Pages))
	for i := range e.doc.Pages {
		e.dirty[i] = true
	}
	return nil
}

// CapturePageSnapshot serializes page i as a one-page document.
func (e *Engine) CapturePageSnapshot(ctx context.Context, i int) ([]byte, error) {
	data, err := writer.PageBytes(ctx, e.doc, i, e.writeConfig())
	if err != nil {
		return nil, fmt.Errorf("capture page %d snapshot: %w", i, err)
	}
	return data, nil
}

// RestorePageSnapshot replaces page i with the single page in data and
// re-indexes it. The document is untouched when data does not parse.
func (e *Engine) RestorePageSnapshot(ctx context.Context, i int, data []byte) error {
	const op = "restore page"
	if _, err := e.page(op, i); err != nil {
		return err
	}
	doc, err := load(ctx, data)
	if err != nil {
		return fail(ErrSnapshotRestoreFailed, i, op, err)
	}
	if len(doc.Pages) != 1 {
		return fail(ErrSnapshotRestoreFailed, i, op, fmt.Errorf("snapshot holds %d pages", len(doc.Pages)))
	}
	p := doc.Pages[0]
	p.Index = i
	e.doc.Pages[i] = p
	if err := e.index.RebuildPage(ctx, i, e.doc); err != nil {
		return fail(ErrSnapshotRestoreFailed, i, op, err)
	}
	return nil
}

func load(ctx context.Context, data []byte) (*semantic.Document, error) {
	if !filetype.Is(data, "pdf") {
		return nil, parser.ErrNotPDF
	}
	return parser.Load(ctx, data)
}
