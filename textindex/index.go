// Package textindex keeps the blocks of every page of an open document and
// re-identifies a block from an approximate rectangle and a text hint.
package textindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/textmatch"
)

var (
	ErrNotFound     = errors.New("no block at region")
	ErrUnknownBlock = errors.New("unknown block")
	ErrPageRange    = errors.New("page index out of range")
)

// Index maps pages to their blocks. It is not safe for concurrent use.
type Index struct {
	pages   [][]*Block
	byID    map[string]*Block
	ext     *extractor.Extractor
	matcher textmatch.Matcher
	workers int
	logger  observability.Logger
}

type Option func(*Index)

func WithMatcher(m textmatch.Matcher) Option {
	return func(x *Index) { x.matcher = m }
}

// WithWorkers bounds the number of pages parsed concurrently by Build.
func WithWorkers(n int) Option {
	return func(x *Index) {
		if n > 0 {
			x.workers = n
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(x *Index) {
		if l != nil {
			x.logger = l
		}
	}
}

func New(opts ...Option) *Index {
	x := &Index{
		byID:    make(map[string]*Block),
		ext:     extractor.New(),
		matcher: textmatch.NewMatcher(),
		workers: 4,
		logger:  observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Build replaces the index with the blocks of every page of doc.
func (x *Index) Build(ctx context.Context, doc *semantic.Document) error {
	x.Clear()
	results := make([][]*Block, len(doc.Pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i, page := range doc.Pages {
		g.Go(func() error {
			blocks, err := x.parse(ctx, i, page)
			if err != nil {
				return fmt.Errorf("index page %d: %w", i, err)
			}
			results[i] = blocks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	x.pages = results
	for _, blocks := range results {
		for _, b := range blocks {
			x.byID[b.ID] = b
		}
	}
	x.logger.Debug("index built", observability.Int("pages", len(results)), observability.Int("blocks", len(x.byID)))
	return nil
}

// RebuildPage re-parses one page. The page count of doc may differ from
// the indexed one; the index grows or shrinks to match.
func (x *Index) RebuildPage(ctx context.Context, pageIndex int, doc *semantic.Document) error {
	if pageIndex < 0 || pageIndex >= len(doc.Pages) {
		return fmt.Errorf("%w: %d", ErrPageRange, pageIndex)
	}
	blocks, err := x.parse(ctx, pageIndex, doc.Pages[pageIndex])
	if err != nil {
		return fmt.Errorf("index page %d: %w", pageIndex, err)
	}
	for len(x.pages) < len(doc.Pages) {
		x.pages = append(x.pages, nil)
	}
	for _, stale := range x.pages[len(doc.Pages):] {
		for _, b := range stale {
			delete(x.byID, b.ID)
		}
	}
	x.pages = x.pages[:len(doc.Pages)]
	for _, b := range x.pages[pageIndex] {
		delete(x.byID, b.ID)
	}
	x.pages[pageIndex] = blocks
	for _, b := range blocks {
		x.byID[b.ID] = b
	}
	return nil
}

func (x *Index) parse(ctx context.Context, pageIndex int, page *semantic.Page) ([]*Block, error) {
	extracted, err := x.ext.Blocks(ctx, page)
	if err != nil {
		return nil, err
	}
	out := make([]*Block, len(extracted))
	for pos, eb := range extracted {
		out[pos] = newBlockFrom(pageIndex, pos, eb)
	}
	return out, nil
}

// Clear drops every page.
func (x *Index) Clear() {
	x.pages = nil
	x.byID = make(map[string]*Block)
}

// Pages is the number of indexed pages.
func (x *Index) Pages() int { return len(x.pages) }

// Blocks returns the blocks of a page in paint order.
func (x *Index) Blocks(pageIndex int) []*Block {
	if pageIndex < 0 || pageIndex >= len(x.pages) {
		return nil
	}
	return x.pages[pageIndex]
}

// Lookup finds a block by id.
func (x *Index) Lookup(id string) (*Block, bool) {
	b, ok := x.byID[id]
	return b, ok
}

// LookupRun finds a run by id, together with its block.
func (x *Index) LookupRun(id string) (*Block, *Run, bool) {
	i := strings.LastIndex(id, "-r")
	if i <= 0 {
		return nil, nil, false
	}
	b, ok := x.byID[id[:i]]
	if !ok {
		return nil, nil, false
	}
	for j := range b.Runs {
		if b.Runs[j].ID == id {
			return b, &b.Runs[j], true
		}
	}
	return nil, nil, false
}

// SetLayoutRect moves a block's current bounding box.
func (x *Index) SetLayoutRect(id string, r coords.Rect) error {
	b, ok := x.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, id)
	}
	b.LayoutRect = r
	return nil
}

// Update describes a committed edit.
type Update struct {
	Text  string
	Font  string
	Size  float64
	Color []float64
	// LayoutRect replaces the current bounding box when set.
	LayoutRect *coords.Rect
}

// Commit records a successful edit on a block.
func (x *Index) Commit(id string, u Update) error {
	b, ok := x.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, id)
	}
	b.Text = u.Text
	b.Font = u.Font
	b.Size = u.Size
	b.Color = append([]float64(nil), u.Color...)
	if u.LayoutRect != nil {
		b.LayoutRect = *u.LayoutRect
	}
	// The replacement is drawn as one run.
	b.Runs = []Run{{
		ID:    b.ID + "-r0",
		Rect:  b.LayoutRect,
		Text:  u.Text,
		Font:  b.Font,
		Size:  b.Size,
		Color: b.Color,
		end:   len(u.Text),
	}}
	return nil
}

// CommitRun records a successful edit of one run. Only that run's share of
// the block text is replaced; the block keeps its style.
func (x *Index) CommitRun(runID, text string, layoutRect *coords.Rect) error {
	b, r, ok := x.LookupRun(runID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, runID)
	}
	if r.start < 0 || r.start > r.end || r.end > len(b.Text) {
		return fmt.Errorf("%w: run %s is out of step with its block text", ErrUnknownBlock, runID)
	}
	delta := len(text) - (r.end - r.start)
	b.Text = b.Text[:r.start] + text + b.Text[r.end:]
	r.Text = text
	r.end = r.start + len(text)
	for i := range b.Runs {
		if o := &b.Runs[i]; o != r && o.start >= r.start {
			o.start += delta
			o.end += delta
		}
	}
	if layoutRect != nil {
		b.LayoutRect = *layoutRect
	}
	return nil
}
