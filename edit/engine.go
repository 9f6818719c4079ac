// Package edit replaces text on the pages of an open document. Each edit
// runs the same protocol: locate the target block, clear its footprint,
// insert the replacement with a tiered fallback, verify the page text and
// commit the new geometry to the index. Any failure after the page was
// touched restores the page from a snapshot.
package edit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wudi/pdfedit/config"
	"github.com/wudi/pdfedit/contentstream/editor"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/layout"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlap"
	"github.com/wudi/pdfedit/reflow"
	"github.com/wudi/pdfedit/textindex"
	"github.com/wudi/pdfedit/textmatch"
	"github.com/wudi/pdfedit/writer"
)

// Engine edits one document. It is not safe for concurrent use.
type Engine struct {
	doc      *semantic.Document
	index    *textindex.Index
	cfg      config.Config
	resolver *fonts.Resolver
	layout   *layout.Engine
	matcher  textmatch.Matcher
	guard    *overlap.Guard
	reflow   *reflow.Engine
	editor   editor.Editor
	ext      *extractor.Extractor
	logger   observability.Logger
	tracer   observability.Tracer

	dirty map[int]bool
}

type Option func(*Engine)

// WithConfig replaces the default tunables.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithResolver sets the font resolver used for measuring and drawing.
func WithResolver(r *fonts.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates an engine for doc and indexes every page.
func New(ctx context.Context, doc *semantic.Document, opts ...Option) (*Engine, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, errors.New("edit: document has no pages")
	}
	e := &Engine{
		doc:      doc,
		cfg:      config.Default(),
		resolver: fonts.NewResolver(),
		editor:   editor.NewEditor(),
		ext:      extractor.New(),
		logger:   observability.NopLogger{},
		tracer:   observability.NopTracer(),
		dirty:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("edit: %w", err)
	}

	e.matcher = textmatch.Matcher{Threshold: e.cfg.Match.Threshold, MaxLengthRatio: e.cfg.Match.MaxLengthRatio}
	e.layout = layout.NewEngine(e.resolver,
		layout.WithLineHeight(e.cfg.Layout.LineHeight),
		layout.WithDefaultFont(e.cfg.Layout.DefaultFont),
		layout.WithDefaultFontSize(e.cfg.Layout.DefaultSize))
	e.guard = overlap.New(overlap.WithLogger(e.logger))
	e.index = textindex.New(
		textindex.WithMatcher(e.matcher),
		textindex.WithWorkers(e.cfg.Index.Workers),
		textindex.WithLogger(e.logger))
	e.reflow = reflow.New(e.index, e.resolver,
		reflow.WithGap(e.cfg.Reflow.Gap),
		reflow.WithEpsilon(e.cfg.Reflow.Epsilon),
		reflow.WithGuard(e.guard),
		reflow.WithLogger(e.logger))

	renumber(doc)
	if err := e.index.Build(ctx, doc); err != nil {
		return nil, fmt.Errorf("edit: %w", err)
	}
	return e, nil
}

// Document is the document being edited. Restoring a document snapshot
// replaces its contents in place, so the pointer stays valid.
func (e *Engine) Document() *semantic.Document { return e.doc }

func (e *Engine) Index() *textindex.Index { return e.index }

func (e *Engine) Config() config.Config { return e.cfg }

// DirtyPages lists the pages holding clear placeholders, in order.
func (e *Engine) DirtyPages() []int {
	out := make([]int, 0, len(e.dirty))
	for i := range e.dirty {
		if i < len(e.doc.Pages) {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// ClearDirty forgets the pages marked for compaction.
func (e *Engine) ClearDirty() {
	e.dirty = make(map[int]bool)
}

func (e *Engine) writeConfig() writer.Config {
	return writer.Config{Compress: e.cfg.Write.Compress}
}

func (e *Engine) page(op string, i int) (*semantic.Page, error) {
	if i < 0 || i >= len(e.doc.Pages) {
		return nil, fail(ErrNotFound, i, op, fmt.Errorf("%w: %d of %d", textindex.ErrPageRange, i, len(e.doc.Pages)))
	}
	return e.doc.Pages[i], nil
}

// renumber makes every page's Index its position in the document.
func renumber(doc *semantic.Document) {
	for i, p := range doc.Pages {
		p.Index = i
	}
}
