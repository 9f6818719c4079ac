// Package session ties an open document, its edit engine and its history
// together. Text edits and structural changes go through the history, so
// every mutation made via a Session can be undone.
//
// Page indexes are zero-based, except edit.Request.Page which is one-based.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"github.com/wudi/pdfedit/command"
	"github.com/wudi/pdfedit/config"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/edit"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/optimize"
	"github.com/wudi/pdfedit/overlap"
	"github.com/wudi/pdfedit/parser"
	"github.com/wudi/pdfedit/recovery"
	"github.com/wudi/pdfedit/textindex"
)

// ErrClosed is returned by every method of a closed session.
var ErrClosed = errors.New("session is closed")

// Session is one open document. It is not safe for concurrent use.
type Session struct {
	engine    *edit.Engine
	history   *command.Manager
	optimizer *optimize.Optimizer
	ext       *extractor.Extractor
	logger    observability.Logger
	closed    bool
}

type options struct {
	cfg      config.Config
	logger   observability.Logger
	tracer   observability.Tracer
	resolver *fonts.Resolver
	recovery recovery.Strategy
	limit    int
	optimize optimize.Config
}

type Option func(*options)

func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

func WithLogger(l observability.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func WithResolver(r *fonts.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithRecovery sets how damaged input is handled while opening. The
// default skips broken objects.
func WithRecovery(s recovery.Strategy) Option {
	return func(o *options) {
		if s != nil {
			o.recovery = s
		}
	}
}

// WithHistoryLimit caps the number of undoable commands.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithOptimize sets the compaction passes run on save.
func WithOptimize(cfg optimize.Config) Option {
	return func(o *options) { o.optimize = cfg }
}

// Open parses data and indexes every page.
func Open(ctx context.Context, data []byte, opts ...Option) (*Session, error) {
	o := options{
		cfg:      config.Default(),
		logger:   observability.NopLogger{},
		recovery: recovery.NewLenientStrategy(),
		optimize: optimize.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !filetype.Is(data, "pdf") {
		return nil, parser.ErrNotPDF
	}
	doc, err := parser.NewDocumentParser(parser.Config{Recovery: o.recovery}).Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	engine, err := edit.New(ctx, doc,
		edit.WithConfig(o.cfg),
		edit.WithLogger(o.logger),
		edit.WithTracer(o.tracer),
		edit.WithResolver(o.resolver))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	o.logger.Info("document opened", observability.Int("pages", len(doc.Pages)), observability.Int("bytes", len(data)))
	return &Session{
		engine:    engine,
		history:   command.NewManager(command.WithLimit(o.limit), command.WithLogger(o.logger)),
		optimizer: optimize.New(o.optimize),
		ext:       extractor.New(),
		logger:    o.logger,
	}, nil
}

// OpenFile opens the document stored at path.
func OpenFile(ctx context.Context, path string, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return Open(ctx, data, opts...)
}

// Close drops the history and the index. The session cannot be used
// afterwards.
func (s *Session) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.history.Clear()
	s.engine.Index().Clear()
	s.closed = true
	return nil
}

// Engine exposes the underlying edit engine. Mutations made through it
// directly are not recorded in the history.
func (s *Session) Engine() *edit.Engine { return s.engine }

// PageCount is the number of pages in the document.
func (s *Session) PageCount() int { return len(s.engine.Document().Pages) }

// Blocks lists the indexed text blocks of page i.
func (s *Session) Blocks(i int) ([]*textindex.Block, error) {
	if err := s.check(i); err != nil {
		return nil, err
	}
	return s.engine.Index().Blocks(i), nil
}

// Text extracts the text of page i.
func (s *Session) Text(ctx context.Context, i int) (string, error) {
	if err := s.check(i); err != nil {
		return "", err
	}
	return s.ext.Text(ctx, s.engine.Document().Pages[i])
}

// Edit replaces text and records the edit for undo.
func (s *Session) Edit(ctx context.Context, req edit.Request) (edit.Result, error) {
	if s.closed {
		return edit.Result{}, ErrClosed
	}
	c := command.NewEditText(s.engine, req)
	if err := s.history.Execute(ctx, c); err != nil {
		return edit.Result{}, err
	}
	return c.Result(), nil
}

// InsertPage adds a page before position at. A zero size copies the size
// of the neighbouring page.
func (s *Session) InsertPage(ctx context.Context, at int, width, height float64) error {
	return s.apply(ctx, fmt.Sprintf("Insert page %d", at+1), true, func(ctx context.Context) error {
		return s.engine.InsertPage(ctx, at, width, height)
	})
}

func (s *Session) DeletePage(ctx context.Context, i int) error {
	return s.apply(ctx, fmt.Sprintf("Delete page %d", i+1), true, func(ctx context.Context) error {
		return s.engine.DeletePage(ctx, i)
	})
}

// RotatePage turns page i clockwise by degrees, a multiple of 90.
func (s *Session) RotatePage(ctx context.Context, i, degrees int) error {
	return s.apply(ctx, fmt.Sprintf("Rotate page %d", i+1), false, func(ctx context.Context) error {
		return s.engine.RotatePage(ctx, i, degrees)
	})
}

func (s *Session) MovePage(ctx context.Context, from, to int) error {
	return s.apply(ctx, fmt.Sprintf("Move page %d to %d", from+1, to+1), true, func(ctx context.Context) error {
		return s.engine.MovePage(ctx, from, to)
	})
}

func (s *Session) AddAnnotation(ctx context.Context, i int, d overlap.Descriptor) error {
	return s.apply(ctx, fmt.Sprintf("Add %s annotation on page %d", d.Kind, i+1), false, func(ctx context.Context) error {
		return s.engine.AddAnnotation(ctx, i, d)
	})
}

// AddHighlight highlights the text lines of page i that touch rect.
func (s *Session) AddHighlight(ctx context.Context, i int, rect coords.Rect, color []float64) error {
	return s.apply(ctx, fmt.Sprintf("Highlight on page %d", i+1), false, func(ctx context.Context) error {
		return s.engine.AddHighlight(ctx, i, rect, color)
	})
}

// apply runs a document-level change as a snapshot command. Changes that
// leave the document bytes as they were are not recorded.
func (s *Session) apply(ctx context.Context, description string, structural bool, fn func(context.Context) error) error {
	if s.closed {
		return ErrClosed
	}
	c, err := command.Capture(ctx, s.engine, description, fn)
	if err != nil {
		return err
	}
	if !c.Changed() {
		s.logger.Debug("structural change had no effect", observability.String("command", description))
		return nil
	}
	c.Structural = structural
	s.history.Record(c)
	return nil
}

// Undo steps back one command. An empty undo stack is a no-op.
func (s *Session) Undo(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.history.Undo(ctx); err != nil && !errors.Is(err, command.ErrNothingToUndo) {
		return err
	}
	return nil
}

// Redo reapplies the last undone command. An empty redo stack is a no-op.
func (s *Session) Redo(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.history.Redo(ctx); err != nil && !errors.Is(err, command.ErrNothingToRedo) {
		return err
	}
	return nil
}

func (s *Session) CanUndo() bool { return !s.closed && s.history.CanUndo() }

func (s *Session) CanRedo() bool { return !s.closed && s.history.CanRedo() }

// UndoDescription and RedoDescription describe the next history step.
func (s *Session) UndoDescription() string { return s.history.UndoDescription() }

func (s *Session) RedoDescription() string { return s.history.RedoDescription() }

// Modified reports whether the document differs from the last save.
func (s *Session) Modified() bool { return s.history.HasPendingChanges() }

// Save compacts the pages touched since the last save and serializes the
// document.
func (s *Session) Save(ctx context.Context) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	dirty := s.engine.DirtyPages()
	st, err := s.optimizer.OptimizePages(ctx, s.engine.Document(), dirty)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	if st.OpsRemoved > 0 {
		for _, i := range dirty {
			if err := s.engine.Index().RebuildPage(ctx, i, s.engine.Document()); err != nil {
				return nil, fmt.Errorf("save: %w", err)
			}
		}
	}
	data, err := s.engine.CaptureDocSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	s.engine.ClearDirty()
	s.history.MarkSaved()
	s.logger.Info("document saved",
		observability.Int("pages_compacted", len(dirty)),
		observability.Int("ops_removed", st.OpsRemoved),
		observability.Int("fonts_merged", st.FontsMerged),
		observability.Int("bytes", len(data)))
	return data, nil
}

// SaveFile saves to path through a temporary file in the same directory.
func (s *Session) SaveFile(ctx context.Context, path string) error {
	data, err := s.Save(ctx)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdfedit-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Session) check(i int) error {
	if s.closed {
		return ErrClosed
	}
	if i < 0 || i >= s.PageCount() {
		return fmt.Errorf("page %d: %w", i, edit.ErrNotFound)
	}
	return nil
}
