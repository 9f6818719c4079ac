package edit

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/layout"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/reflow"
	"github.com/wudi/pdfedit/textindex"
	"github.com/wudi/pdfedit/textmatch"
)

const opEditText = "edit text"

// target is a located block, narrowed to a run in run mode.
type target struct {
	block *textindex.Block
	run   *textindex.Run
}

// footprint is the area the replaced text currently covers.
func (t target) footprint() coords.Rect {
	if t.run != nil {
		return t.run.Rect
	}
	return t.block.LayoutRect
}

func (t target) text() string {
	if t.run != nil {
		return t.run.Text
	}
	return t.block.Text
}

// EditText replaces the text at req. On failure the page is left as it
// was and the returned *Error names the failed step.
func (e *Engine) EditText(ctx context.Context, req Request) (Result, error) {
	pageIndex := req.Page - 1
	ctx, span := e.tracer.StartSpan(ctx, "edit.EditText")
	defer span.Finish()
	span.SetTag("page", pageIndex)

	res, err := e.editText(ctx, pageIndex, req)
	if err != nil {
		span.SetError(err)
		e.logger.Warn("edit failed", observability.Int("page", pageIndex), observability.Error("error", err))
		return Result{}, err
	}
	e.logger.Info("edit committed",
		observability.Int("page", pageIndex),
		observability.String("block", res.BlockID),
		observability.String("strategy", string(res.Strategy)),
		observability.Float64("similarity", res.Similarity))
	return res, nil
}

func (e *Engine) editText(ctx context.Context, pageIndex int, req Request) (Result, error) {
	page, err := e.page(opEditText, pageIndex)
	if err != nil {
		return Result{}, err
	}
	page.Index = pageIndex

	runs, err := layout.Parse(req.Markup, req.Text, layout.Style{})
	if err != nil {
		return Result{}, fail(ErrAborted, pageIndex, opEditText, err)
	}

	t, err := e.locate(ctx, page, req)
	if err != nil {
		return Result{}, fail(ErrNotFound, pageIndex, opEditText, err)
	}
	e.logger.Debug("edit target located",
		observability.Int("page", pageIndex),
		observability.String("block", t.block.ID),
		observability.String("text", t.text()))

	style := e.style(t, req)
	runs = applyStyle(runs, style)

	var res Result
	err = e.guarded(ctx, pageIndex, func() error {
		var err error
		res, err = e.replace(ctx, page, t, req, runs, style)
		return err
	})
	if err != nil {
		return Result{}, classify(err, pageIndex, opEditText)
	}
	return res, nil
}

// locate resolves the target. A hint that no longer matches the live text
// inside the found block means the index is stale: the page is re-indexed
// and the lookup retried once.
func (e *Engine) locate(ctx context.Context, page *semantic.Page, req Request) (target, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanLocate)
	defer span.Finish()

	var b *textindex.Block
	if req.TargetID != "" {
		var run *textindex.Run
		var ok bool
		b, run, ok = e.lookup(req.TargetID)
		if !ok || b.PageNum != page.Index {
			return target{}, fmt.Errorf("%w: %s", textindex.ErrNotFound, req.TargetID)
		}
		if run != nil && req.Mode == ModeRun {
			return target{block: b, run: run}, nil
		}
	} else {
		var err error
		b, err = e.index.FindByRegion(ctx, e.doc, page.Index, req.Rect, req.Hint)
		if err != nil {
			return target{}, err
		}
		if req.Hint != "" && !e.hintHolds(ctx, page, b, req.Hint) {
			e.logger.Debug("hint does not match live text, re-indexing page", observability.Int("page", page.Index))
			if err := e.index.RebuildPage(ctx, page.Index, e.doc); err != nil {
				return target{}, err
			}
			if b, err = e.index.FindByRegion(ctx, e.doc, page.Index, req.Rect, req.Hint); err != nil {
				return target{}, err
			}
		}
	}

	t := target{block: b}
	if req.Mode == ModeRun {
		rough := req.Rect
		if rough.IsEmpty() {
			rough = b.LayoutRect
		}
		r, ok := e.index.FindRun(b, rough, req.Hint)
		if !ok {
			return target{}, fmt.Errorf("%w: no run of %s at region", textindex.ErrNotFound, b.ID)
		}
		t.run = r
	}
	return t, nil
}

// lookup accepts block ids and run ids. The run is nil for a block id.
func (e *Engine) lookup(id string) (*textindex.Block, *textindex.Run, bool) {
	if b, ok := e.index.Lookup(id); ok {
		return b, nil, true
	}
	return e.index.LookupRun(id)
}

func (e *Engine) hintHolds(ctx context.Context, page *semantic.Page, b *textindex.Block, hint string) bool {
	live, err := e.ext.TextInRect(ctx, page, b.LayoutRect)
	if err != nil {
		return false
	}
	score, ok := e.matcher.Score(hint, live)
	return ok && score >= e.cfg.Match.Threshold
}

// style fills the request's style from the target.
func (e *Engine) style(t target, req Request) layout.Style {
	font, size, color := t.block.Font, t.block.Size, t.block.Color
	if t.run != nil {
		font, size, color = t.run.Font, t.run.Size, t.run.Color
	}
	st := layout.Style{Font: e.resolver.Resolve(font), Size: size, Color: builder.ColorFrom(color)}
	if req.Font != "" {
		st.Font = e.resolver.Resolve(req.Font)
	}
	if req.Size > 0 {
		st.Size = req.Size
	}
	if req.Color != nil {
		st.Color = builder.ColorFrom(req.Color)
	}
	if st.Font == "" {
		st.Font = e.cfg.Layout.DefaultFont
	}
	if st.Size <= 0 {
		st.Size = e.cfg.Layout.DefaultSize
	}
	return st
}

// applyStyle sets the base style on runs parsed without one. Colors set by
// markup are kept.
func applyStyle(runs []layout.Run, st layout.Style) []layout.Run {
	out := make([]layout.Run, len(runs))
	for i, r := range runs {
		if r.Font == "" {
			r.Font = st.Font
		}
		if r.Size <= 0 {
			r.Size = st.Size
		}
		if r.Color == (builder.Color{}) {
			r.Color = st.Color
		}
		out[i] = r
	}
	return out
}

// replace runs the mutating steps: reflow, clear, insert, verify, commit.
func (e *Engine) replace(ctx context.Context, page *semantic.Page, t target, req Request, runs []layout.Run, style layout.Style) (Result, error) {
	rotation := t.block.Rotation()
	vertical := t.block.IsVertical()
	foot := t.footprint()
	dest := foot
	if req.NewRect != nil {
		dest = *req.NewRect
	}

	g := e.geometry(page, dest, rotation, req.VerticalShiftLeft, style.Size)
	p, err := e.fit(runs, g, vertical)
	if err != nil {
		return Result{}, fail(ErrOverflowUnresolvable, page.Index, opEditText, err)
	}

	res := Result{BlockID: t.block.ID, Strategy: p.strategy, Scale: p.res.Scale}
	if t.run != nil {
		res.RunID = t.run.ID
	}

	// Blocks below must move before anything is cleared.
	if rotation == 0 && req.NewRect == nil {
		if need := p.res.InkHeight(); need > foot.Height()+e.cfg.Reflow.Epsilon {
			rctx, span := e.tracer.StartSpan(ctx, observability.SpanReflow)
			moved, err := e.reflow.PushDown(rctx, page, foot.Y1, dest.Y0+need, xRange(foot, dest.X0+p.res.Width))
			span.Finish()
			if err != nil {
				return Result{}, err
			}
			res.Reflowed = moved.IDs()
		}
	}

	if err := e.clear(ctx, page, foot); err != nil {
		return Result{}, err
	}

	_, span := e.tracer.StartSpan(ctx, observability.SpanInsert)
	span.SetTag("strategy", string(p.strategy))
	frame := p.frame(g)
	mark := contentMark(page)
	pb := builder.EditPage(page, e.resolver)
	res.Missing = p.res.Render(pb, frame)
	if vertical {
		tight := e.tighten(runs, p)
		truncate(page, mark)
		p = tight
		frame = p.frame(g)
		res.Missing = p.res.Render(builder.EditPage(page, e.resolver), frame)
	}
	span.Finish()
	if len(res.Missing) > 0 {
		e.logger.Warn("replacement has runes no font can encode",
			observability.Int("page", page.Index), observability.String("runes", string(res.Missing)))
	}

	want := layout.PlainText(runs)
	sim, err := e.verify(ctx, page, t, want, vertical)
	if err != nil {
		return Result{}, err
	}
	res.Similarity = sim

	ink := p.res.InkBounds(frame)
	res.Rect = ink
	if err := e.commit(t, req, want, style, p.res.Scale, ink, vertical); err != nil {
		return Result{}, err
	}
	e.dirty[page.Index] = true
	return res, nil
}

func xRange(foot coords.Rect, right float64) reflow.XRange {
	return reflow.XRange{X0: foot.X0, X1: max(foot.X1, right)}
}

// clear removes the text inside foot. Annotations over it survive.
func (e *Engine) clear(ctx context.Context, page *semantic.Page, foot coords.Rect) error {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanClear)
	defer span.Finish()
	descs := e.guard.Capture(page, foot)
	if _, err := e.editor.ClearText(ctx, page, foot); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	e.guard.Restore(page, descs, 0)
	return nil
}

// verify checks the new text reads back and no other text was lost.
func (e *Engine) verify(ctx context.Context, page *semantic.Page, t target, want string, vertical bool) (float64, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanVerify)
	defer span.Finish()

	text, err := e.ext.Text(ctx, page)
	if err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}
	sim := 1.0
	if textmatch.Normalize(want) != "" {
		sim = textmatch.Similarity(want, text)
	}
	span.SetTag("similarity", sim)
	if !vertical && sim < e.cfg.Match.VerifyMin {
		return sim, fail(ErrVerificationFailed, page.Index, opEditText,
			fmt.Errorf("similarity %.2f below %.2f", sim, e.cfg.Match.VerifyMin))
	}

	var kept []string
	for _, b := range e.index.Blocks(page.Index) {
		if b != t.block {
			kept = append(kept, b.Text)
			continue
		}
		if t.run != nil {
			for i := range b.Runs {
				if &b.Runs[i] != t.run {
					kept = append(kept, b.Runs[i].Text)
				}
			}
		}
	}
	for _, k := range kept {
		if textmatch.Normalize(k) != "" && !textmatch.Contains(text, k) {
			return sim, fail(ErrVerificationFailed, page.Index, opEditText,
				fmt.Errorf("text %q is no longer on the page", k))
		}
	}
	return sim, nil
}

func (e *Engine) commit(t target, req Request, want string, style layout.Style, scale float64, ink coords.Rect, vertical bool) error {
	var rect *coords.Rect
	if !vertical || req.NewRect != nil {
		rect = &ink
	}
	if t.run != nil {
		if rect != nil {
			grown := t.block.LayoutRect.Union(ink)
			rect = &grown
		}
		return e.index.CommitRun(t.run.ID, want, rect)
	}
	return e.index.Commit(t.block.ID, textindex.Update{
		Text:       want,
		Font:       style.Font,
		Size:       style.Size * scale,
		Color:      style.Color.Components(),
		LayoutRect: rect,
	})
}

// guarded runs fn and rolls the page back when it fails or panics.
func (e *Engine) guarded(ctx context.Context, pageIndex int, fn func() error) (err error) {
	snap, snapErr := e.CapturePageSnapshot(ctx, pageIndex)
	if snapErr != nil {
		e.logger.Warn("page snapshot failed, keeping an in-memory copy",
			observability.Int("page", pageIndex), observability.Error("error", snapErr))
	}
	clone := e.doc.Pages[pageIndex].Clone()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil {
			return
		}
		if rerr := e.rollback(context.WithoutCancel(ctx), pageIndex, snap, clone); rerr != nil {
			e.logger.Error("rollback failed",
				observability.Int("page", pageIndex), observability.Error("error", rerr))
			err = fail(ErrSnapshotRestoreFailed, pageIndex, opEditText, errors.Join(err, rerr))
		}
	}()
	return fn()
}

func (e *Engine) rollback(ctx context.Context, pageIndex int, snap []byte, clone *semantic.Page) error {
	if snap != nil {
		err := e.RestorePageSnapshot(ctx, pageIndex, snap)
		if err == nil {
			return nil
		}
		e.logger.Warn("page snapshot restore failed, using in-memory copy",
			observability.Int("page", pageIndex), observability.Error("error", err))
	}
	if clone == nil {
		return errors.New("no copy of the page")
	}
	clone.Index = pageIndex
	e.doc.Pages[pageIndex] = clone
	if err := e.index.RebuildPage(ctx, pageIndex, e.doc); err != nil {
		return fmt.Errorf("re-index restored page: %w", err)
	}
	return nil
}

// mark is the position new drawing will be appended at.
type mark struct {
	streams, ops int
}

func contentMark(page *semantic.Page) mark {
	m := mark{streams: len(page.Contents)}
	if m.streams > 0 {
		m.ops = len(page.Contents[m.streams-1].Operations)
	}
	return m
}

// truncate removes everything drawn after m.
func truncate(page *semantic.Page, m mark) {
	if m.streams == 0 {
		page.Contents = nil
		return
	}
	page.Contents = page.Contents[:m.streams]
	last := &page.Contents[m.streams-1]
	last.Operations = last.Operations[:m.ops]
}
