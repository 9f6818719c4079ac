// Package layout fits styled text runs into a box and places them on a page.
// The fitter reports whether the text fits, the scale it was drawn at and how
// much height is left over, so callers can size the final box exactly.
package layout

import (
	"math"
	"strings"
	"unicode"

	"github.com/wudi/pdfedit/builder"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

const (
	// fitTolerance absorbs rounding in width sums.
	fitTolerance = 0.01
	// shrinkSteps is the number of bisection rounds when shrinking.
	shrinkSteps = 12
	// minScaleFloor stands in for "unconstrained" shrinking.
	minScaleFloor = 0.01
)

// Engine wraps runs into lines with the metrics of the fonts the builder
// will use, so a reported fit holds once the text is drawn.
type Engine struct {
	resolver *fonts.Resolver

	// LineHeight is the line pitch as a multiple of the font size.
	LineHeight float64
	// DefaultFont and DefaultFontSize fill in runs that leave them empty.
	DefaultFont     string
	DefaultFontSize float64

	resources map[string]*semantic.Font
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithLineHeight sets the line height multiplier.
func WithLineHeight(height float64) Option {
	return func(e *Engine) {
		if height > 0 {
			e.LineHeight = height
		}
	}
}

// WithDefaultFont sets the font for runs without one.
func WithDefaultFont(font string) Option {
	return func(e *Engine) {
		e.DefaultFont = font
	}
}

// WithDefaultFontSize sets the size for runs without one.
func WithDefaultFontSize(size float64) Option {
	return func(e *Engine) {
		if size > 0 {
			e.DefaultFontSize = size
		}
	}
}

// NewEngine creates a layout engine. A nil resolver uses the built-in fonts.
func NewEngine(resolver *fonts.Resolver, opts ...Option) *Engine {
	if resolver == nil {
		resolver = fonts.NewResolver()
	}
	e := &Engine{
		resolver:        resolver,
		LineHeight:      1.2,
		DefaultFont:     fonts.DefaultFont,
		DefaultFontSize: 12,
		resources:       make(map[string]*semantic.Font),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FitOptions controls shrinking. With Shrink unset text is laid out at its
// own size only. MinScale bounds the shrink; zero means no practical bound.
type FitOptions struct {
	Shrink   bool
	MinScale float64
}

// Placed is a piece of one line drawn with a single font.
type Placed struct {
	Text  string
	Font  string
	Size  float64
	Color builder.Color
	// Offset is the distance from the line start along the baseline.
	Offset float64
	Width  float64
}

// Line is one wrapped line. Baseline is measured from the top of the box;
// Ascent and Descent are the ink extents above and below it.
type Line struct {
	Items    []Placed
	Width    float64
	Baseline float64
	Height   float64
	Ascent   float64
	Descent  float64
}

// Result describes a layout attempt.
type Result struct {
	Fits  bool
	Scale float64
	Lines []Line
	// Width is the widest line, Height the total line pitch.
	Width  float64
	Height float64
	// Spare is the unused box height; negative when the text overflows.
	Spare float64
	// BoxWidth and BoxHeight echo the box the text was fitted into.
	BoxWidth  float64
	BoxHeight float64
}

// Text returns the laid-out text, lines joined with newlines.
func (r Result) Text() string {
	lines := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		var sb strings.Builder
		for _, it := range l.Items {
			sb.WriteString(it.Text)
		}
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// InkTop is the distance from the box top to the top of the first line's
// glyphs.
func (r Result) InkTop() float64 {
	if len(r.Lines) == 0 {
		return 0
	}
	return r.Lines[0].Baseline - r.Lines[0].Ascent
}

// InkHeight is the glyph extent from the first line's top to the last
// line's bottom.
func (r Result) InkHeight() float64 {
	if len(r.Lines) == 0 {
		return 0
	}
	last := r.Lines[len(r.Lines)-1]
	return last.Baseline + last.Descent - r.InkTop()
}

// Fit lays runs out in a box of the given size, shrinking when allowed.
func (e *Engine) Fit(runs []Run, width, height float64, opts FitOptions) Result {
	res := e.layout(runs, width, height, 1)
	if res.Fits || !opts.Shrink {
		return res
	}
	lo := opts.MinScale
	if lo <= 0 {
		lo = minScaleFloor
	}
	if lo >= 1 {
		return res
	}
	floor := e.layout(runs, width, height, lo)
	if !floor.Fits {
		return floor
	}
	best, hi := floor, 1.0
	for i := 0; i < shrinkSteps; i++ {
		mid := (lo + hi) / 2
		if r := e.layout(runs, width, height, mid); r.Fits {
			best, lo = r, mid
		} else {
			hi = mid
		}
	}
	return best
}

// Measure returns the unwrapped width of the widest line of runs.
func (e *Engine) Measure(runs []Run) float64 {
	r := e.layout(runs, math.Inf(1), math.Inf(1), 1)
	return r.Width
}

// token is a wrap unit: a word, a single CJK rune or a space.
type token struct {
	text  string
	space bool
	run   Run
}

type wrapper struct {
	e        *Engine
	maxWidth float64
	scale    float64
	lines    []Line
	cur      Line
	pending  []pendingSpace
	lastSize float64
}

// pendingSpace is a space held back until a word follows it on the same
// line, so lines never end in blanks.
type pendingSpace struct {
	tok   token
	font  string
	size  float64
	width float64
}

func (e *Engine) layout(runs []Run, width, height, scale float64) Result {
	w := &wrapper{e: e, maxWidth: width, scale: scale, lastSize: e.DefaultFontSize * scale}
	for _, run := range runs {
		if run.Break {
			w.flush(true)
			continue
		}
		run = e.defaults(run)
		for _, tok := range tokenize(run) {
			w.add(tok)
		}
	}
	w.flush(false)

	res := Result{Scale: scale, Lines: w.lines, BoxWidth: width, BoxHeight: height}
	for _, l := range res.Lines {
		res.Width = math.Max(res.Width, l.Width)
		res.Height += l.Height
	}
	res.Spare = height - res.Height
	res.Fits = res.Width <= width+fitTolerance && res.Height <= height+fitTolerance
	return res
}

func (e *Engine) defaults(r Run) Run {
	if r.Font == "" {
		r.Font = e.DefaultFont
	}
	if r.Size <= 0 {
		r.Size = e.DefaultFontSize
	}
	return r
}

func tokenize(run Run) []token {
	var out []token
	var word strings.Builder
	flushWord := func() {
		if word.Len() > 0 {
			out = append(out, token{text: word.String(), run: run})
			word.Reset()
		}
	}
	for _, r := range run.Text {
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			flushWord()
			out = append(out, token{text: " ", space: true, run: run})
		case isCJK(r):
			flushWord()
			out = append(out, token{text: string(r), run: run})
		default:
			word.WriteRune(r)
		}
	}
	flushWord()
	return out
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// FontFor returns the font name a run's text is drawn with.
func (e *Engine) FontFor(r Run, text string) string {
	name := fonts.WithStyle(e.resolver.Resolve(r.Font), r.Bold, r.Italic)
	return e.resolver.ResolveFor(name, text)
}

func (e *Engine) width(name, text string, size float64) float64 {
	f, ok := e.resources[name]
	if !ok {
		f = e.resolver.Font(name)
		e.resources[name] = f
	}
	return fonts.TextWidth(f, text, size)
}

func (w *wrapper) add(tok token) {
	size := tok.run.Size * w.scale
	name := w.e.FontFor(tok.run, tok.text)
	tw := w.e.width(name, tok.text, size)

	if tok.space {
		if len(w.cur.Items) > 0 {
			w.pending = append(w.pending, pendingSpace{tok: tok, font: name, size: size, width: tw})
		}
		return
	}
	lead := 0.0
	for _, sp := range w.pending {
		lead += sp.width
	}
	if w.cur.Width+lead+tw <= w.maxWidth+fitTolerance {
		for _, sp := range w.pending {
			w.place(sp.tok, sp.font, sp.size, sp.width)
		}
		w.pending = nil
		w.place(tok, name, size, tw)
		return
	}
	w.flush(false)
	if tw <= w.maxWidth+fitTolerance {
		w.place(tok, name, size, tw)
		return
	}
	// Longer than a whole line: break between characters.
	for _, r := range tok.text {
		ch := token{text: string(r), run: tok.run}
		cw := w.e.width(name, ch.text, size)
		if len(w.cur.Items) > 0 && w.cur.Width+cw > w.maxWidth+fitTolerance {
			w.flush(false)
		}
		w.place(ch, name, size, cw)
	}
}

func (w *wrapper) place(tok token, name string, size, width float64) {
	items := w.cur.Items
	if n := len(items); n > 0 {
		last := &items[n-1]
		if last.Font == name && last.Size == size && last.Color == tok.run.Color {
			last.Text += tok.text
			last.Width += width
			w.cur.Width += width
			return
		}
	}
	w.cur.Items = append(items, Placed{
		Text:   tok.text,
		Font:   name,
		Size:   size,
		Color:  tok.run.Color,
		Offset: w.cur.Width,
		Width:  width,
	})
	w.cur.Width += width
}

// flush closes the current line. A forced flush keeps an empty line.
func (w *wrapper) flush(force bool) {
	w.pending = nil
	if len(w.cur.Items) == 0 && !force {
		return
	}
	size, ascent, descent := w.lastSize, 0.8*w.lastSize, 0.2*w.lastSize
	if len(w.cur.Items) > 0 {
		size, ascent, descent = 0, 0, 0
		for _, it := range w.cur.Items {
			a, d := fonts.VerticalMetrics(w.e.resources[it.Font])
			size = math.Max(size, it.Size)
			ascent = math.Max(ascent, a*it.Size)
			descent = math.Max(descent, -d*it.Size)
		}
	}
	pitch := size * w.e.LineHeight
	top := 0.0
	for _, l := range w.lines {
		top += l.Height
	}
	w.cur.Height = pitch
	w.cur.Baseline = top + (pitch-size)/2 + ascent
	w.cur.Ascent, w.cur.Descent = ascent, descent
	w.lines = append(w.lines, w.cur)
	w.lastSize = size
	w.cur = Line{}
}
