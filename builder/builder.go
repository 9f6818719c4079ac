// Package builder draws text, shapes and annotations onto new or existing
// pages through a fluent API.
package builder

import (
	"fmt"
	"math"
	"sort"

	"github.com/wudi/pdfedit/contentstream"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

// PDFBuilder provides a fluent API for document construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	AddPage(page *semantic.Page) PDFBuilder
	SetInfo(info semantic.DocumentInfo) PDFBuilder
	AddEmbeddedFile(file semantic.EmbeddedFile) PDFBuilder
	Build() (*semantic.Document, error)
}

// PageBuilder provides a fluent API for page construction.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	DrawTextRuns(runs []TextRun) PageBuilder
	DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder
	DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder
	AddAnnotation(ann semantic.Annotation) PageBuilder
	SetRotation(degrees int) PageBuilder
	// Page is the page being drawn on.
	Page() *semantic.Page
	// Missing lists runes no chosen font could encode; they were drawn as '?'.
	Missing() []rune
	Finish() PDFBuilder
}

// TextOptions configures text drawing. Font is a name the font resolver
// understands.
type TextOptions struct {
	Font         string
	FontSize     float64
	Color        Color
	Rotation     int
	RenderMode   contentstream.TextRenderMode
	CharSpacing  float64
	WordSpacing  float64
	HorizScaling float64
	Rise         float64
}

// TextRun is one positioned piece of text inside a shared text object.
// When Operand is set it is shown as is with the page font resource
// FontResource; otherwise Text is encoded with Font.
type TextRun struct {
	Text         string
	Font         string
	FontResource string
	Operand      semantic.Operand
	Size         float64
	Color        Color
	X, Y         float64 // baseline origin, user space
	Rotation     int
}

// PathOptions configures path drawing.
type PathOptions struct {
	StrokeColor Color
	FillColor   Color
	LineWidth   float64
	DashPattern []float64
	Fill        bool
	Stroke      bool
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions = PathOptions

// LineOptions configures line drawing.
type LineOptions struct {
	StrokeColor Color
	LineWidth   float64
	DashPattern []float64
}

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

var Black = Color{}

// ColorFrom converts gray, RGB or CMYK components.
func ColorFrom(c []float64) Color {
	switch len(c) {
	case 1:
		return Color{R: c[0], G: c[0], B: c[0]}
	case 3:
		return Color{R: c[0], G: c[1], B: c[2]}
	case 4:
		k := 1 - c[3]
		return Color{R: (1 - c[0]) * k, G: (1 - c[1]) * k, B: (1 - c[2]) * k}
	}
	return Black
}

// Components returns c as an RGB slice.
func (c Color) Components() []float64 { return []float64{c.R, c.G, c.B} }

type builderImpl struct {
	pages    []*semantic.Page
	info     semantic.DocumentInfo
	files    []semantic.EmbeddedFile
	resolver *fonts.Resolver
}

type pageBuilderImpl struct {
	parent   *builderImpl
	page     *semantic.Page
	resolver *fonts.Resolver
	fontKeys map[string]string
	missing  []rune
}

// NewBuilder constructs a PDFBuilder. A nil resolver uses the built-in
// fonts only.
func NewBuilder(resolver *fonts.Resolver) PDFBuilder {
	if resolver == nil {
		resolver = fonts.NewResolver()
	}
	return &builderImpl{resolver: resolver}
}

// EditPage returns a PageBuilder that appends to an existing page. Finish
// returns nil.
func EditPage(page *semantic.Page, resolver *fonts.Resolver) PageBuilder {
	if resolver == nil {
		resolver = fonts.NewResolver()
	}
	return &pageBuilderImpl{page: page, resolver: resolver}
}

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	p := &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: w, URY: h},
		Resources: semantic.NewResources(),
	}
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p, resolver: b.resolver}
}

func (b *builderImpl) AddPage(p *semantic.Page) PDFBuilder {
	b.pages = append(b.pages, p)
	return b
}

func (b *builderImpl) SetInfo(info semantic.DocumentInfo) PDFBuilder {
	b.info = info
	return b
}

func (b *builderImpl) AddEmbeddedFile(file semantic.EmbeddedFile) PDFBuilder {
	if file.Name == "" {
		return b
	}
	file.Data = append([]byte(nil), file.Data...)
	b.files = append(b.files, file)
	return b
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	if len(b.pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	for i, p := range b.pages {
		p.Index = i
	}
	return &semantic.Document{
		Version:       "1.7",
		Info:          b.info,
		Pages:         b.pages,
		EmbeddedFiles: b.files,
	}, nil
}

func (p *pageBuilderImpl) Page() *semantic.Page { return p.page }

func (p *pageBuilderImpl) Missing() []rune { return p.missing }

func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	ops := p.ensureContentOps()
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	key, font := p.fontResource(opts.Font)

	*ops = append(*ops, semantic.Op("q"), semantic.Op("BT"), semantic.Op("Tf", key, size))
	if opts.CharSpacing != 0 {
		*ops = append(*ops, semantic.Op("Tc", opts.CharSpacing))
	}
	if opts.WordSpacing != 0 {
		*ops = append(*ops, semantic.Op("Tw", opts.WordSpacing))
	}
	if opts.HorizScaling != 0 && opts.HorizScaling != 100 {
		*ops = append(*ops, semantic.Op("Tz", opts.HorizScaling))
	}
	if opts.Rise != 0 {
		*ops = append(*ops, semantic.Op("Ts", opts.Rise))
	}
	if opts.RenderMode != contentstream.TextFill {
		*ops = append(*ops, semantic.Op("Tr", int(opts.RenderMode)))
	}
	*ops = append(*ops, textMatrix(opts.Rotation, x, y))
	*ops = append(*ops, colorOp("rg", opts.Color))
	if isStrokeMode(opts.RenderMode) {
		*ops = append(*ops, colorOp("RG", opts.Color))
	}
	*ops = append(*ops, semantic.Op("Tj", semantic.StringOperand{Value: p.encode(font, text)}))
	*ops = append(*ops, semantic.Op("ET"), semantic.Op("Q"))
	return p
}

// DrawTextRuns paints runs inside one text object so extraction reads them
// as one block.
func (p *pageBuilderImpl) DrawTextRuns(runs []TextRun) PageBuilder {
	if len(runs) == 0 {
		return p
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Op("q"), semantic.Op("BT"))
	var curKey string
	var curSize float64
	var curColor *Color
	for _, r := range runs {
		size := r.Size
		if size <= 0 {
			size = 12
		}
		key := r.FontResource
		var font *semantic.Font
		if r.Operand == nil || p.page.Resources == nil || p.page.Resources.Fonts[key] == nil {
			key, font = p.fontResource(r.Font)
		}
		if key != curKey || size != curSize {
			*ops = append(*ops, semantic.Op("Tf", key, size))
			curKey, curSize = key, size
		}
		if curColor == nil || *curColor != r.Color {
			c := r.Color
			*ops = append(*ops, colorOp("rg", c))
			curColor = &c
		}
		*ops = append(*ops, textMatrix(r.Rotation, r.X, r.Y))
		if font == nil {
			op := "Tj"
			if _, ok := r.Operand.(semantic.ArrayOperand); ok {
				op = "TJ"
			}
			*ops = append(*ops, semantic.Op(op, r.Operand))
			continue
		}
		*ops = append(*ops, semantic.Op("Tj", semantic.StringOperand{Value: p.encode(font, r.Text)}))
	}
	*ops = append(*ops, semantic.Op("ET"), semantic.Op("Q"))
	return p
}

func (p *pageBuilderImpl) DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder {
	po := opts
	if !po.Stroke && !po.Fill {
		po.Stroke = true
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Op("q"))
	p.applyPathState(ops, po)
	*ops = append(*ops, semantic.Op("re", x, y, width, height))
	*ops = append(*ops, semantic.Op(paintOperator(po.Fill, po.Stroke)))
	*ops = append(*ops, semantic.Op("Q"))
	return p
}

func (p *pageBuilderImpl) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder {
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Op("q"))
	p.applyPathState(ops, PathOptions{
		StrokeColor: opts.StrokeColor,
		LineWidth:   opts.LineWidth,
		DashPattern: opts.DashPattern,
		Stroke:      true,
	})
	*ops = append(*ops, semantic.Op("m", x1, y1), semantic.Op("l", x2, y2), semantic.Op("S"), semantic.Op("Q"))
	return p
}

func (p *pageBuilderImpl) AddAnnotation(ann semantic.Annotation) PageBuilder {
	if ann != nil {
		p.page.Annotations = append(p.page.Annotations, ann)
	}
	return p
}

func (p *pageBuilderImpl) SetRotation(degrees int) PageBuilder {
	p.page.Rotate = coords.NormalizeRotation(degrees)
	return p
}

func (p *pageBuilderImpl) Finish() PDFBuilder {
	if p.parent == nil {
		return nil
	}
	return p.parent
}

// fontResource returns the resource name for a font, reusing one this
// package added before and otherwise picking the first free F<n>.
func (p *pageBuilderImpl) fontResource(name string) (string, *semantic.Font) {
	name = p.resolver.Resolve(name)
	res := p.ensureResources()
	if key, ok := p.fontKeys[name]; ok {
		return key, res.Fonts[key]
	}
	font := p.resolver.Font(name)
	for _, key := range sortedFontKeys(res.Fonts) {
		f := res.Fonts[key]
		if f.Raw == nil && f.BaseFont == font.BaseFont && f.Subtype == font.Subtype && f.Encoding == font.Encoding {
			p.remember(name, key)
			return key, f
		}
	}
	for i := 1; ; i++ {
		key := fmt.Sprintf("F%d", i)
		if _, taken := res.Fonts[key]; !taken {
			res.Fonts[key] = font
			p.remember(name, key)
			return key, font
		}
	}
}

func (p *pageBuilderImpl) remember(name, key string) {
	if p.fontKeys == nil {
		p.fontKeys = make(map[string]string)
	}
	p.fontKeys[name] = key
}

func (p *pageBuilderImpl) encode(font *semantic.Font, text string) []byte {
	data, missing := fonts.Encode(font, text)
	p.missing = append(p.missing, missing...)
	return data
}

func (p *pageBuilderImpl) ensureResources() *semantic.Resources {
	if p.page.Resources == nil {
		p.page.Resources = semantic.NewResources()
	}
	if p.page.Resources.Fonts == nil {
		p.page.Resources.Fonts = make(map[string]*semantic.Font)
	}
	return p.page.Resources
}

func (p *pageBuilderImpl) ensureContentOps() *[]semantic.Operation {
	if len(p.page.Contents) == 0 {
		p.page.Contents = append(p.page.Contents, semantic.ContentStream{})
	}
	return &p.page.Contents[len(p.page.Contents)-1].Operations
}

func (p *pageBuilderImpl) applyPathState(ops *[]semantic.Operation, opts PathOptions) {
	if opts.Fill {
		*ops = append(*ops, colorOp("rg", opts.FillColor))
	}
	if opts.Stroke {
		*ops = append(*ops, colorOp("RG", opts.StrokeColor))
		if opts.LineWidth > 0 {
			*ops = append(*ops, semantic.Op("w", opts.LineWidth))
		}
		if len(opts.DashPattern) > 0 {
			vals := make([]semantic.Operand, 0, len(opts.DashPattern))
			for _, v := range opts.DashPattern {
				vals = append(vals, semantic.NumberOperand{Value: v})
			}
			*ops = append(*ops, semantic.Op("d", semantic.ArrayOperand{Values: vals}, 0))
		}
	}
}

// textMatrix places the baseline origin at (x, y) turned by rotation
// degrees counter-clockwise.
func textMatrix(rotation int, x, y float64) semantic.Operation {
	m := coords.RotateDegrees(rotation)
	return semantic.Op("Tm", clean(m[0]), clean(m[1]), clean(m[2]), clean(m[3]), clean(x), clean(y))
}

func colorOp(op string, c Color) semantic.Operation {
	return semantic.Op(op, clean(c.R), clean(c.G), clean(c.B))
}

// clean rounds to the precision written to content streams, so a page
// reads back exactly as it was drawn.
func clean(v float64) float64 {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		return 0
	}
	return r
}

func paintOperator(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "B"
	case fill:
		return "f"
	default:
		return "S"
	}
}

func isStrokeMode(mode contentstream.TextRenderMode) bool {
	return mode == contentstream.TextStroke ||
		mode == contentstream.TextFillStroke ||
		mode == contentstream.TextStrokeClip ||
		mode == contentstream.TextFillStrokeClip
}

func sortedFontKeys(m map[string]*semantic.Font) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
