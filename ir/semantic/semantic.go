// Package semantic is the page-level document model that editing works
// on: pages, their resources, parsed content streams and annotations.
package semantic

import (
	"math"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/raw"
)

// Document is the semantic representation of a PDF.
type Document struct {
	Version       string
	Info          DocumentInfo
	Pages         []*Page
	EmbeddedFiles []EmbeddedFile
}

type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
}

// EmbeddedFile is a document-level attachment. Sidecar metadata written by
// other tools travels here.
type EmbeddedFile struct {
	Name        string
	Description string
	Subtype     string
	Data        []byte
}

// Page is a single page.
type Page struct {
	Index       int
	MediaBox    Rectangle
	CropBox     Rectangle
	Rotate      int
	Resources   *Resources
	Contents    []ContentStream
	Annotations []Annotation
}

// Width of the media box in points.
func (p *Page) Width() float64 { return p.MediaBox.Width() }

// Height of the media box in points.
func (p *Page) Height() float64 { return p.MediaBox.Height() }

// DeviceRect is the whole page in device space.
func (p *Page) DeviceRect() coords.Rect {
	return coords.Rect{X1: p.Width(), Y1: p.Height()}
}

// ToDevice converts a user-space rectangle to device space (top-left
// origin of the media box, y down).
func (p *Page) ToDevice(r Rectangle) coords.Rect {
	return coords.NewRect(r.LLX-p.MediaBox.LLX, p.MediaBox.URY-r.URY, r.URX-p.MediaBox.LLX, p.MediaBox.URY-r.LLY)
}

// ToUser converts a device-space rectangle to user space.
func (p *Page) ToUser(r coords.Rect) Rectangle {
	return Rectangle{
		LLX: r.X0 + p.MediaBox.LLX,
		LLY: p.MediaBox.URY - r.Y1,
		URX: r.X1 + p.MediaBox.LLX,
		URY: p.MediaBox.URY - r.Y0,
	}
}

// PointToDevice converts a user-space point to device space.
func (p *Page) PointToDevice(pt coords.Point) coords.Point {
	return coords.Point{X: pt.X - p.MediaBox.LLX, Y: p.MediaBox.URY - pt.Y}
}

// PointToUser converts a device-space point to user space.
func (p *Page) PointToUser(pt coords.Point) coords.Point {
	return coords.Point{X: pt.X + p.MediaBox.LLX, Y: p.MediaBox.URY - pt.Y}
}

// Rectangle is a user-space rectangle [llx lly urx ury].
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

func (r Rectangle) Width() float64  { return r.URX - r.LLX }
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Normalize orders the corners so LL is below and left of UR.
func (r Rectangle) Normalize() Rectangle {
	return Rectangle{
		LLX: math.Min(r.LLX, r.URX), LLY: math.Min(r.LLY, r.URY),
		URX: math.Max(r.LLX, r.URX), URY: math.Max(r.LLY, r.URY),
	}
}

// Resources maps resource names used by content streams. Fonts are parsed;
// every other category is carried as resolved raw objects so it survives a
// write unchanged.
type Resources struct {
	Fonts map[string]*Font
	Other map[string]map[string]raw.Object // category (XObject, ExtGState, ...) -> name -> object
}

func NewResources() *Resources {
	return &Resources{Fonts: make(map[string]*Font), Other: make(map[string]map[string]raw.Object)}
}

// Font is a font resource. Raw holds the resolved dictionary of a parsed
// font and is written back verbatim; fonts created by this module leave it
// nil and are synthesized from the fields.
type Font struct {
	Subtype       string // Type1, TrueType, Type0, Type3
	BaseFont      string
	Encoding      string // WinAnsiEncoding, Identity-H, UniGB-UCS2-H, ...
	Differences   map[int]string
	FirstChar     int
	Widths        map[int]float64 // glyph space (1/1000 em)
	DefaultWidth  float64         // Type0 DW
	ToUnicode     map[int][]rune
	Descriptor    *FontDescriptor
	CIDSystemInfo string // Registry-Ordering for Type0 fonts
	Raw           *raw.DictObj
}

type FontDescriptor struct {
	FontName    string
	Flags       int
	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	StemV       float64
	FontBBox    [4]float64
}

// ContentStream holds parsed operations. Streams are always written from
// Operations.
type ContentStream struct {
	Operations []Operation
}

// Operation is one content stream operator with its operands.
type Operation struct {
	Operator string
	Operands []Operand
}

type Operand interface {
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) Type() string { return "name" }

type StringOperand struct {
	Value []byte
	Hex   bool
}

func (StringOperand) Type() string { return "string" }

type BoolOperand struct{ Value bool }

func (BoolOperand) Type() string { return "bool" }

type NullOperand struct{}

func (NullOperand) Type() string { return "null" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) Type() string { return "array" }

type DictOperand struct{ Values map[string]Operand }

func (DictOperand) Type() string { return "dict" }

// InlineImageOperand carries a BI ... ID ... EI image.
type InlineImageOperand struct {
	Params DictOperand
	Data   []byte
}

func (InlineImageOperand) Type() string { return "inline-image" }

// Annotation is implemented by every annotation kind.
type Annotation interface {
	Subtype() string
	Base() *BaseAnnotation
}

// BaseAnnotation holds fields shared by all annotations. Extra keeps
// dictionary entries that are not modeled (appearance streams, names,
// dates) so they round-trip.
type BaseAnnotation struct {
	Type        string
	Rect        Rectangle
	Contents    string
	Color       []float64
	Flags       int
	BorderWidth float64
	Opacity     float64 // CA; 0 means unset
	Extra       *raw.DictObj
}

func (a *BaseAnnotation) Subtype() string       { return a.Type }
func (a *BaseAnnotation) Base() *BaseAnnotation { return a }

// MarkupAnnotation covers Highlight, Underline, StrikeOut and Squiggly.
type MarkupAnnotation struct {
	BaseAnnotation
	QuadPoints []float64
}

// FreeTextAnnotation draws text directly on the page.
type FreeTextAnnotation struct {
	BaseAnnotation
	DA string
	Q  int
}

// ShapeAnnotation covers Square and Circle.
type ShapeAnnotation struct {
	BaseAnnotation
	InteriorColor []float64
}

// GenericAnnotation is any kind without a dedicated type (Link, Text,
// Stamp, Widget, ...).
type GenericAnnotation struct {
	BaseAnnotation
}
