// Package overlap lifts annotations off a page region before text there is
// cleared and puts them back afterwards, optionally shifted down.
package overlap

import (
	"encoding/json"
	"fmt"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
)

// Kind is an annotation subtype the guard can recreate.
type Kind string

const (
	KindFreeText  Kind = "FreeText"
	KindHighlight Kind = "Highlight"
	KindSquare    Kind = "Square"
	KindCircle    Kind = "Circle"
	KindUnderline Kind = "Underline"
	KindStrikeOut Kind = "StrikeOut"
)

// Supported reports whether annotations of subtype can be captured.
func Supported(subtype string) bool {
	switch Kind(subtype) {
	case KindFreeText, KindHighlight, KindSquare, KindCircle, KindUnderline, KindStrikeOut:
		return true
	}
	return false
}

// Descriptor is a serializable description of one annotation. Geometry is
// in device space.
type Descriptor struct {
	Kind          Kind           `json:"kind"`
	Rect          coords.Rect    `json:"rect"`
	Contents      string         `json:"contents,omitempty"`
	Color         []float64      `json:"color,omitempty"`
	InteriorColor []float64      `json:"interior_color,omitempty"`
	BorderWidth   float64        `json:"border_width,omitempty"`
	Opacity       float64        `json:"opacity,omitempty"`
	Flags         int            `json:"flags,omitempty"`
	DA            string         `json:"da,omitempty"`
	Quadding      int            `json:"quadding,omitempty"`
	QuadPoints    []coords.Point `json:"quad_points,omitempty"`
}

// Shift returns a copy moved down by dy.
func (d Descriptor) Shift(dy float64) Descriptor {
	out := d
	out.Rect = d.Rect.Translate(0, dy)
	if len(d.QuadPoints) > 0 {
		out.QuadPoints = make([]coords.Point, len(d.QuadPoints))
		for i, p := range d.QuadPoints {
			out.QuadPoints[i] = coords.Point{X: p.X, Y: p.Y + dy}
		}
	}
	return out
}

// Marshal encodes descriptors as JSON.
func Marshal(descs []Descriptor) ([]byte, error) { return json.Marshal(descs) }

// Unmarshal decodes descriptors written by Marshal.
func Unmarshal(data []byte) ([]Descriptor, error) {
	var descs []Descriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, fmt.Errorf("decode annotation descriptors: %w", err)
	}
	return descs, nil
}

// Guard captures and restores annotations. Failures on single annotations
// are logged and skipped.
type Guard struct {
	logger observability.Logger
}

type Option func(*Guard)

func WithLogger(l observability.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func New(opts ...Option) *Guard {
	g := &Guard{logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Capture describes and removes every supported annotation intersecting
// region. Unsupported kinds stay on the page.
func (g *Guard) Capture(page *semantic.Page, region coords.Rect) []Descriptor {
	var descs []Descriptor
	kept := page.Annotations[:0:0]
	for i, a := range page.Annotations {
		base := a.Base()
		r := page.ToDevice(base.Rect)
		if !r.Intersects(region) {
			kept = append(kept, a)
			continue
		}
		if !Supported(a.Subtype()) {
			g.logger.Warn("annotation kind not restorable, left in place",
				observability.Int("page", page.Index), observability.Int("annot", i),
				observability.String("subtype", a.Subtype()))
			kept = append(kept, a)
			continue
		}
		if r.IsEmpty() {
			g.logger.Warn("degenerate annotation skipped",
				observability.Int("page", page.Index), observability.Int("annot", i))
			kept = append(kept, a)
			continue
		}
		descs = append(descs, describe(page, a, r))
	}
	page.Annotations = kept
	return descs
}

func describe(page *semantic.Page, a semantic.Annotation, r coords.Rect) Descriptor {
	base := a.Base()
	d := Descriptor{
		Kind:        Kind(a.Subtype()),
		Rect:        r,
		Contents:    base.Contents,
		Color:       append([]float64(nil), base.Color...),
		BorderWidth: base.BorderWidth,
		Opacity:     base.Opacity,
		Flags:       base.Flags,
	}
	switch v := a.(type) {
	case *semantic.FreeTextAnnotation:
		d.DA, d.Quadding = v.DA, v.Q
	case *semantic.ShapeAnnotation:
		d.InteriorColor = append([]float64(nil), v.InteriorColor...)
	case *semantic.MarkupAnnotation:
		for i := 0; i+1 < len(v.QuadPoints); i += 2 {
			d.QuadPoints = append(d.QuadPoints, page.PointToDevice(coords.Point{X: v.QuadPoints[i], Y: v.QuadPoints[i+1]}))
		}
	}
	return d
}

// Restore recreates descs on page moved down by dy and returns how many
// were added.
func (g *Guard) Restore(page *semantic.Page, descs []Descriptor, dy float64) int {
	n := 0
	for _, d := range descs {
		a, err := Build(page, d.Shift(dy))
		if err != nil {
			g.logger.Warn("annotation restore skipped",
				observability.Int("page", page.Index), observability.Error("error", err))
			continue
		}
		page.Annotations = append(page.Annotations, a)
		n++
	}
	return n
}

// Build creates the annotation a descriptor describes.
func Build(page *semantic.Page, d Descriptor) (semantic.Annotation, error) {
	if d.Rect.IsEmpty() {
		return nil, fmt.Errorf("%s annotation: empty rect", d.Kind)
	}
	base := semantic.BaseAnnotation{
		Type:        string(d.Kind),
		Rect:        page.ToUser(d.Rect),
		Contents:    d.Contents,
		Color:       append([]float64(nil), d.Color...),
		Flags:       d.Flags,
		BorderWidth: d.BorderWidth,
		Opacity:     d.Opacity,
	}
	switch d.Kind {
	case KindFreeText:
		da := d.DA
		if da == "" {
			da = "/Helv 12 Tf 0 g"
		}
		return &semantic.FreeTextAnnotation{BaseAnnotation: base, DA: da, Q: d.Quadding}, nil
	case KindSquare, KindCircle:
		return &semantic.ShapeAnnotation{BaseAnnotation: base, InteriorColor: append([]float64(nil), d.InteriorColor...)}, nil
	case KindHighlight, KindUnderline, KindStrikeOut:
		quads := d.QuadPoints
		if len(quads) == 0 {
			r := d.Rect
			quads = []coords.Point{{X: r.X0, Y: r.Y0}, {X: r.X1, Y: r.Y0}, {X: r.X0, Y: r.Y1}, {X: r.X1, Y: r.Y1}}
		}
		m := &semantic.MarkupAnnotation{BaseAnnotation: base}
		for _, p := range quads {
			u := page.PointToUser(p)
			m.QuadPoints = append(m.QuadPoints, u.X, u.Y)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported annotation kind %q", d.Kind)
}
