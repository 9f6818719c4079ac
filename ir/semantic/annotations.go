package semantic

import "github.com/wudi/pdfedit/ir/raw"

// modeledAnnotKeys are written from struct fields, never from Extra.
var modeledAnnotKeys = map[string]bool{
	"Type": true, "Subtype": true, "Rect": true, "Contents": true, "C": true,
	"F": true, "Border": true, "BS": true, "CA": true, "QuadPoints": true,
	"DA": true, "Q": true, "IC": true, "P": true, "Parent": true, "Popup": true,
}

// ModeledAnnotationKey reports whether key is carried by a struct field.
func ModeledAnnotationKey(key string) bool { return modeledAnnotKeys[key] }

func (b *Builder) annotation(d *raw.DictObj) Annotation {
	sub, _ := d.Name("Subtype")
	base := BaseAnnotation{Type: sub, Extra: raw.Dict()}
	if r := b.rect(d, "Rect"); r != nil {
		base.Rect = r.Normalize()
	}
	base.Contents = b.text(d, "Contents")
	base.Color = b.floats(d, "C")
	if f, ok := b.number(d, "F"); ok {
		base.Flags = int(f)
	}
	base.BorderWidth = -1
	if bs, ok := b.raw.ResolveDict(mustGet(d, "BS")); ok {
		if w, ok := b.number(bs, "W"); ok {
			base.BorderWidth = w
		}
	} else if border := b.floats(d, "Border"); len(border) >= 3 {
		base.BorderWidth = border[2]
	}
	if ca, ok := b.number(d, "CA"); ok {
		base.Opacity = ca
	}
	for _, k := range d.Keys() {
		if !modeledAnnotKeys[k] {
			base.Extra.Set(k, b.Materialize(d.KV[k]))
		}
	}

	switch sub {
	case "Highlight", "Underline", "StrikeOut", "Squiggly":
		return &MarkupAnnotation{BaseAnnotation: base, QuadPoints: b.floats(d, "QuadPoints")}
	case "FreeText":
		ft := &FreeTextAnnotation{BaseAnnotation: base}
		if da, ok := b.raw.Resolve(mustGet(d, "DA")).(raw.StringObj); ok {
			ft.DA = string(da.Bytes)
		}
		if q, ok := b.number(d, "Q"); ok {
			ft.Q = int(q)
		}
		return ft
	case "Square", "Circle":
		return &ShapeAnnotation{BaseAnnotation: base, InteriorColor: b.floats(d, "IC")}
	case "Popup":
		// Popups are owned by their parent annotation and are regenerated
		// by viewers.
		return nil
	}
	return &GenericAnnotation{BaseAnnotation: base}
}
