package semantic

import "github.com/wudi/pdfedit/ir/raw"

// Clone returns a copy of the page that shares nothing mutable with p.
// Fonts and raw resource objects are treated as immutable and shared.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	out := *p
	out.Resources = p.Resources.Clone()
	out.Contents = make([]ContentStream, len(p.Contents))
	for i, cs := range p.Contents {
		out.Contents[i] = ContentStream{Operations: CloneOperations(cs.Operations)}
	}
	out.Annotations = make([]Annotation, len(p.Annotations))
	for i, a := range p.Annotations {
		out.Annotations[i] = CloneAnnotation(a)
	}
	return &out
}

func (r *Resources) Clone() *Resources {
	out := NewResources()
	if r == nil {
		return out
	}
	for k, f := range r.Fonts {
		out.Fonts[k] = f
	}
	for cat, m := range r.Other {
		cp := make(map[string]raw.Object, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out.Other[cat] = cp
	}
	return out
}

func CloneOperations(ops []Operation) []Operation {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = Operation{Operator: op.Operator, Operands: append([]Operand(nil), op.Operands...)}
	}
	return out
}

// CloneAnnotation copies the modeled fields; Extra is shared.
func CloneAnnotation(a Annotation) Annotation {
	switch v := a.(type) {
	case *MarkupAnnotation:
		c := *v
		c.Color = append([]float64(nil), v.Color...)
		c.QuadPoints = append([]float64(nil), v.QuadPoints...)
		return &c
	case *FreeTextAnnotation:
		c := *v
		c.Color = append([]float64(nil), v.Color...)
		return &c
	case *ShapeAnnotation:
		c := *v
		c.Color = append([]float64(nil), v.Color...)
		c.InteriorColor = append([]float64(nil), v.InteriorColor...)
		return &c
	case *GenericAnnotation:
		c := *v
		c.Color = append([]float64(nil), v.Color...)
		return &c
	case *BaseAnnotation:
		c := *v
		c.Color = append([]float64(nil), v.Color...)
		return &c
	}
	return a
}
