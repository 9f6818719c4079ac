package semantic

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
)

// Builder turns a raw document into the semantic model.
type Builder struct {
	raw  *raw.Document
	pipe *filters.Pipeline
}

func NewBuilder(doc *raw.Document, pipe *filters.Pipeline) *Builder {
	if pipe == nil {
		pipe = filters.Default(filters.Limits{})
	}
	return &Builder{raw: doc, pipe: pipe}
}

// Build walks the catalog and page tree.
func (b *Builder) Build(ctx context.Context) (*Document, error) {
	catalog, err := b.catalog()
	if err != nil {
		return nil, err
	}
	doc := &Document{Version: b.raw.Version}
	if doc.Version == "" {
		doc.Version = "1.7"
	}
	if info, ok := b.raw.ResolveDict(mustGet(b.raw.Trailer, "Info")); ok {
		doc.Info = DocumentInfo{
			Title:    b.text(info, "Title"),
			Author:   b.text(info, "Author"),
			Subject:  b.text(info, "Subject"),
			Creator:  b.text(info, "Creator"),
			Producer: b.text(info, "Producer"),
		}
	}

	pagesRoot, ok := catalog.Get("Pages")
	if !ok {
		return nil, errors.New("catalog has no page tree")
	}
	visited := make(map[raw.ObjectRef]bool)
	if err := b.walkPages(ctx, pagesRoot, inherited{}, visited, doc); err != nil {
		return nil, err
	}
	for i, p := range doc.Pages {
		p.Index = i
	}
	doc.EmbeddedFiles = b.embeddedFiles(catalog)
	return doc, nil
}

func (b *Builder) catalog() (*raw.DictObj, error) {
	if root, ok := b.raw.Trailer.Get("Root"); ok {
		if d, ok := b.raw.ResolveDict(root); ok {
			return d, nil
		}
	}
	// No usable trailer: xref streams carry the trailer keys, and as a last
	// resort any object typed Catalog will do.
	for _, ref := range b.raw.Refs() {
		if s, ok := b.raw.Objects[ref].(*raw.StreamObj); ok {
			if t, _ := s.Dict.Name("Type"); t == "XRef" {
				if root, ok := s.Dict.Get("Root"); ok {
					if d, ok := b.raw.ResolveDict(root); ok {
						if info, ok := s.Dict.Get("Info"); ok {
							b.raw.Trailer.Set("Info", info)
						}
						return d, nil
					}
				}
			}
		}
	}
	for _, ref := range b.raw.Refs() {
		if d, ok := b.raw.Objects[ref].(*raw.DictObj); ok {
			if t, _ := d.Name("Type"); t == "Catalog" {
				return d, nil
			}
		}
	}
	return nil, errors.New("document catalog not found")
}

type inherited struct {
	mediaBox  *Rectangle
	cropBox   *Rectangle
	rotate    *int
	resources raw.Object
}

func (b *Builder) walkPages(ctx context.Context, node raw.Object, inh inherited, visited map[raw.ObjectRef]bool, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ref, ok := node.(raw.RefObj); ok {
		if visited[ref.R] {
			return fmt.Errorf("page tree cycle at %s", ref.R)
		}
		visited[ref.R] = true
	}
	dict, ok := b.raw.ResolveDict(node)
	if !ok {
		return errors.New("page tree node is not a dictionary")
	}
	if r := b.rect(dict, "MediaBox"); r != nil {
		inh.mediaBox = r
	}
	if r := b.rect(dict, "CropBox"); r != nil {
		inh.cropBox = r
	}
	if n, ok := dict.Number("Rotate"); ok {
		v := int(n)
		inh.rotate = &v
	}
	if res, ok := dict.Get("Resources"); ok {
		inh.resources = res
	}

	typ, _ := dict.Name("Type")
	kids, hasKids := b.raw.ResolveArray(mustGet(dict, "Kids"))
	if typ == "Pages" || (typ != "Page" && hasKids) {
		if !hasKids {
			return nil
		}
		for _, kid := range kids.Items {
			if err := b.walkPages(ctx, kid, inh, visited, doc); err != nil {
				return err
			}
		}
		return nil
	}
	page, err := b.page(ctx, dict, inh)
	if err != nil {
		return fmt.Errorf("page %d: %w", len(doc.Pages)+1, err)
	}
	doc.Pages = append(doc.Pages, page)
	return nil
}

func (b *Builder) page(ctx context.Context, dict *raw.DictObj, inh inherited) (*Page, error) {
	p := &Page{MediaBox: Rectangle{URX: 612, URY: 792}}
	if inh.mediaBox != nil {
		p.MediaBox = inh.mediaBox.Normalize()
	}
	p.CropBox = p.MediaBox
	if inh.cropBox != nil {
		p.CropBox = inh.cropBox.Normalize()
	}
	if inh.rotate != nil {
		p.Rotate = normalizeRotation(*inh.rotate)
	}
	res, err := b.resources(ctx, inh.resources)
	if err != nil {
		return nil, err
	}
	p.Resources = res

	data, err := b.contentBytes(ctx, mustGet(dict, "Contents"))
	if err != nil {
		return nil, err
	}
	ops, err := ParseContent(data)
	if err != nil {
		return nil, err
	}
	p.Contents = []ContentStream{{Operations: ops}}

	if annots, ok := b.raw.ResolveArray(mustGet(dict, "Annots")); ok {
		for _, a := range annots.Items {
			ad, ok := b.raw.ResolveDict(a)
			if !ok {
				continue
			}
			if annot := b.annotation(ad); annot != nil {
				p.Annotations = append(p.Annotations, annot)
			}
		}
	}
	return p, nil
}

// contentBytes concatenates every content stream of a page.
func (b *Builder) contentBytes(ctx context.Context, obj raw.Object) ([]byte, error) {
	var streams []*raw.StreamObj
	switch v := b.raw.Resolve(obj).(type) {
	case *raw.StreamObj:
		streams = append(streams, v)
	case *raw.ArrayObj:
		for _, it := range v.Items {
			if s, ok := b.raw.Resolve(it).(*raw.StreamObj); ok {
				streams = append(streams, s)
			}
		}
	}
	var buf bytes.Buffer
	for _, s := range streams {
		data, err := b.DecodeStream(ctx, s)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeStream applies the stream's filters.
func (b *Builder) DecodeStream(ctx context.Context, s *raw.StreamObj) ([]byte, error) {
	names, params := filters.ExtractFilters(s.Dict)
	if len(names) == 0 {
		return s.Data, nil
	}
	return b.pipe.Decode(ctx, s.Data, names, params)
}

func (b *Builder) resources(ctx context.Context, obj raw.Object) (*Resources, error) {
	res := NewResources()
	dict, ok := b.raw.ResolveDict(obj)
	if !ok {
		return res, nil
	}
	for _, cat := range dict.Keys() {
		entries, ok := b.raw.ResolveDict(dict.KV[cat])
		if !ok {
			continue
		}
		for _, name := range entries.Keys() {
			if cat == "Font" {
				fd, ok := b.raw.ResolveDict(entries.KV[name])
				if !ok {
					continue
				}
				f, err := b.font(ctx, fd)
				if err != nil {
					return nil, fmt.Errorf("font %s: %w", name, err)
				}
				res.Fonts[name] = f
				continue
			}
			m := res.Other[cat]
			if m == nil {
				m = make(map[string]raw.Object)
				res.Other[cat] = m
			}
			m[name] = b.Materialize(entries.KV[name])
		}
	}
	return res, nil
}

// Materialize resolves every reference under o into a self-contained tree.
// Parent links are dropped and cycles become null.
func (b *Builder) Materialize(o raw.Object) raw.Object {
	return b.materialize(o, make(map[raw.ObjectRef]bool), make(map[raw.ObjectRef]raw.Object))
}

func (b *Builder) materialize(o raw.Object, path map[raw.ObjectRef]bool, done map[raw.ObjectRef]raw.Object) raw.Object {
	if ref, ok := o.(raw.RefObj); ok {
		if path[ref.R] {
			return raw.NullObj{}
		}
		if m, ok := done[ref.R]; ok {
			return m
		}
		target, ok := b.raw.Objects[ref.R]
		if !ok {
			return raw.NullObj{}
		}
		path[ref.R] = true
		m := b.materialize(target, path, done)
		delete(path, ref.R)
		done[ref.R] = m
		return m
	}
	switch v := o.(type) {
	case *raw.DictObj:
		out := raw.Dict()
		for _, k := range v.Keys() {
			if k == "Parent" || k == "P" {
				continue
			}
			out.Set(k, b.materialize(v.KV[k], path, done))
		}
		return out
	case *raw.ArrayObj:
		out := &raw.ArrayObj{Items: make([]raw.Object, len(v.Items))}
		for i, it := range v.Items {
			out.Items[i] = b.materialize(it, path, done)
		}
		return out
	case *raw.StreamObj:
		return raw.NewStream(b.materialize(v.Dict, path, done).(*raw.DictObj), v.Data)
	}
	return o
}

func (b *Builder) rect(d *raw.DictObj, key string) *Rectangle {
	arr, ok := b.raw.ResolveArray(mustGet(d, key))
	if !ok {
		return nil
	}
	vals := make([]float64, 0, 4)
	for _, it := range arr.Items {
		if n, ok := b.raw.Resolve(it).(raw.NumberObj); ok {
			vals = append(vals, n.Float())
		}
	}
	if len(vals) != 4 {
		return nil
	}
	return &Rectangle{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}
}

func (b *Builder) text(d *raw.DictObj, key string) string {
	s, ok := b.raw.Resolve(mustGet(d, key)).(raw.StringObj)
	if !ok {
		return ""
	}
	return DecodeTextString(s.Bytes)
}

func (b *Builder) number(d *raw.DictObj, key string) (float64, bool) {
	n, ok := b.raw.Resolve(mustGet(d, key)).(raw.NumberObj)
	return n.Float(), ok
}

func (b *Builder) floats(d *raw.DictObj, key string) []float64 {
	arr, ok := b.raw.ResolveArray(mustGet(d, key))
	if !ok {
		return nil
	}
	vals, _ := arr.Floats()
	return vals
}

func (b *Builder) embeddedFiles(catalog *raw.DictObj) []EmbeddedFile {
	names, ok := b.raw.ResolveDict(mustGet(catalog, "Names"))
	if !ok {
		return nil
	}
	tree, ok := b.raw.ResolveDict(mustGet(names, "EmbeddedFiles"))
	if !ok {
		return nil
	}
	var out []EmbeddedFile
	b.walkNameTree(tree, 0, func(name string, spec raw.Object) {
		fs, ok := b.raw.ResolveDict(spec)
		if !ok {
			return
		}
		ef, ok := b.raw.ResolveDict(mustGet(fs, "EF"))
		if !ok {
			return
		}
		s, ok := b.raw.Resolve(mustGet(ef, "F")).(*raw.StreamObj)
		if !ok {
			return
		}
		data, err := b.DecodeStream(context.Background(), s)
		if err != nil {
			return
		}
		sub, _ := s.Dict.Name("Subtype")
		out = append(out, EmbeddedFile{Name: name, Description: b.text(fs, "Desc"), Subtype: sub, Data: data})
	})
	return out
}

func (b *Builder) walkNameTree(node *raw.DictObj, depth int, fn func(string, raw.Object)) {
	if depth > 32 {
		return
	}
	if arr, ok := b.raw.ResolveArray(mustGet(node, "Names")); ok {
		for i := 0; i+1 < len(arr.Items); i += 2 {
			if s, ok := b.raw.Resolve(arr.Items[i]).(raw.StringObj); ok {
				fn(DecodeTextString(s.Bytes), arr.Items[i+1])
			}
		}
	}
	if kids, ok := b.raw.ResolveArray(mustGet(node, "Kids")); ok {
		for _, k := range kids.Items {
			if kd, ok := b.raw.ResolveDict(k); ok {
				b.walkNameTree(kd, depth+1, fn)
			}
		}
	}
}

func mustGet(d *raw.DictObj, key string) raw.Object {
	o, _ := d.Get(key)
	return o
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return r - r%90
}
