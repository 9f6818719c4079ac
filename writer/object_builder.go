package writer

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

// objectBuilder lowers a semantic document to numbered raw objects.
// Shared objects (fonts, images, appearance streams) are content-addressed
// so equal inputs always produce one object with a stable number.
type objectBuilder struct {
	cfg     Config
	objects map[raw.ObjectRef]raw.Object
	next    int
	byHash  map[[32]byte]raw.ObjectRef
}

func newObjectBuilder(cfg Config) *objectBuilder {
	return &objectBuilder{
		cfg:     cfg,
		objects: make(map[raw.ObjectRef]raw.Object),
		next:    1,
		byHash:  make(map[[32]byte]raw.ObjectRef),
	}
}

func (b *objectBuilder) alloc() raw.ObjectRef {
	ref := raw.ObjectRef{Num: b.next}
	b.next++
	return ref
}

func (b *objectBuilder) add(obj raw.Object) raw.ObjectRef {
	ref := b.alloc()
	b.objects[ref] = obj
	return ref
}

// Build returns the object table and the trailer entries Root and Info.
func (b *objectBuilder) Build(ctx context.Context, doc *semantic.Document) (catalog, info raw.ObjectRef, err error) {
	catalog = b.alloc()
	pagesRef := b.alloc()

	kids := raw.NewArray()
	for i, p := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return catalog, info, err
		}
		ref, err := b.page(p, pagesRef)
		if err != nil {
			return catalog, info, fmt.Errorf("page %d: %w", i+1, err)
		}
		kids.Append(raw.RefObj{R: ref})
	}
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", kids)
	pages.Set("Count", raw.NumberInt(int64(len(doc.Pages))))
	b.objects[pagesRef] = pages

	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", raw.RefObj{R: pagesRef})
	if len(doc.EmbeddedFiles) > 0 {
		names := raw.Dict()
		names.Set("EmbeddedFiles", raw.RefObj{R: b.embeddedFiles(doc.EmbeddedFiles)})
		cat.Set("Names", names)
	}
	b.objects[catalog] = cat

	if d := infoDict(doc.Info); d != nil {
		info = b.add(d)
	}
	return catalog, info, nil
}

func (b *objectBuilder) page(p *semantic.Page, parent raw.ObjectRef) (raw.ObjectRef, error) {
	ref := b.alloc()
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Page"))
	d.Set("Parent", raw.RefObj{R: parent})
	d.Set("MediaBox", rectArray(p.MediaBox))
	if p.CropBox != (semantic.Rectangle{}) && p.CropBox != p.MediaBox {
		d.Set("CropBox", rectArray(p.CropBox))
	}
	if rot := normalizeRotation(p.Rotate); rot != 0 {
		d.Set("Rotate", raw.NumberInt(int64(rot)))
	}

	var ops []semantic.Operation
	for _, cs := range p.Contents {
		ops = append(ops, cs.Operations...)
	}
	content, err := b.contentStream(ops)
	if err != nil {
		return ref, err
	}
	d.Set("Contents", raw.RefObj{R: content})
	d.Set("Resources", b.resources(p.Resources))

	if len(p.Annotations) > 0 {
		annots := raw.NewArray()
		for _, a := range p.Annotations {
			annots.Append(raw.RefObj{R: b.add(b.annotation(a, ref))})
		}
		d.Set("Annots", annots)
	}
	b.objects[ref] = d
	return ref, nil
}

func (b *objectBuilder) contentStream(ops []semantic.Operation) (raw.ObjectRef, error) {
	data := SerializeContent(ops)
	dict := raw.Dict()
	if b.cfg.Compress && len(data) > 0 {
		enc, err := filters.FlateEncode(data)
		if err != nil {
			return raw.ObjectRef{}, fmt.Errorf("compress content: %w", err)
		}
		data = enc
		dict.Set("Filter", raw.NameLiteral("FlateDecode"))
	}
	return b.add(raw.NewStream(dict, data)), nil
}

func (b *objectBuilder) resources(res *semantic.Resources) *raw.DictObj {
	out := raw.Dict()
	if res == nil {
		return out
	}
	if len(res.Fonts) > 0 {
		fonts := raw.Dict()
		for _, name := range sortedKeys(res.Fonts) {
			fonts.Set(name, b.shared(fontDict(res.Fonts[name])))
		}
		out.Set("Font", fonts)
	}
	for _, cat := range sortedKeys(res.Other) {
		entries := raw.Dict()
		for _, name := range sortedKeys(res.Other[cat]) {
			entries.Set(name, b.lower(res.Other[cat][name]))
		}
		out.Set(cat, entries)
	}
	return out
}

// shared emits a dictionary as a content-addressed indirect object.
func (b *objectBuilder) shared(d *raw.DictObj) raw.RefObj {
	lowered := b.lower(d)
	if ref, ok := lowered.(raw.RefObj); ok {
		return ref
	}
	return b.intern(lowered)
}

// lower rewrites o so every stream becomes an indirect reference.
func (b *objectBuilder) lower(o raw.Object) raw.Object {
	switch v := o.(type) {
	case *raw.DictObj:
		out := raw.Dict()
		for _, k := range v.Keys() {
			out.Set(k, b.lower(v.KV[k]))
		}
		return out
	case *raw.ArrayObj:
		out := &raw.ArrayObj{Items: make([]raw.Object, len(v.Items))}
		for i, it := range v.Items {
			out.Items[i] = b.lower(it)
		}
		return out
	case *raw.StreamObj:
		dict := b.lower(v.Dict).(*raw.DictObj)
		return b.intern(raw.NewStream(dict, v.Data))
	case nil:
		return raw.NullObj{}
	}
	return o
}

func (b *objectBuilder) intern(o raw.Object) raw.RefObj {
	var buf bytes.Buffer
	if s, ok := o.(*raw.StreamObj); ok {
		buf.Write(serializePrimitive(s.Dict))
		buf.WriteString("stream")
		buf.Write(s.Data)
	} else {
		buf.Write(serializePrimitive(o))
	}
	key := blake2b.Sum256(buf.Bytes())
	if ref, ok := b.byHash[key]; ok {
		return raw.RefObj{R: ref}
	}
	ref := b.add(o)
	b.byHash[key] = ref
	return raw.RefObj{R: ref}
}

func (b *objectBuilder) annotation(a semantic.Annotation, page raw.ObjectRef) *raw.DictObj {
	d := annotationDict(a)
	out := b.lower(d).(*raw.DictObj)
	out.Set("P", raw.RefObj{R: page})
	return out
}

func (b *objectBuilder) embeddedFiles(files []semantic.EmbeddedFile) raw.ObjectRef {
	arr := raw.NewArray()
	for _, f := range sortedFiles(files) {
		sd := raw.Dict()
		sd.Set("Type", raw.NameLiteral("EmbeddedFile"))
		if f.Subtype != "" {
			sd.Set("Subtype", raw.NameLiteral(f.Subtype))
		}
		stream := b.add(raw.NewStream(sd, f.Data))
		ef := raw.Dict()
		ef.Set("F", raw.RefObj{R: stream})
		spec := raw.Dict()
		spec.Set("Type", raw.NameLiteral("Filespec"))
		spec.Set("F", raw.Str(semantic.EncodeTextString(f.Name)))
		spec.Set("UF", raw.Str(semantic.EncodeTextString(f.Name)))
		if f.Description != "" {
			spec.Set("Desc", raw.Str(semantic.EncodeTextString(f.Description)))
		}
		spec.Set("EF", ef)
		arr.Append(raw.Str(semantic.EncodeTextString(f.Name)))
		arr.Append(raw.RefObj{R: b.add(spec)})
	}
	tree := raw.Dict()
	tree.Set("Names", arr)
	return b.add(tree)
}

func infoDict(info semantic.DocumentInfo) *raw.DictObj {
	d := raw.Dict()
	for _, kv := range [][2]string{
		{"Title", info.Title}, {"Author", info.Author}, {"Subject", info.Subject},
		{"Creator", info.Creator}, {"Producer", info.Producer},
	} {
		if kv[1] != "" {
			d.Set(kv[0], raw.Str(semantic.EncodeTextString(kv[1])))
		}
	}
	if d.Len() == 0 {
		return nil
	}
	return d
}
