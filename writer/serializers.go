package writer

import (
	"sort"
	"strings"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

// fontDict returns the dictionary written for f. Parsed fonts carry their
// original dictionary; fonts created in memory are synthesized.
func fontDict(f *semantic.Font) *raw.DictObj {
	if f.Raw != nil {
		return f.Raw
	}
	if f.Subtype == "Type0" {
		return type0Dict(f)
	}
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	sub := f.Subtype
	if sub == "" {
		sub = "Type1"
	}
	d.Set("Subtype", raw.NameLiteral(sub))
	d.Set("BaseFont", raw.NameLiteral(f.BaseFont))
	if f.Encoding != "" || len(f.Differences) > 0 {
		d.Set("Encoding", encodingObject(f))
	}
	if len(f.Widths) > 0 {
		first, last, widths := encodeWidths(f.Widths)
		d.Set("FirstChar", raw.NumberInt(int64(first)))
		d.Set("LastChar", raw.NumberInt(int64(last)))
		d.Set("Widths", widths)
	}
	if f.Descriptor != nil {
		d.Set("FontDescriptor", descriptorDict(f.BaseFont, f.Descriptor))
	}
	return d
}

func encodingObject(f *semantic.Font) raw.Object {
	if len(f.Differences) == 0 {
		return raw.NameLiteral(f.Encoding)
	}
	enc := raw.Dict()
	enc.Set("Type", raw.NameLiteral("Encoding"))
	if f.Encoding != "" {
		enc.Set("BaseEncoding", raw.NameLiteral(f.Encoding))
	}
	codes := make([]int, 0, len(f.Differences))
	for c := range f.Differences {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	diffs := raw.NewArray()
	prev := -2
	for _, c := range codes {
		if c != prev+1 {
			diffs.Append(raw.NumberInt(int64(c)))
		}
		diffs.Append(raw.NameLiteral(f.Differences[c]))
		prev = c
	}
	enc.Set("Differences", diffs)
	return enc
}

func type0Dict(f *semantic.Font) *raw.DictObj {
	registry, ordering := "Adobe", "Identity"
	if f.CIDSystemInfo != "" {
		if i := strings.IndexByte(f.CIDSystemInfo, '-'); i > 0 {
			registry, ordering = f.CIDSystemInfo[:i], f.CIDSystemInfo[i+1:]
		}
	}
	supplement := int64(0)
	if ordering == "GB1" {
		supplement = 2
	}
	info := raw.Dict()
	info.Set("Registry", raw.Str([]byte(registry)))
	info.Set("Ordering", raw.Str([]byte(ordering)))
	info.Set("Supplement", raw.NumberInt(supplement))

	cid := raw.Dict()
	cid.Set("Type", raw.NameLiteral("Font"))
	cid.Set("Subtype", raw.NameLiteral("CIDFontType0"))
	cid.Set("BaseFont", raw.NameLiteral(f.BaseFont))
	cid.Set("CIDSystemInfo", info)
	dw := f.DefaultWidth
	if dw == 0 {
		dw = 1000
	}
	cid.Set("DW", raw.Number(dw))
	if len(f.Widths) > 0 {
		cid.Set("W", encodeCIDWidths(f.Widths))
	}
	desc := f.Descriptor
	if desc == nil {
		desc = &semantic.FontDescriptor{Flags: 4, Ascent: 880, Descent: -120, CapHeight: 880, StemV: 80, FontBBox: [4]float64{-25, -254, 1000, 880}}
	}
	cid.Set("FontDescriptor", descriptorDict(f.BaseFont, desc))

	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	d.Set("Subtype", raw.NameLiteral("Type0"))
	d.Set("BaseFont", raw.NameLiteral(f.BaseFont))
	enc := f.Encoding
	if enc == "" {
		enc = "Identity-H"
	}
	d.Set("Encoding", raw.NameLiteral(enc))
	d.Set("DescendantFonts", raw.NewArray(cid))
	return d
}

func descriptorDict(base string, fd *semantic.FontDescriptor) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("FontDescriptor"))
	name := fd.FontName
	if name == "" {
		name = base
	}
	d.Set("FontName", raw.NameLiteral(name))
	d.Set("Flags", raw.NumberInt(int64(fd.Flags)))
	d.Set("Ascent", raw.Number(fd.Ascent))
	d.Set("Descent", raw.Number(fd.Descent))
	d.Set("CapHeight", raw.Number(fd.CapHeight))
	d.Set("ItalicAngle", raw.Number(fd.ItalicAngle))
	d.Set("StemV", raw.Number(fd.StemV))
	d.Set("FontBBox", floatArray(fd.FontBBox[:]))
	return d
}

// encodeWidths returns FirstChar, LastChar and a dense Widths array.
func encodeWidths(w map[int]float64) (int, int, *raw.ArrayObj) {
	first, last := -1, -1
	for c := range w {
		if first < 0 || c < first {
			first = c
		}
		if c > last {
			last = c
		}
	}
	arr := raw.NewArray()
	for c := first; c <= last; c++ {
		arr.Append(raw.Number(w[c]))
	}
	return first, last, arr
}

// encodeCIDWidths groups consecutive CIDs into "c [w1 w2 ...]" runs.
func encodeCIDWidths(w map[int]float64) *raw.ArrayObj {
	cids := make([]int, 0, len(w))
	for c := range w {
		cids = append(cids, c)
	}
	sort.Ints(cids)
	out := raw.NewArray()
	var run *raw.ArrayObj
	prev := -2
	for _, c := range cids {
		if c != prev+1 || run == nil {
			run = raw.NewArray()
			out.Append(raw.NumberInt(int64(c)))
			out.Append(run)
		}
		run.Append(raw.Number(w[c]))
		prev = c
	}
	return out
}

// annotationDict writes modeled fields over the preserved extras.
func annotationDict(a semantic.Annotation) *raw.DictObj {
	base := a.Base()
	d := raw.Dict()
	if base.Extra != nil {
		for _, k := range base.Extra.Keys() {
			if !semantic.ModeledAnnotationKey(k) {
				d.Set(k, base.Extra.KV[k])
			}
		}
	}
	d.Set("Type", raw.NameLiteral("Annot"))
	d.Set("Subtype", raw.NameLiteral(a.Subtype()))
	d.Set("Rect", rectArray(base.Rect))
	if base.Contents != "" {
		d.Set("Contents", raw.Str(semantic.EncodeTextString(base.Contents)))
	}
	if len(base.Color) > 0 {
		d.Set("C", floatArray(base.Color))
	}
	if base.Flags != 0 {
		d.Set("F", raw.NumberInt(int64(base.Flags)))
	}
	if base.BorderWidth >= 0 {
		d.Set("Border", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.Number(base.BorderWidth)))
	}
	if base.Opacity > 0 {
		d.Set("CA", raw.Number(base.Opacity))
	}
	switch v := a.(type) {
	case *semantic.MarkupAnnotation:
		if len(v.QuadPoints) > 0 {
			d.Set("QuadPoints", floatArray(v.QuadPoints))
		}
	case *semantic.FreeTextAnnotation:
		if v.DA != "" {
			d.Set("DA", raw.Str([]byte(v.DA)))
		}
		if v.Q != 0 {
			d.Set("Q", raw.NumberInt(int64(v.Q)))
		}
	case *semantic.ShapeAnnotation:
		if len(v.InteriorColor) > 0 {
			d.Set("IC", floatArray(v.InteriorColor))
		}
	}
	return d
}

// sortedFiles orders attachments by name as name trees require.
func sortedFiles(files []semantic.EmbeddedFile) []semantic.EmbeddedFile {
	out := append([]semantic.EmbeddedFile(nil), files...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
