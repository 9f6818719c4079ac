package semantic

import (
	"context"

	"github.com/wudi/pdfedit/ir/raw"
)

func (b *Builder) font(ctx context.Context, d *raw.DictObj) (*Font, error) {
	f := &Font{Raw: b.Materialize(d).(*raw.DictObj)}
	f.Subtype, _ = d.Name("Subtype")
	f.BaseFont, _ = d.Name("BaseFont")

	switch enc := b.raw.Resolve(mustGet(d, "Encoding")).(type) {
	case raw.NameObj:
		f.Encoding = enc.Val
	case *raw.DictObj:
		f.Encoding, _ = enc.Name("BaseEncoding")
		f.Differences = b.differences(enc)
	}

	if fc, ok := b.number(d, "FirstChar"); ok {
		f.FirstChar = int(fc)
	}
	if ws := b.floats(d, "Widths"); len(ws) > 0 {
		f.Widths = make(map[int]float64, len(ws))
		for i, w := range ws {
			f.Widths[f.FirstChar+i] = w
		}
	}

	descDict := d
	if f.Subtype == "Type0" {
		if arr, ok := b.raw.ResolveArray(mustGet(d, "DescendantFonts")); ok && len(arr.Items) > 0 {
			if cid, ok := b.raw.ResolveDict(arr.Items[0]); ok {
				descDict = cid
				f.DefaultWidth = 1000
				if dw, ok := b.number(cid, "DW"); ok {
					f.DefaultWidth = dw
				}
				f.Widths = b.cidWidths(cid)
				if info, ok := b.raw.ResolveDict(mustGet(cid, "CIDSystemInfo")); ok {
					reg, _ := info.String("Registry")
					ord, _ := info.String("Ordering")
					f.CIDSystemInfo = string(reg) + "-" + string(ord)
				}
			}
		}
	}
	if fd, ok := b.raw.ResolveDict(mustGet(descDict, "FontDescriptor")); ok {
		f.Descriptor = b.descriptor(fd)
	}

	if s, ok := b.raw.Resolve(mustGet(d, "ToUnicode")).(*raw.StreamObj); ok {
		data, err := b.DecodeStream(ctx, s)
		if err == nil {
			f.ToUnicode = ParseToUnicode(data)
		}
	}
	return f, nil
}

func (b *Builder) differences(enc *raw.DictObj) map[int]string {
	arr, ok := b.raw.ResolveArray(mustGet(enc, "Differences"))
	if !ok {
		return nil
	}
	out := make(map[int]string)
	code := 0
	for _, it := range arr.Items {
		switch v := b.raw.Resolve(it).(type) {
		case raw.NumberObj:
			code = int(v.Int())
		case raw.NameObj:
			out[code] = v.Val
			code++
		}
	}
	return out
}

// cidWidths reads a CIDFont W array: "c [w1 w2 ...]" and "c1 c2 w" forms.
func (b *Builder) cidWidths(cid *raw.DictObj) map[int]float64 {
	arr, ok := b.raw.ResolveArray(mustGet(cid, "W"))
	if !ok {
		return nil
	}
	out := make(map[int]float64)
	items := arr.Items
	for i := 0; i < len(items); {
		first, ok := b.raw.Resolve(items[i]).(raw.NumberObj)
		if !ok || i+1 >= len(items) {
			break
		}
		switch next := b.raw.Resolve(items[i+1]).(type) {
		case *raw.ArrayObj:
			ws, _ := next.Floats()
			for j, w := range ws {
				out[int(first.Int())+j] = w
			}
			i += 2
		case raw.NumberObj:
			if i+2 >= len(items) {
				return out
			}
			w, _ := b.raw.Resolve(items[i+2]).(raw.NumberObj)
			for c := first.Int(); c <= next.Int() && c-first.Int() < 0x10000; c++ {
				out[int(c)] = w.Float()
			}
			i += 3
		default:
			return out
		}
	}
	return out
}

func (b *Builder) descriptor(fd *raw.DictObj) *FontDescriptor {
	out := &FontDescriptor{}
	out.FontName, _ = fd.Name("FontName")
	if v, ok := b.number(fd, "Flags"); ok {
		out.Flags = int(v)
	}
	out.Ascent, _ = b.number(fd, "Ascent")
	out.Descent, _ = b.number(fd, "Descent")
	out.CapHeight, _ = b.number(fd, "CapHeight")
	out.ItalicAngle, _ = b.number(fd, "ItalicAngle")
	out.StemV, _ = b.number(fd, "StemV")
	if bb := b.floats(fd, "FontBBox"); len(bb) == 4 {
		copy(out.FontBBox[:], bb)
	}
	return out
}
