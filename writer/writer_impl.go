package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

type impl struct {
	interceptors []Interceptor
}

func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	b := newObjectBuilder(cfg)
	catalog, info, err := b.Build(ctx, doc)
	if err != nil {
		return err
	}

	version := cfg.Version
	if version == "" {
		version = doc.Version
	}
	if version == "" {
		version = "1.7"
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + version + "\n%\xE2\xE3\xCF\xD3\n")

	refs := make([]raw.ObjectRef, 0, len(b.objects))
	for r := range b.objects {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })

	offsets := make(map[int]int64, len(refs))
	for _, ref := range refs {
		obj := b.objects[ref]
		for _, ic := range w.interceptors {
			if err := ic.BeforeWrite(ctx, ref, obj); err != nil {
				return fmt.Errorf("write %s: %w", ref, err)
			}
		}
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(w.SerializeObject(ref, obj))
	}

	// The file identifier is derived from the body so identical documents
	// produce identical bytes.
	sum := blake2b.Sum256(buf.Bytes())
	id := raw.StringObj{Bytes: sum[:16], Hex: true}

	xrefOffset := buf.Len()
	size := b.next
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n < size; n++ {
		if off, ok := offsets[n]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(size)))
	trailer.Set("Root", raw.RefObj{R: catalog})
	if info.Num != 0 {
		trailer.Set("Info", raw.RefObj{R: info})
	}
	trailer.Set("ID", raw.NewArray(id, id))
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err = out.Write(buf.Bytes())
	return err
}

// SerializeObject renders one indirect object. Stream lengths are always
// recomputed from the data.
func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	if s, ok := obj.(*raw.StreamObj); ok {
		dict := raw.Dict()
		if s.Dict != nil {
			for _, k := range s.Dict.Keys() {
				dict.Set(k, s.Dict.KV[k])
			}
		}
		dict.Set("Length", raw.NumberInt(int64(len(s.Data))))
		buf.Write(serializePrimitive(dict))
		buf.WriteString("\nstream\n")
		buf.Write(s.Data)
		buf.WriteString("\nendstream")
	} else {
		buf.Write(serializePrimitive(obj))
	}
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}
