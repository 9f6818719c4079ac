package optimize

import (
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

// fontKey fingerprints everything the writer would emit for f.
func fontKey(f *semantic.Font) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if f.Raw != nil {
		fmt.Fprint(h, "raw:")
		writeHash(h, f.Raw)
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	fmt.Fprintf(h, "%s|%s|%s|%d|%g|%s|", f.Subtype, f.BaseFont, f.Encoding, f.FirstChar, f.DefaultWidth, f.CIDSystemInfo)
	for _, k := range sortedInts(f.Differences) {
		fmt.Fprintf(h, "d%d=%s,", k, f.Differences[k])
	}
	for _, k := range sortedInts(f.Widths) {
		fmt.Fprintf(h, "w%d=%g,", k, f.Widths[k])
	}
	for _, k := range sortedInts(f.ToUnicode) {
		fmt.Fprintf(h, "u%d=%s,", k, string(f.ToUnicode[k]))
	}
	if d := f.Descriptor; d != nil {
		fmt.Fprintf(h, "fd%+v", *d)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sortedInts[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func writeHash(h hash.Hash, obj raw.Object) {
	if obj == nil {
		fmt.Fprint(h, "nil")
		return
	}
	fmt.Fprint(h, obj.Type(), ":")
	switch t := obj.(type) {
	case raw.NameObj:
		fmt.Fprint(h, t.Val)
	case raw.NumberObj:
		if t.IsInt {
			fmt.Fprint(h, t.Int())
		} else {
			fmt.Fprint(h, t.Float())
		}
	case raw.BoolObj:
		fmt.Fprint(h, t.V)
	case raw.StringObj:
		fmt.Fprintf(h, "%d:", len(t.Bytes))
		h.Write(t.Bytes)
	case raw.RefObj:
		fmt.Fprintf(h, "%d %d R", t.R.Num, t.R.Gen)
	case *raw.ArrayObj:
		fmt.Fprint(h, "[")
		for _, v := range t.Items {
			writeHash(h, v)
			fmt.Fprint(h, ",")
		}
		fmt.Fprint(h, "]")
	case *raw.DictObj:
		fmt.Fprint(h, "<<")
		for _, k := range t.Keys() {
			fmt.Fprint(h, k)
			writeHash(h, t.KV[k])
		}
		fmt.Fprint(h, ">>")
	case *raw.StreamObj:
		writeHash(h, t.Dict)
		fmt.Fprintf(h, "%d:", len(t.Data))
		h.Write(t.Data)
	case raw.NullObj:
		fmt.Fprint(h, "null")
	}
}
