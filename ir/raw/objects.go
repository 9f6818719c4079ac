package raw

import "sort"

type NameObj struct{ Val string }

func (NameObj) Type() string { return "name" }

type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (NumberObj) Type() string { return "number" }

func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

func (n NumberObj) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}

type BoolObj struct{ V bool }

func (BoolObj) Type() string { return "boolean" }

type NullObj struct{}

func (NullObj) Type() string { return "null" }

type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (StringObj) Type() string { return "string" }

type ArrayObj struct{ Items []Object }

func (*ArrayObj) Type() string { return "array" }

func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// Floats converts the array to numbers, failing on any non-number item.
func (a *ArrayObj) Floats() ([]float64, bool) {
	out := make([]float64, 0, len(a.Items))
	for _, it := range a.Items {
		n, ok := it.(NumberObj)
		if !ok {
			return nil, false
		}
		out = append(out, n.Float())
	}
	return out, true
}

type DictObj struct{ KV map[string]Object }

func (*DictObj) Type() string { return "dict" }

func (d *DictObj) Get(key string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	o, ok := d.KV[key]
	return o, ok
}

func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

func (d *DictObj) Delete(key string) { delete(d.KV, key) }

// Keys returns the dictionary keys sorted, so serialization is stable.
func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *DictObj) Len() int { return len(d.KV) }

// Name returns the value of key when it is a name.
func (d *DictObj) Name(key string) (string, bool) {
	o, ok := d.Get(key)
	if !ok {
		return "", false
	}
	n, ok := o.(NameObj)
	return n.Val, ok
}

func (d *DictObj) Number(key string) (float64, bool) {
	o, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := o.(NumberObj)
	return n.Float(), ok
}

func (d *DictObj) String(key string) ([]byte, bool) {
	o, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := o.(StringObj)
	return s.Bytes, ok
}

type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (*StreamObj) Type() string { return "stream" }

type RefObj struct{ R ObjectRef }

func (RefObj) Type() string { return "ref" }

func NameLiteral(v string) NameObj    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj { return NumberObj{F: f} }
func Bool(v bool) BoolObj             { return BoolObj{V: v} }
func Str(b []byte) StringObj          { return StringObj{Bytes: b} }
func NewArray(items ...Object) *ArrayObj {
	return &ArrayObj{Items: items}
}
func Dict() *DictObj { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj {
	return &StreamObj{Dict: dict, Data: data}
}
func Ref(num, gen int) RefObj { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }

// Number returns an integer object when f is integral.
func Number(f float64) NumberObj {
	if f == float64(int64(f)) {
		return NumberInt(int64(f))
	}
	return NumberFloat(f)
}
