// Package raw is the syntactic PDF object model: what the file literally
// says, before any page or font semantics are attached.
package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is implemented by every raw PDF value.
type Object interface {
	Type() string
}

// Document is the root container for raw PDF objects.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g. "1.7"
}

func NewDocument() *Document {
	return &Document{Objects: make(map[ObjectRef]Object), Trailer: Dict()}
}

// Resolve follows indirect references until a direct object is reached.
// Missing targets resolve to nil.
func (d *Document) Resolve(o Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := o.(RefObj)
		if !ok {
			return o
		}
		o = d.Objects[ref.R]
	}
	return nil
}

// ResolveDict resolves o and returns it as a dictionary. Streams yield
// their dictionary.
func (d *Document) ResolveDict(o Object) (*DictObj, bool) {
	switch v := d.Resolve(o).(type) {
	case *DictObj:
		return v, true
	case *StreamObj:
		return v.Dict, true
	}
	return nil, false
}

func (d *Document) ResolveArray(o Object) (*ArrayObj, bool) {
	a, ok := d.Resolve(o).(*ArrayObj)
	return a, ok
}

// Refs returns object references in ascending order.
func (d *Document) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for r := range d.Objects {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}
