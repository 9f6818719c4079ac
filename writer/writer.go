// Package writer serializes the semantic model to PDF bytes. Output is a
// pure function of the document: object numbering, key order and number
// formatting never depend on map iteration or time.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

type Config struct {
	// Version overrides the header version; empty uses the document's.
	Version string
	// Compress flate-encodes page content streams.
	Compress bool
}

type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte
}

// Interceptor observes objects as they are written.
type Interceptor interface {
	BeforeWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object) error
}

type WriterBuilder struct{ interceptors []Interceptor }

func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}

func (b *WriterBuilder) Build() Writer { return &impl{interceptors: b.interceptors} }

// New returns a writer without interceptors.
func New() Writer { return &impl{} }

// Bytes writes doc into memory.
func Bytes(ctx context.Context, doc *semantic.Document, cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := New().Write(ctx, doc, &buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PageBytes writes a one-page document holding a copy of page i.
func PageBytes(ctx context.Context, doc *semantic.Document, i int, cfg Config) ([]byte, error) {
	if i < 0 || i >= len(doc.Pages) {
		return nil, fmt.Errorf("page %d out of range", i)
	}
	single := &semantic.Document{Version: doc.Version, Pages: []*semantic.Page{doc.Pages[i]}}
	return Bytes(ctx, single, cfg)
}
