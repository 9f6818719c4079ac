package raw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/recovery"
)

func TestParserParsesObjectsAndStream(t *testing.T) {
	src := "%PDF-1.7\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 3 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj\n" +
		"trailer\n<< /Size 3 /Root 1 0 R >>\n%%EOF\n"

	doc, err := NewParser(ParserConfig{}).Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "1.7", doc.Version)
	require.Len(t, doc.Objects, 2)

	cat, ok := doc.Objects[ObjectRef{Num: 1}].(*DictObj)
	require.True(t, ok)
	typ, _ := cat.Name("Type")
	assert.Equal(t, "Catalog", typ)

	stream, ok := doc.Objects[ObjectRef{Num: 2}].(*StreamObj)
	require.True(t, ok)
	assert.Equal(t, "hello", string(stream.Data))

	root, ok := doc.Trailer.Get("Root")
	require.True(t, ok)
	assert.Equal(t, Ref(1, 0), root)
}

func TestParserLaterDefinitionWins(t *testing.T) {
	src := "1 0 obj (old) endobj\n1 0 obj (new) endobj\n"
	doc, err := NewParser(ParserConfig{}).Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "new", string(doc.Objects[ObjectRef{Num: 1}].(StringObj).Bytes))
}

func TestParserRecovery(t *testing.T) {
	src := "1 0 obj << /A 1 /B >> endobj\n2 0 obj << /Ok true >> endobj\n"

	_, err := NewParser(ParserConfig{Recovery: recovery.NewStrictStrategy()}).Parse(context.Background(), []byte(src))
	assert.Error(t, err)

	lenient := recovery.NewLenientStrategy()
	doc, err := NewParser(ParserConfig{Recovery: lenient}).Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.NotEmpty(t, lenient.Errors)
	_, ok := doc.Objects[ObjectRef{Num: 2}]
	assert.True(t, ok)
}

func TestDocumentResolve(t *testing.T) {
	doc := NewDocument()
	inner := Dict()
	inner.Set("K", NumberInt(7))
	doc.Objects[ObjectRef{Num: 4}] = inner
	doc.Objects[ObjectRef{Num: 5}] = Ref(4, 0)

	d, ok := doc.ResolveDict(Ref(5, 0))
	require.True(t, ok)
	v, _ := d.Number("K")
	assert.Equal(t, 7.0, v)
	assert.Nil(t, doc.Resolve(Ref(99, 0)))
}
