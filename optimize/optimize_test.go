package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/contentstream/editor"
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
	"github.com/wudi/pdfedit/fonts"
	"github.com/wudi/pdfedit/ir/semantic"
)

func parse(t *testing.T, content string) []semantic.Operation {
	t.Helper()
	ops, err := semantic.ParseContent([]byte(content))
	require.NoError(t, err)
	return ops
}

func operators(ops []semantic.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Operator
	}
	return out
}

func TestIsPlaceholder(t *testing.T) {
	ops := parse(t, `[-1200] TJ [() -5] TJ () Tj [(a)] TJ (b) Tj`)
	assert.True(t, IsPlaceholder(ops[0]))
	assert.True(t, IsPlaceholder(ops[1]))
	assert.True(t, IsPlaceholder(ops[2]))
	assert.False(t, IsPlaceholder(ops[3]))
	assert.False(t, IsPlaceholder(ops[4]))
}

func TestCompactKeepsNeededAdvance(t *testing.T) {
	// The first placeholder still moves "(after)"; the second is followed
	// by a Td and the third by ET.
	ops := parse(t, `BT /F1 12 Tf 10 10 Td [-1500] TJ (after) Tj [-800] TJ 0 -14 Td (next) Tj [-300] TJ ET`)
	got := Compact(ops)
	assert.Equal(t, []string{"BT", "Tf", "Td", "TJ", "Tj", "Td", "Tj", "ET"}, operators(got))
}

func TestCompactDropsDeadGroups(t *testing.T) {
	ops := parse(t, `q BT /F1 12 Tf 0 0 1 rg 1 0 0 1 50 50 Tm [-900] TJ ET Q
q 1 0 0 rg 0 0 10 10 re f Q
BT 5 5 Td ET`)
	got := Compact(ops)
	assert.Equal(t, []string{"q", "rg", "re", "f", "Q"}, operators(got))
}

func TestCompactNested(t *testing.T) {
	ops := parse(t, `q q 0 g Q BT /F1 9 Tf (x) Tj ET Q`)
	got := Compact(ops)
	assert.Equal(t, []string{"q", "BT", "Tf", "Tj", "ET", "Q"}, operators(got))
}

func TestOptimizeClearedPage(t *testing.T) {
	ctx := context.Background()
	res := semantic.NewResources()
	res.Fonts["F1"] = fonts.NewResolver().Font("Helvetica")
	page := &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: 300, URY: 300},
		Resources: res,
		Contents: []semantic.ContentStream{{Operations: parse(t,
			`q BT /F1 12 Tf 20 250 Td (Remove me) Tj ET Q BT /F1 12 Tf 20 200 Td (Keep) Tj ET`)}},
	}
	doc := &semantic.Document{Pages: []*semantic.Page{page}}

	_, err := editor.NewEditor().ClearText(ctx, page, coords.Rect{X0: 10, Y0: 30, X1: 200, Y1: 60})
	require.NoError(t, err)

	st, err := New(DefaultConfig()).Optimize(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 7, st.OpsRemoved)
	assert.Equal(t, []string{"BT", "Tf", "Td", "Tj", "ET"}, operators(page.Contents[0].Operations))

	text, err := extractor.New().Text(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, "Keep", text)
}

func TestMergeFonts(t *testing.T) {
	r := fonts.NewResolver()
	res := semantic.NewResources()
	res.Fonts["F1"] = r.Font("Helvetica")
	res.Fonts["F2"] = r.Font("Helvetica")
	res.Fonts["F3"] = r.Font("Courier")
	res.Fonts["F9"] = r.Font("Times-Roman")
	page := &semantic.Page{
		Resources: res,
		Contents:  []semantic.ContentStream{{Operations: parse(t, `BT /F1 9 Tf (a) Tj /F2 9 Tf (b) Tj /F3 9 Tf (c) Tj ET`)}},
	}
	doc := &semantic.Document{Pages: []*semantic.Page{page}}

	st, err := New(DefaultConfig()).OptimizePages(context.Background(), doc, []int{0})
	require.NoError(t, err)
	assert.Equal(t, 1, st.FontsMerged)
	assert.Equal(t, 1, st.FontsDropped)
	assert.Len(t, res.Fonts, 2)
	assert.Contains(t, res.Fonts, "F1")
	assert.Contains(t, res.Fonts, "F3")

	ops := page.Contents[0].Operations
	assert.Equal(t, semantic.NameOperand{Value: "F1"}, ops[3].Operands[0])

	_, err = New(DefaultConfig()).OptimizePages(context.Background(), doc, []int{3})
	assert.Error(t, err)
}

func TestFontKeyStable(t *testing.T) {
	r := fonts.NewResolver()
	a, err := fontKey(r.Font("Helvetica"))
	require.NoError(t, err)
	b, err := fontKey(r.Font("Helvetica"))
	require.NoError(t, err)
	c, err := fontKey(r.Font("Helvetica-Bold"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
