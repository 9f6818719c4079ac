package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
)

func testPage() *semantic.Page {
	return &semantic.Page{
		MediaBox:  semantic.Rectangle{URX: 200, URY: 300},
		Resources: semantic.NewResources(),
		Annotations: []semantic.Annotation{
			&semantic.MarkupAnnotation{
				BaseAnnotation: semantic.BaseAnnotation{Type: "Highlight", Rect: semantic.Rectangle{LLX: 10, LLY: 250, URX: 90, URY: 270}, Color: []float64{1, 1, 0}},
				QuadPoints:     []float64{10, 270, 90, 270, 10, 250, 90, 250},
			},
			&semantic.ShapeAnnotation{
				BaseAnnotation: semantic.BaseAnnotation{Type: "Square", Rect: semantic.Rectangle{LLX: 100, LLY: 100, URX: 150, URY: 150}},
				InteriorColor:  []float64{0, 0, 1},
			},
			&semantic.GenericAnnotation{
				BaseAnnotation: semantic.BaseAnnotation{Type: "Link", Rect: semantic.Rectangle{LLX: 20, LLY: 255, URX: 40, URY: 265}},
			},
			&semantic.FreeTextAnnotation{
				BaseAnnotation: semantic.BaseAnnotation{Type: "FreeText", Rect: semantic.Rectangle{LLX: 50, LLY: 260, URX: 50, URY: 280}},
			},
		},
	}
}

func TestCaptureRemovesSupportedOnly(t *testing.T) {
	page := testPage()
	g := New()
	descs := g.Capture(page, coords.Rect{X0: 0, Y0: 20, X1: 100, Y1: 60})

	require.Len(t, descs, 1)
	d := descs[0]
	assert.Equal(t, KindHighlight, d.Kind)
	assert.Equal(t, coords.Rect{X0: 10, Y0: 30, X1: 90, Y1: 50}, d.Rect)
	require.Len(t, d.QuadPoints, 4)
	assert.Equal(t, coords.Point{X: 10, Y: 30}, d.QuadPoints[0])

	// The link is unsupported, the free text note degenerate, the square
	// outside the region.
	require.Len(t, page.Annotations, 3)
	assert.Equal(t, "Square", page.Annotations[0].Subtype())
	assert.Equal(t, "Link", page.Annotations[1].Subtype())
	assert.Equal(t, "FreeText", page.Annotations[2].Subtype())
}

func TestRestoreShifted(t *testing.T) {
	page := testPage()
	g := New()
	descs := g.Capture(page, coords.Rect{X0: 0, Y0: 20, X1: 100, Y1: 60})
	require.Len(t, descs, 1)

	assert.Equal(t, 1, g.Restore(page, descs, 40))
	a := page.Annotations[len(page.Annotations)-1]
	hl, ok := a.(*semantic.MarkupAnnotation)
	require.True(t, ok)
	assert.Equal(t, semantic.Rectangle{LLX: 10, LLY: 210, URX: 90, URY: 230}, hl.Rect)
	assert.Equal(t, []float64{10, 230, 90, 230, 10, 210, 90, 210}, hl.QuadPoints)
	assert.Equal(t, []float64{1, 1, 0}, hl.Color)
}

func TestDescriptorJSON(t *testing.T) {
	page := testPage()
	descs := New().Capture(page, page.DeviceRect())
	require.Len(t, descs, 2)

	data, err := Marshal(descs)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, descs, back)

	_, err = Unmarshal([]byte("{"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	page := testPage()
	a, err := Build(page, Descriptor{Kind: KindFreeText, Rect: coords.Rect{X0: 10, Y0: 10, X1: 60, Y1: 30}, Contents: "note"})
	require.NoError(t, err)
	ft := a.(*semantic.FreeTextAnnotation)
	assert.Equal(t, "note", ft.Contents)
	assert.NotEmpty(t, ft.DA)
	assert.Equal(t, semantic.Rectangle{LLX: 10, LLY: 270, URX: 60, URY: 290}, ft.Rect)

	a, err = Build(page, Descriptor{Kind: KindUnderline, Rect: coords.Rect{X0: 0, Y0: 0, X1: 10, Y1: 5}})
	require.NoError(t, err)
	assert.Len(t, a.(*semantic.MarkupAnnotation).QuadPoints, 8)

	_, err = Build(page, Descriptor{Kind: "Stamp", Rect: coords.Rect{X1: 1, Y1: 1}})
	assert.Error(t, err)
	_, err = Build(page, Descriptor{Kind: KindSquare})
	assert.Error(t, err)
}
