// Package contentstream executes page content streams virtually to find
// where text and graphics land on the page.
package contentstream

import (
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/ir/semantic"
)

// GraphicsState is the subset of the PDF graphics state the tracer needs.
// Text state parameters live here because q/Q saves them too.
type GraphicsState struct {
	CTM       coords.Matrix
	FillColor []float64
	Text      TextParams
	stack     []GraphicsState
}

func NewGraphicsState() *GraphicsState {
	return &GraphicsState{CTM: coords.Identity(), FillColor: []float64{0}, Text: TextParams{Scale: 100}}
}

func (gs *GraphicsState) Save() {
	clone := *gs
	clone.stack = nil
	clone.FillColor = append([]float64(nil), gs.FillColor...)
	gs.stack = append(gs.stack, clone)
}

// Restore pops the last saved state. It reports false on underflow.
func (gs *GraphicsState) Restore() bool {
	n := len(gs.stack)
	if n == 0 {
		return false
	}
	stack := gs.stack[:n-1]
	*gs = gs.stack[n-1]
	gs.stack = stack
	return true
}

// TextParams are the text state parameters (Tc, Tw, Tz, TL, Tf, Tr, Ts).
type TextParams struct {
	CharSpacing float64
	WordSpacing float64
	Scale       float64 // percent
	Leading     float64
	Font        *semantic.Font
	FontName    string
	FontSize    float64
	Render      TextRenderMode
	Rise        float64
}

// TextState holds the text and line matrices of the current text object.
type TextState struct {
	TextMatrix     coords.Matrix
	TextLineMatrix coords.Matrix
}

func (ts *TextState) reset() {
	ts.TextMatrix = coords.Identity()
	ts.TextLineMatrix = coords.Identity()
}

func (ts *TextState) moveLine(tx, ty float64) {
	ts.TextLineMatrix = coords.Translate(tx, ty).Multiply(ts.TextLineMatrix)
	ts.TextMatrix = ts.TextLineMatrix
}
