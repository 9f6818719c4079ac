package edit

import (
	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/layout"
)

// Mode selects what an edit replaces.
type Mode string

const (
	// ModeParagraph replaces the whole block.
	ModeParagraph Mode = "paragraph"
	// ModeRun replaces one same-style run inside the block.
	ModeRun Mode = "run"
)

// Request describes one text replacement. Rectangles are in device space.
type Request struct {
	// Page is 1-based.
	Page int
	// Rect is the caller's approximate location of the text.
	Rect coords.Rect
	Text string
	// Markup selects how Text is parsed; empty means plain text.
	Markup layout.Markup
	// Font, Size and Color override the style of the replaced text.
	Font  string
	Size  float64
	Color []float64
	// Hint is the text the caller believes is at Rect.
	Hint string
	// VerticalShiftLeft grows rotated text that needs more lines toward
	// the left instead of the right.
	VerticalShiftLeft bool
	// NewRect moves the text to another place on the page.
	NewRect *coords.Rect
	// TargetID skips the region lookup.
	TargetID string
	Mode     Mode
}

// Strategy names the insertion tier that placed the text.
type Strategy string

const (
	StrategyFixed  Strategy = "fixed"
	StrategyWiden  Strategy = "widen"
	StrategyShrink Strategy = "shrink"
)

// Result describes a committed edit.
type Result struct {
	BlockID  string
	RunID    string
	Strategy Strategy
	// Rect is the device rectangle covered by the new text.
	Rect       coords.Rect
	Scale      float64
	Similarity float64
	// Reflowed lists blocks pushed down to make room.
	Reflowed []string
	// Missing lists runes no font could encode.
	Missing []rune
}
