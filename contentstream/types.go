package contentstream

// TextRenderMode matches PDF text rendering modes set via Tr operator.
type TextRenderMode int

const (
	TextFill TextRenderMode = iota
	TextStroke
	TextFillStroke
	TextInvisible
	TextFillClip
	TextStrokeClip
	TextFillStrokeClip
	TextClip
)

// Visible reports whether glyphs shown in this mode leave marks.
func (m TextRenderMode) Visible() bool { return m != TextInvisible && m != TextClip }
