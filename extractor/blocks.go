package extractor

import (
	"math"
	"strings"

	"github.com/wudi/pdfedit/coords"
)

// Line is a row of spans sharing a baseline.
type Line struct {
	Spans []Span
	BBox  coords.Rect
}

// Block is a group of lines painted by one text object in one direction.
type Block struct {
	Lines    []Line
	BBox     coords.Rect
	Rotation int
}

const (
	// sameLine is the baseline tolerance, as a share of the font size.
	sameLine = 0.5
	// lineBreak is the largest baseline step, in font sizes, that still
	// continues a block.
	lineBreak = 1.5
	// columnGap is the largest gap along a line, in font sizes, that still
	// continues a block.
	columnGap = 3.0
	// wordGap inserts a space between spans spaced further apart.
	wordGap = 0.15
)

// Text joins the lines of b with newlines.
func (b Block) Text() string {
	lines := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = l.Text()
	}
	return strings.Join(lines, "\n")
}

// Spans returns every span of b in order.
func (b Block) Spans() []Span {
	var out []Span
	for _, l := range b.Lines {
		out = append(out, l.Spans...)
	}
	return out
}

// Text joins the spans of l, adding a space where they are visibly apart.
func (l Line) Text() string {
	text, _ := l.TextOffsets()
	return text
}

// TextOffsets returns Text and the byte offset each span starts at in it.
func (l Line) TextOffsets() (string, []int) {
	var sb strings.Builder
	offsets := make([]int, len(l.Spans))
	for i, s := range l.Spans {
		if i > 0 && needsSpace(l.Spans[i-1], s, sb.String()) {
			sb.WriteByte(' ')
		}
		offsets[i] = sb.Len()
		sb.WriteString(s.Text)
	}
	return sb.String(), offsets
}

func (l Line) clip(rect coords.Rect) string {
	var sb strings.Builder
	for i, s := range l.Spans {
		if i > 0 && needsSpace(l.Spans[i-1], s, sb.String()) && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		for _, c := range s.Chars {
			if rect.Contains(c.BBox.Center()) {
				sb.WriteString(c.Text)
			}
		}
	}
	return sb.String()
}

func needsSpace(prev, next Span, sofar string) bool {
	if strings.HasSuffix(sofar, " ") || strings.HasPrefix(next.Text, " ") {
		return false
	}
	gap := along(next.Dir, next.Origin) - along(prev.Dir, end(prev))
	return gap > wordGap*math.Max(prev.Size, next.Size)
}

// GroupBlocks assembles spans, in paint order, into lines and blocks. A new
// block starts with a new text object, a change of direction, a baseline
// step larger than lineBreak sizes or a gap wider than columnGap sizes.
func GroupBlocks(spans []Span) []Block {
	var blocks []Block
	var cur *Block
	var last Span
	flush := func() {
		if cur != nil && len(cur.Lines) > 0 {
			blocks = append(blocks, *cur)
		}
		cur = nil
	}
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" && cur == nil {
			continue
		}
		if cur != nil {
			switch relate(last, s) {
			case continueLine:
				l := &cur.Lines[len(cur.Lines)-1]
				l.Spans = append(l.Spans, s)
				l.BBox = l.BBox.Union(s.BBox)
				cur.BBox = cur.BBox.Union(s.BBox)
				last = s
				continue
			case newLine:
				cur.Lines = append(cur.Lines, Line{Spans: []Span{s}, BBox: s.BBox})
				cur.BBox = cur.BBox.Union(s.BBox)
				last = s
				continue
			}
			flush()
		}
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		cur = &Block{Lines: []Line{{Spans: []Span{s}, BBox: s.BBox}}, BBox: s.BBox, Rotation: s.Rotation}
		last = s
	}
	flush()
	for i := range blocks {
		trimLines(&blocks[i])
	}
	return blocks
}

type relation int

const (
	newBlock relation = iota
	continueLine
	newLine
)

func relate(prev, next Span) relation {
	if prev.TextObject != next.TextObject || prev.Rotation != next.Rotation {
		return newBlock
	}
	size := math.Max(math.Max(prev.Size, next.Size), 1)
	dy := across(next.Dir, next.Origin) - across(next.Dir, prev.Origin)
	if math.Abs(dy) <= sameLine*size {
		gap := along(next.Dir, next.Origin) - along(next.Dir, end(prev))
		if gap > columnGap*size {
			return newBlock
		}
		return continueLine
	}
	// Lines advance downwards in the text's own frame.
	if dy > 0 && dy <= lineBreak*size {
		return newLine
	}
	return newBlock
}

// along projects p onto the baseline direction; across onto its normal,
// which points down the page for unrotated text.
func along(dir, p coords.Point) float64  { return dir.X*p.X + dir.Y*p.Y }
func across(dir, p coords.Point) float64 { return dir.X*p.Y - dir.Y*p.X }

func end(s Span) coords.Point {
	if len(s.Chars) == 0 {
		return s.Origin
	}
	last := s.Chars[len(s.Chars)-1].BBox
	d := along(s.Dir, coords.Point{X: last.X1, Y: last.Y1})
	if v := along(s.Dir, coords.Point{X: last.X0, Y: last.Y0}); v > d {
		d = v
	}
	shift := d - along(s.Dir, s.Origin)
	return coords.Point{X: s.Origin.X + s.Dir.X*shift, Y: s.Origin.Y + s.Dir.Y*shift}
}

// trimLines drops whitespace-only spans at line ends so they do not widen
// the block.
func trimLines(b *Block) {
	b.BBox = coords.Rect{}
	for i := range b.Lines {
		l := &b.Lines[i]
		for len(l.Spans) > 1 && strings.TrimSpace(l.Spans[len(l.Spans)-1].Text) == "" {
			l.Spans = l.Spans[:len(l.Spans)-1]
		}
		l.BBox = coords.Rect{}
		for _, s := range l.Spans {
			l.BBox = l.BBox.Union(s.BBox)
		}
		b.BBox = b.BBox.Union(l.BBox)
	}
}
