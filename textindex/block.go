package textindex

import (
	"fmt"
	"strings"

	"github.com/wudi/pdfedit/coords"
	"github.com/wudi/pdfedit/extractor"
)

// Span is the smallest painted unit: one show operator's text.
type Span struct {
	Text    string
	Origin  coords.Point
	Dir     coords.Point
	BBox    coords.Rect
	Font    string
	Size    float64
	Color   []float64
	OpIndex int
}

// Run is a stretch of same-style spans on one line.
type Run struct {
	ID    string
	Spans []Span
	Rect  coords.Rect
	Text  string
	Font  string
	Size  float64
	Color []float64

	// start and end delimit the run's share of the block text, in bytes.
	start, end int
}

// Block is one paint block. Its identity rectangle is fixed when the block
// is created; edits move LayoutRect only.
type Block struct {
	ID                string
	PageNum           int
	LayoutRect        coords.Rect
	Text              string
	Font              string
	Size              float64
	Color             []float64
	Runs              []Run
	OriginalSpanCount int

	rect     coords.Rect
	rotation int
}

// NewBlock creates a block whose identity and layout rectangles are rect.
func NewBlock(id string, page int, rect coords.Rect, rotation int) *Block {
	b := &Block{ID: id, PageNum: page, LayoutRect: rect, rect: rect}
	b.SetRotation(rotation)
	return b
}

// Rect is the bounding box the block had when it was indexed.
func (b *Block) Rect() coords.Rect { return b.rect }

func (b *Block) Rotation() int { return b.rotation }

// SetRotation stores rotation folded into [0, 360).
func (b *Block) SetRotation(rotation int) {
	b.rotation = coords.NormalizeRotation(rotation)
}

// IsVertical reports whether the block runs along the page's y axis.
func (b *Block) IsVertical() bool {
	return b.rotation == 90 || b.rotation == 270
}

func (b *Block) String() string {
	return fmt.Sprintf("%s %q", b.ID, b.Text)
}

func blockID(page, pos int) string {
	return fmt.Sprintf("p%d-b%d", page, pos)
}

// newBlockFrom converts an extracted block. Spans merge into a run while
// they stay on one line and share font, size and color.
func newBlockFrom(page, pos int, eb extractor.Block) *Block {
	b := NewBlock(blockID(page, pos), page, eb.BBox, eb.Rotation)
	b.Text = eb.Text()
	base := 0
	for _, line := range eb.Lines {
		text, offsets := line.TextOffsets()
		var cur *Run
		for j, es := range line.Spans {
			start := base + offsets[j]
			end := start + len(es.Text)
			s := Span{
				Text:    es.Text,
				Origin:  es.Origin,
				Dir:     es.Dir,
				BBox:    es.BBox,
				Font:    es.BaseFont,
				Size:    es.Size,
				Color:   es.Color,
				OpIndex: es.OpIndex,
			}
			b.OriginalSpanCount++
			if cur != nil && sameStyle(cur, s) {
				cur.Spans = append(cur.Spans, s)
				cur.Rect = cur.Rect.Union(s.BBox)
				cur.end = end
				continue
			}
			b.Runs = append(b.Runs, Run{
				ID:    fmt.Sprintf("%s-r%d", b.ID, len(b.Runs)),
				Spans: []Span{s},
				Rect:  s.BBox,
				Font:  s.Font,
				Size:  s.Size,
				Color: s.Color,
				start: start,
				end:   end,
			})
			cur = &b.Runs[len(b.Runs)-1]
		}
		base += len(text) + 1
	}
	for i := range b.Runs {
		var sb strings.Builder
		for _, s := range b.Runs[i].Spans {
			sb.WriteString(s.Text)
		}
		b.Runs[i].Text = sb.String()
	}
	if len(b.Runs) > 0 {
		r := dominant(b.Runs)
		b.Font, b.Size, b.Color = r.Font, r.Size, r.Color
	}
	return b
}

func sameStyle(r *Run, s Span) bool {
	if r.Font != s.Font || r.Size != s.Size || len(r.Color) != len(s.Color) {
		return false
	}
	for i := range r.Color {
		if r.Color[i] != s.Color[i] {
			return false
		}
	}
	return true
}

// dominant is the run carrying the most text.
func dominant(runs []Run) Run {
	best := runs[0]
	for _, r := range runs[1:] {
		if len([]rune(r.Text)) > len([]rune(best.Text)) {
			best = r
		}
	}
	return best
}
