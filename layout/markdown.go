package layout

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseMarkdown reads inline Markdown with goldmark: *em* is italic,
// **strong** bold, `code` monospace. Paragraphs, headings and list items
// start new lines; hard line breaks are kept.
func ParseMarkdown(source string, base Style) ([]Run, error) {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	w := &mdWalker{src: src, base: base}
	if err := ast.Walk(doc, w.visit); err != nil {
		return nil, err
	}
	return trimBreaks(w.runs), nil
}

type mdWalker struct {
	src  []byte
	base Style
	runs []Run

	bold, italic, mono int
	bullet             bool
}

func (w *mdWalker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	step := 1
	if !entering {
		step = -1
	}
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.lineBreak()
	case *ast.Heading:
		w.lineBreak()
		w.bold += step
	case *ast.ListItem:
		w.lineBreak()
		w.bullet = entering
	case *ast.Emphasis:
		if node.Level >= 2 {
			w.bold += step
		} else {
			w.italic += step
		}
	case *ast.CodeSpan:
		w.mono += step
	case *ast.Text:
		if !entering {
			break
		}
		w.emit(string(node.Segment.Value(w.src)))
		switch {
		case node.HardLineBreak():
			w.runs = append(w.runs, Run{Break: true})
		case node.SoftLineBreak():
			w.emit(" ")
		}
	case *ast.String:
		if entering {
			w.emit(string(node.Value))
		}
	}
	return ast.WalkContinue, nil
}

func (w *mdWalker) emit(s string) {
	if s == "" {
		return
	}
	if w.bullet {
		w.runs = append(w.runs, w.base.run("• "))
		w.bullet = false
	}
	r := w.base.run(s)
	r.Bold, r.Italic = w.bold > 0, w.italic > 0
	if w.mono > 0 {
		r.Font = "Courier"
	}
	w.runs = append(w.runs, r)
}

// lineBreak ends the current line unless it is empty.
func (w *mdWalker) lineBreak() {
	if len(w.runs) > 0 && !w.runs[len(w.runs)-1].Break {
		w.runs = append(w.runs, Run{Break: true})
	}
}
