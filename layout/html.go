package layout

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/pdfedit/builder"
)

// ParseHTML reads inline HTML: b/strong, i/em, br, p/div/li as line
// breaks, and colors from font color or a style color declaration.
func ParseHTML(source string, base Style) ([]Run, error) {
	nodes, err := html.ParseFragment(strings.NewReader(source), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	if err != nil {
		return nil, err
	}
	w := &htmlWalker{}
	for _, n := range nodes {
		w.walk(n, htmlStyle{Style: base})
	}
	return trimBreaks(w.runs), nil
}

type htmlStyle struct {
	Style
	bold, italic bool
}

type htmlWalker struct {
	runs []Run
}

func (w *htmlWalker) walk(n *html.Node, st htmlStyle) {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if text == "" {
			return
		}
		if w.atLineStart() {
			text = strings.TrimLeft(text, " ")
		}
		if text != "" {
			r := st.run(text)
			r.Bold, r.Italic = st.bold, st.italic
			w.runs = append(w.runs, r)
		}
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			w.runs = append(w.runs, Run{Break: true})
			return
		case atom.B, atom.Strong:
			st.bold = true
		case atom.I, atom.Em:
			st.italic = true
		case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.lineBreak()
			if n.DataAtom != atom.P && n.DataAtom != atom.Div && n.DataAtom != atom.Li {
				st.bold = true
			}
		case atom.Script, atom.Style:
			return
		}
		if c, ok := colorOf(n); ok {
			st.Color = c
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, st)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.lineBreak()
		}
	}
}

func (w *htmlWalker) atLineStart() bool {
	return len(w.runs) == 0 || w.runs[len(w.runs)-1].Break
}

// lineBreak ends the current line unless it is empty.
func (w *htmlWalker) lineBreak() {
	if !w.atLineStart() {
		w.runs = append(w.runs, Run{Break: true})
	}
}

func colorOf(n *html.Node) (c builder.Color, ok bool) {
	for _, a := range n.Attr {
		switch a.Key {
		case "color":
			if c, ok = ParseColor(a.Val); ok {
				return c, true
			}
		case "style":
			for _, decl := range strings.Split(a.Val, ";") {
				k, v, found := strings.Cut(decl, ":")
				if found && strings.TrimSpace(strings.ToLower(k)) == "color" {
					if c, ok = ParseColor(v); ok {
						return c, true
					}
				}
			}
		}
	}
	return c, false
}

func collapseSpace(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(f, " ")
	if strings.TrimLeft(s, " \t\r\n") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		out += " "
	}
	return out
}

// trimBreaks drops trailing breaks and trailing spaces of each line.
func trimBreaks(runs []Run) []Run {
	for len(runs) > 0 && runs[len(runs)-1].Break {
		runs = runs[:len(runs)-1]
	}
	for i := range runs {
		if runs[i].Break {
			continue
		}
		if i+1 == len(runs) || runs[i+1].Break {
			runs[i].Text = strings.TrimRight(runs[i].Text, " ")
		}
	}
	out := runs[:0]
	for _, r := range runs {
		if r.Break || r.Text != "" {
			out = append(out, r)
		}
	}
	return out
}
