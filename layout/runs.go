package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/pdfedit/builder"
)

// Run is a piece of text with one style. A Break run ends the current line.
type Run struct {
	Text   string
	Font   string
	Size   float64
	Color  builder.Color
	Bold   bool
	Italic bool
	Break  bool
}

// Style is the base style markup is applied on top of.
type Style struct {
	Font  string
	Size  float64
	Color builder.Color
}

func (s Style) run(text string) Run {
	return Run{Text: text, Font: s.Font, Size: s.Size, Color: s.Color}
}

// Markup selects how replacement text is interpreted.
type Markup string

const (
	Plain    Markup = "plain"
	HTML     Markup = "html"
	Markdown Markup = "markdown"
)

// Parse turns src into runs according to m. An empty Markup is Plain.
func Parse(m Markup, src string, base Style) ([]Run, error) {
	switch m {
	case "", Plain:
		return ParsePlain(src, base), nil
	case HTML:
		return ParseHTML(src, base)
	case Markdown:
		return ParseMarkdown(src, base)
	}
	return nil, fmt.Errorf("unknown markup %q", m)
}

// ParsePlain keeps text as is; newlines become line breaks.
func ParsePlain(text string, base Style) []Run {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var runs []Run
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			runs = append(runs, Run{Break: true})
		}
		if line != "" {
			runs = append(runs, base.run(line))
		}
	}
	return runs
}

// PlainText flattens runs back to text, breaks as newlines.
func PlainText(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		if r.Break {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}

var namedColors = map[string]builder.Color{
	"black": {},
	"white": {R: 1, G: 1, B: 1},
	"red":   {R: 1},
	"green": {G: 0.5},
	"lime":  {G: 1},
	"blue":  {B: 1},
	"gray":  {R: 0.5, G: 0.5, B: 0.5},
	"grey":  {R: 0.5, G: 0.5, B: 0.5},
}

// ParseColor reads #rgb, #rrggbb, rgb(r, g, b) and a few color names.
func ParseColor(s string) (builder.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return builder.Color{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return builder.Color{}, false
		}
		return builder.Color{
			R: float64(v>>16&0xff) / 255,
			G: float64(v>>8&0xff) / 255,
			B: float64(v&0xff) / 255,
		}, true
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return builder.Color{}, false
		}
		var c [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || v < 0 || v > 255 {
				return builder.Color{}, false
			}
			c[i] = v / 255
		}
		return builder.Color{R: c[0], G: c[1], B: c[2]}, true
	}
	return builder.Color{}, false
}
