// Package fonts maps font names found in documents onto fonts that text
// insertion can use, and owns the width and encoding tables shared by text
// extraction and layout.
package fonts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfedit/ir/semantic"
)

// CJKFont is the fallback used when text needs CJK glyphs.
const CJKFont = "STSong-Light"

// DefaultFont is the plain sans-serif every unknown name resolves to.
const DefaultFont = "Helvetica"

var standard14 = map[string]bool{
	"Helvetica": true, "Helvetica-Bold": true, "Helvetica-Oblique": true, "Helvetica-BoldOblique": true,
	"Times-Roman": true, "Times-Bold": true, "Times-Italic": true, "Times-BoldItalic": true,
	"Courier": true, "Courier-Bold": true, "Courier-Oblique": true, "Courier-BoldOblique": true,
	"Symbol": true, "ZapfDingbats": true,
}

// aliases are the common platform names of the standard fonts.
var aliases = map[string]string{
	"Arial":                        "Helvetica",
	"ArialMT":                      "Helvetica",
	"Arial-BoldMT":                 "Helvetica-Bold",
	"Arial-ItalicMT":               "Helvetica-Oblique",
	"Arial-BoldItalicMT":           "Helvetica-BoldOblique",
	"Arial,Bold":                   "Helvetica-Bold",
	"Arial,Italic":                 "Helvetica-Oblique",
	"Arial,BoldItalic":             "Helvetica-BoldOblique",
	"Helv":                         "Helvetica",
	"Times":                        "Times-Roman",
	"TimesNewRoman":                "Times-Roman",
	"TimesNewRomanPSMT":            "Times-Roman",
	"TimesNewRomanPS-BoldMT":       "Times-Bold",
	"TimesNewRomanPS-ItalicMT":     "Times-Italic",
	"TimesNewRomanPS-BoldItalicMT": "Times-BoldItalic",
	"TimesNewRoman,Bold":           "Times-Bold",
	"TimesNewRoman,Italic":         "Times-Italic",
	"CourierNew":                   "Courier",
	"CourierNewPSMT":               "Courier",
	"CourierNewPS-BoldMT":          "Courier-Bold",
	"CourierNewPS-ItalicMT":        "Courier-Oblique",
	"CourierNewPS-BoldItalicMT":    "Courier-BoldOblique",
	"Cour":                         "Courier",
}

// Resolver maps raw font names to usable ones. Results depend only on the
// input and the registered fonts.
type Resolver struct {
	mu         sync.RWMutex
	registered map[string]*Metrics
}

func NewResolver() *Resolver {
	return &Resolver{registered: make(map[string]*Metrics)}
}

// Register makes a TrueType/OpenType font resolvable by name.
func (r *Resolver) Register(name string, ttf []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("register font: empty name")
	}
	if len(ttf) == 0 {
		return fmt.Errorf("register font %s: empty data", name)
	}
	m, err := parseMetrics(name, ttf)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.registered[name] = m
	r.mu.Unlock()
	return nil
}

// Registered lists registered font names in order.
func (r *Resolver) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.registered))
	for n := range r.registered {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// StripSubset removes an embedded-subset tag such as "ABCDEF+".
func StripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for i := 0; i < 6; i++ {
			if name[i] < 'A' || name[i] > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

// Resolve maps a raw font name to a usable font name.
func (r *Resolver) Resolve(raw string) string {
	name := strings.TrimSpace(StripSubset(strings.TrimPrefix(raw, "/")))
	if name == "" {
		return DefaultFont
	}
	if standard14[name] || name == CJKFont {
		return name
	}
	if a, ok := aliases[name]; ok {
		return a
	}
	r.mu.RLock()
	_, ok := r.registered[name]
	r.mu.RUnlock()
	if ok {
		return name
	}
	return classify(name)
}

// ResolveFor is Resolve, switching to the CJK fallback when text holds CJK
// code points the resolved built-in cannot render.
func (r *Resolver) ResolveFor(raw, text string) string {
	name := r.Resolve(raw)
	if ContainsCJK(text) && IsBuiltin(name) && name != CJKFont {
		return CJKFont
	}
	return name
}

// IsBuiltin reports whether name is a standard font or the CJK fallback.
func IsBuiltin(name string) bool { return standard14[name] || name == CJKFont }

func classify(name string) string {
	l := strings.ToLower(name)
	bold := containsAny(l, "bold", "black", "heavy", "semibold", "demi")
	italic := containsAny(l, "italic", "oblique", "slanted")
	mono := containsAny(l, "mono", "courier", "consol", "code", "typewriter")
	serif := !strings.Contains(l, "sans") &&
		containsAny(l, "serif", "times", "roman", "georgia", "garamond", "minion", "cambria", "book", "song", "ming")

	switch {
	case mono:
		return styled("Courier", "Courier-Bold", "Courier-Oblique", "Courier-BoldOblique", bold, italic)
	case serif:
		return styled("Times-Roman", "Times-Bold", "Times-Italic", "Times-BoldItalic", bold, italic)
	}
	return styled("Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique", bold, italic)
}

func styled(regular, bold, italic, boldItalic string, b, i bool) string {
	switch {
	case b && i:
		return boldItalic
	case b:
		return bold
	case i:
		return italic
	}
	return regular
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WithStyle returns the family member of a built-in name with the given
// weight and slant. Other names are returned unchanged.
func WithStyle(name string, bold, italic bool) string {
	switch {
	case strings.HasPrefix(name, "Helvetica"):
		return styled("Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique", bold, italic)
	case strings.HasPrefix(name, "Times"):
		return styled("Times-Roman", "Times-Bold", "Times-Italic", "Times-BoldItalic", bold, italic)
	case strings.HasPrefix(name, "Courier"):
		return styled("Courier", "Courier-Bold", "Courier-Oblique", "Courier-BoldOblique", bold, italic)
	}
	return name
}

// Metrics returns the metric table for a resolved name.
func (r *Resolver) Metrics(name string) *Metrics {
	r.mu.RLock()
	m, ok := r.registered[name]
	r.mu.RUnlock()
	if ok {
		return m
	}
	if m, ok := BuiltinMetrics(name); ok {
		return m
	}
	m, _ = BuiltinMetrics(DefaultFont)
	return m
}

// Font builds the font resource for a resolved name. Built-in fonts are
// not embedded; registered fonts are declared as TrueType with their own
// metrics.
func (r *Resolver) Font(name string) *semantic.Font {
	if name == CJKFont {
		return &semantic.Font{
			Subtype:       "Type0",
			BaseFont:      CJKFont,
			Encoding:      "UniGB-UCS2-H",
			DefaultWidth:  1000,
			CIDSystemInfo: "Adobe-GB1",
			Descriptor: &semantic.FontDescriptor{
				FontName: CJKFont, Flags: 4, Ascent: 880, Descent: -120, CapHeight: 880,
				StemV: 80, FontBBox: [4]float64{-25, -254, 1000, 880},
			},
		}
	}
	m := r.Metrics(name)
	widths := make(map[int]float64, 224)
	for code := 32; code < 256; code++ {
		ru := charmap.Windows1252.DecodeByte(byte(code))
		if ru == '\ufffd' {
			continue
		}
		widths[code] = m.Advance(ru)
	}
	f := &semantic.Font{
		Subtype:  "Type1",
		BaseFont: name,
		Encoding: "WinAnsiEncoding",
		Widths:   widths,
	}
	if name == "Symbol" || name == "ZapfDingbats" {
		f.Encoding = ""
	}
	if !standard14[name] {
		f.Subtype = "TrueType"
		f.BaseFont = strings.ReplaceAll(name, " ", "")
		flags := 32
		if m.ItalicAngle != 0 {
			flags |= 64
		}
		f.Descriptor = &semantic.FontDescriptor{
			FontName: f.BaseFont, Flags: flags,
			Ascent: m.Ascent, Descent: m.Descent, CapHeight: m.CapHeight,
			ItalicAngle: m.ItalicAngle, StemV: 80, FontBBox: m.BBox,
		}
	}
	return f
}

// VerticalMetrics returns ascent and descent as fractions of the em.
func VerticalMetrics(f *semantic.Font) (ascent, descent float64) {
	ascent, descent = 0.8, -0.2
	if f != nil && f.Descriptor != nil && f.Descriptor.Ascent > 0 {
		ascent = f.Descriptor.Ascent / 1000
		if f.Descriptor.Descent < 0 {
			descent = f.Descriptor.Descent / 1000
		}
	}
	return math.Min(ascent, 1.2), math.Max(descent, -0.6)
}
