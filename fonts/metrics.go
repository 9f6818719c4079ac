package fonts

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// metricFaces backs each built-in name with a freely available face of the
// same design class. Only advances and vertical metrics are read.
var metricFaces = map[string][]byte{
	"Helvetica":             goregular.TTF,
	"Helvetica-Bold":        gobold.TTF,
	"Helvetica-Oblique":     goitalic.TTF,
	"Helvetica-BoldOblique": gobolditalic.TTF,
	"Courier":               gomono.TTF,
	"Courier-Bold":          gomonobold.TTF,
	"Courier-Oblique":       gomonoitalic.TTF,
	"Courier-BoldOblique":   gomonobolditalic.TTF,
	"Times-Roman":           lmroman10regular.TTF,
	"Times-Bold":            lmroman10bold.TTF,
	"Times-Italic":          lmroman10italic.TTF,
	"Times-BoldItalic":      lmroman10bolditalic.TTF,
	"Symbol":                goregular.TTF,
	"ZapfDingbats":          goregular.TTF,
}

// Metrics holds advance widths and vertical metrics for one face, in
// glyph space (1/1000 em). Advances are rounded to whole units.
type Metrics struct {
	Name        string
	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	BBox        [4]float64

	ttf  []byte
	face *sfnt.Font
	upem sfnt.Units

	mu       sync.Mutex
	buf      sfnt.Buffer
	advances map[rune]float64
}

func parseMetrics(name string, ttf []byte) (*Metrics, error) {
	face, err := sfnt.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	upem := face.UnitsPerEm()
	if upem == 0 {
		return nil, fmt.Errorf("font %s: invalid unitsPerEm", name)
	}
	m := &Metrics{Name: name, ttf: ttf, face: face, upem: upem, advances: make(map[rune]float64)}
	ppem := fixed.Int26_6(upem << 6)
	if vm, err := face.Metrics(&m.buf, ppem, xfont.HintingNone); err == nil {
		m.Ascent = m.scale(vm.Ascent)
		m.Descent = -m.scale(vm.Descent)
		m.CapHeight = m.scale(vm.CapHeight)
		if m.CapHeight == 0 {
			m.CapHeight = m.Ascent
		}
	}
	if b, err := face.Bounds(&m.buf, ppem, xfont.HintingNone); err == nil {
		// sfnt bounds are y-down.
		m.BBox = [4]float64{
			math.Round(m.scale(b.Min.X)), math.Round(-m.scale(b.Max.Y)),
			math.Round(m.scale(b.Max.X)), math.Round(-m.scale(b.Min.Y)),
		}
	}
	if post := face.PostTable(); post != nil {
		m.ItalicAngle = post.ItalicAngle
	}
	m.Ascent, m.Descent, m.CapHeight = math.Round(m.Ascent), math.Round(m.Descent), math.Round(m.CapHeight)
	return m, nil
}

func (m *Metrics) scale(v fixed.Int26_6) float64 {
	return float64(v) * 1000.0 / (64.0 * float64(m.upem))
}

// Advance returns the advance of r. Runes missing from the face use the
// advance of the notdef glyph.
func (m *Metrics) Advance(r rune) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.advances[r]; ok {
		return w
	}
	ppem := fixed.Int26_6(m.upem << 6)
	idx, err := m.face.GlyphIndex(&m.buf, r)
	if err != nil {
		idx = 0
	}
	adv, err := m.face.GlyphAdvance(&m.buf, idx, ppem, xfont.HintingNone)
	w := 0.0
	if err == nil {
		w = math.Round(m.scale(adv))
	}
	m.advances[r] = w
	return w
}

var (
	builtinMu      sync.Mutex
	builtinMetrics = make(map[string]*Metrics)
)

// BuiltinMetrics returns the metric table for a built-in name.
func BuiltinMetrics(name string) (*Metrics, bool) {
	ttf, ok := metricFaces[name]
	if !ok {
		return nil, false
	}
	builtinMu.Lock()
	defer builtinMu.Unlock()
	if m, ok := builtinMetrics[name]; ok {
		return m, true
	}
	m, err := parseMetrics(name, ttf)
	if err != nil {
		return nil, false
	}
	builtinMetrics[name] = m
	return m, true
}
