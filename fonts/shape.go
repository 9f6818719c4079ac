package fonts

import (
	"bytes"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

var (
	shapeMu    sync.Mutex
	shapeFaces = make(map[*Metrics]*gofont.Face)
)

func shapingFace(m *Metrics) *gofont.Face {
	shapeMu.Lock()
	defer shapeMu.Unlock()
	if f, ok := shapeFaces[m]; ok {
		return f
	}
	face, err := gofont.ParseTTF(bytes.NewReader(m.ttf))
	if err != nil {
		face = nil
	}
	shapeFaces[m] = face
	return face
}

// Measure returns the shaped advance of text set in the resolved font name
// at size, in points. Kerning and ligatures are applied when the metric
// face provides them.
func (r *Resolver) Measure(text, name string, size float64) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	if name == CJKFont {
		return float64(len(runes)) * size
	}
	m := r.Metrics(name)
	face := shapingFace(m)
	if face == nil {
		total := 0.0
		for _, ru := range runes {
			total += m.Advance(ru)
		}
		return total * size / 1000
	}

	script := DetectScript(runes)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	}
	shapeMu.Lock()
	out := (&shaping.HarfbuzzShaper{}).Shape(input)
	shapeMu.Unlock()

	total := 0.0
	for _, g := range out.Glyphs {
		total += float64(g.XAdvance) / 64.0
	}
	return total * size / 1000
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// DetectScript returns the dominant script of runes. Ties keep the script
// seen first.
func DetectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			best = script
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Thai, r):
		return language.Thai
	case unicode.Is(unicode.Devanagari, r):
		return language.Devanagari
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	}
	return language.Unknown
}

// ContainsCJK reports whether text has Han, kana, Hangul or CJK
// punctuation code points.
func ContainsCJK(text string) bool {
	for _, r := range text {
		switch scriptFromRune(r) {
		case language.Han, language.Hiragana, language.Katakana, language.Hangul:
			return true
		}
		if (r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF) {
			return true
		}
	}
	return false
}
