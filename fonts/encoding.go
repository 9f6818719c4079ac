package fonts

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfedit/ir/semantic"
)

// Glyph is one decoded character code of a shown string.
type Glyph struct {
	Code  int
	Len   int     // bytes consumed
	Text  string  // Unicode text, "" when unknown
	Width float64 // glyph space (1/1000 em)
}

// fallback resolves metric tables for fonts that carry no widths.
var fallback = NewResolver()

// IsComposite reports whether f uses multi-byte codes.
func IsComposite(f *semantic.Font) bool { return f != nil && f.Subtype == "Type0" }

// Decode splits a shown string into glyphs with text and widths.
func Decode(f *semantic.Font, data []byte) []Glyph {
	if f == nil {
		f = &semantic.Font{Subtype: "Type1", BaseFont: DefaultFont, Encoding: "WinAnsiEncoding"}
	}
	var out []Glyph
	if IsComposite(f) {
		for i := 0; i < len(data); i += 2 {
			code := int(data[i])
			n := 1
			if i+1 < len(data) {
				code = code<<8 | int(data[i+1])
				n = 2
			}
			out = append(out, Glyph{Code: code, Len: n, Text: unicodeFor(f, code), Width: Width(f, code)})
		}
		return out
	}
	for _, b := range data {
		code := int(b)
		out = append(out, Glyph{Code: code, Len: 1, Text: unicodeFor(f, code), Width: Width(f, code)})
	}
	return out
}

func unicodeFor(f *semantic.Font, code int) string {
	if rs, ok := f.ToUnicode[code]; ok {
		return string(rs)
	}
	if IsComposite(f) {
		if strings.Contains(f.Encoding, "UCS2") || strings.Contains(f.Encoding, "UTF16") {
			return string(rune(code))
		}
		return ""
	}
	if name, ok := f.Differences[code]; ok {
		if s, ok := glyphNameText(name); ok {
			return s
		}
	}
	r := baseDecode(f, byte(code))
	if r == unicode.ReplacementChar {
		return ""
	}
	return string(r)
}

func baseDecode(f *semantic.Font, b byte) rune {
	switch f.Encoding {
	case "MacRomanEncoding":
		return charmap.Macintosh.DecodeByte(b)
	case "WinAnsiEncoding", "StandardEncoding", "":
		if f.Encoding == "" && (f.BaseFont == "Symbol" || f.BaseFont == "ZapfDingbats") {
			return rune(b)
		}
		return charmap.Windows1252.DecodeByte(b)
	}
	return charmap.Windows1252.DecodeByte(b)
}

// Width returns the advance of code in glyph space.
func Width(f *semantic.Font, code int) float64 {
	if w, ok := f.Widths[code]; ok {
		return w
	}
	if IsComposite(f) {
		if f.DefaultWidth > 0 {
			return f.DefaultWidth
		}
		return 1000
	}
	m := fallback.Metrics(fallback.Resolve(f.BaseFont))
	r := baseDecode(f, byte(code))
	if name, ok := f.Differences[code]; ok {
		if s, ok := glyphNameText(name); ok && len([]rune(s)) == 1 {
			r = []rune(s)[0]
		}
	}
	return m.Advance(r)
}

// Encode converts text to codes of f. Runes f cannot encode are replaced
// by '?' and returned.
func Encode(f *semantic.Font, text string) ([]byte, []rune) {
	var out []byte
	var missing []rune
	if IsComposite(f) {
		ucs2 := strings.Contains(f.Encoding, "UCS2")
		reverse := reverseToUnicode(f)
		for _, r := range text {
			if code, ok := reverse[r]; ok {
				out = append(out, byte(code>>8), byte(code))
				continue
			}
			if ucs2 && r <= 0xFFFF {
				out = append(out, byte(r>>8), byte(r))
				continue
			}
			missing = append(missing, r)
			if ucs2 {
				out = append(out, 0, '?')
			}
		}
		return out, missing
	}
	var reverse map[rune]int
	if f.Raw != nil && (len(f.Differences) > 0 || (f.Encoding != "" && f.Encoding != "WinAnsiEncoding")) {
		reverse = reverseToUnicode(f)
	}
	for _, r := range text {
		if code, ok := reverse[r]; ok && code < 256 {
			out = append(out, byte(code))
			continue
		}
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		missing = append(missing, r)
		out = append(out, '?')
	}
	return out, missing
}

func reverseToUnicode(f *semantic.Font) map[rune]int {
	out := make(map[rune]int, len(f.ToUnicode))
	for code, rs := range f.ToUnicode {
		if len(rs) != 1 {
			continue
		}
		if prev, ok := out[rs[0]]; !ok || code < prev {
			out[rs[0]] = code
		}
	}
	return out
}

// TextWidth is the advance of text in f at size, in points.
func TextWidth(f *semantic.Font, text string, size float64) float64 {
	data, _ := Encode(f, text)
	total := 0.0
	for _, g := range Decode(f, data) {
		total += g.Width
	}
	return total * size / 1000
}

// CanEncode reports whether every rune of text has a code in f.
func CanEncode(f *semantic.Font, text string) bool {
	_, missing := Encode(f, text)
	return len(missing) == 0
}

var glyphNames = map[string]string{
	"space": " ", "exclam": "!", "quotedbl": "\"", "numbersign": "#", "dollar": "$",
	"percent": "%", "ampersand": "&", "quotesingle": "'", "quoteright": "’", "quoteleft": "‘",
	"parenleft": "(", "parenright": ")", "asterisk": "*", "plus": "+", "comma": ",",
	"hyphen": "-", "minus": "−", "period": ".", "slash": "/", "colon": ":", "semicolon": ";",
	"less": "<", "equal": "=", "greater": ">", "question": "?", "at": "@",
	"bracketleft": "[", "backslash": "\\", "bracketright": "]", "underscore": "_",
	"braceleft": "{", "bar": "|", "braceright": "}", "asciitilde": "~",
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"fi": "fi", "fl": "fl", "ff": "ff", "ffi": "ffi", "ffl": "ffl",
	"endash": "–", "emdash": "—", "bullet": "•", "ellipsis": "…",
	"quotedblleft": "“", "quotedblright": "”", "copyright": "©", "registered": "®",
	"trademark": "™", "degree": "°", "section": "§", "paragraph": "¶", "Euro": "€",
}

// glyphNameText maps a glyph name to its Unicode text.
func glyphNameText(name string) (string, bool) {
	if s, ok := glyphNames[name]; ok {
		return s, true
	}
	if len(name) == 1 && name[0] < 0x80 {
		return name, true
	}
	for _, prefix := range []string{"uni", "u"} {
		if strings.HasPrefix(name, prefix) && len(name) >= len(prefix)+4 {
			if v, err := strconv.ParseUint(name[len(prefix):len(prefix)+4], 16, 32); err == nil {
				return string(rune(v)), true
			}
		}
	}
	return "", false
}
