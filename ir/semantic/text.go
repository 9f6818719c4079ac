package semantic

import "unicode/utf16"

// DecodeTextString decodes a PDF text string: UTF-16BE with a byte order
// mark, otherwise PDFDocEncoding, read here as Latin-1.
func DecodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return string(decodeUTF16BE(b[2:]))
	}
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}

// EncodeTextString is the inverse of DecodeTextString, choosing UTF-16BE
// only when the text leaves Latin-1.
func EncodeTextString(s string) []byte {
	latin := true
	for _, r := range s {
		if r > 0xFF {
			latin = false
			break
		}
	}
	if latin {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out
	}
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2, 2+2*len(units))
	out[0], out[1] = 0xFE, 0xFF
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return out
}
