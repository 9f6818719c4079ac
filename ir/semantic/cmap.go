package semantic

import (
	"io"
	"unicode/utf16"

	"github.com/wudi/pdfedit/scanner"
)

// ParseToUnicode reads the bfchar and bfrange sections of a ToUnicode
// CMap into a code -> runes table.
func ParseToUnicode(data []byte) map[int][]rune {
	out := make(map[int][]rune)
	s := scanner.New(data, scanner.Config{})
	state := ""
	var pending [][]byte
	for {
		tok, err := s.Next()
		if err == io.EOF || err != nil {
			break
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			switch tok.Str {
			case "beginbfchar", "beginbfrange":
				state = tok.Str[5:]
				pending = pending[:0]
			case "endbfchar", "endbfrange":
				state = ""
			}
		case scanner.TokenString:
			if state == "" {
				continue
			}
			pending = append(pending, tok.Bytes)
			if state == "bfchar" && len(pending) == 2 {
				out[bytesToInt(pending[0])] = decodeUTF16BE(pending[1])
				pending = pending[:0]
			}
			if state == "bfrange" && len(pending) == 3 {
				lo, hi := bytesToInt(pending[0]), bytesToInt(pending[1])
				dst := pending[2]
				for c := lo; c <= hi && c-lo < 0x10000; c++ {
					out[c] = offsetUTF16(dst, c-lo)
				}
				pending = pending[:0]
			}
		case scanner.TokenArray:
			if state != "bfrange" || len(pending) != 2 {
				continue
			}
			lo := bytesToInt(pending[0])
			for i := 0; ; i++ {
				t, err := s.Next()
				if err != nil || (t.Type == scanner.TokenKeyword && t.Str == "]") {
					break
				}
				if t.Type == scanner.TokenString {
					out[lo+i] = decodeUTF16BE(t.Bytes)
				}
			}
			pending = pending[:0]
		}
	}
	return out
}

func bytesToInt(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// offsetUTF16 adds delta to the last code unit of a UTF-16BE destination.
func offsetUTF16(dst []byte, delta int) []rune {
	if len(dst) < 2 {
		return []rune{rune(bytesToInt(dst) + delta)}
	}
	cp := append([]byte(nil), dst...)
	last := int(cp[len(cp)-2])<<8 | int(cp[len(cp)-1])
	last += delta
	cp[len(cp)-2] = byte(last >> 8)
	cp[len(cp)-1] = byte(last)
	return decodeUTF16BE(cp)
}

func decodeUTF16BE(b []byte) []rune {
	if len(b)%2 == 1 {
		b = append([]byte{0}, b...)
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return utf16.Decode(units)
}
