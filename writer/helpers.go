package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
)

func rectArray(r semantic.Rectangle) *raw.ArrayObj {
	return raw.NewArray(raw.Number(r.LLX), raw.Number(r.LLY), raw.Number(r.URX), raw.Number(r.URY))
}

func floatArray(vals []float64) *raw.ArrayObj {
	arr := raw.NewArray()
	for _, v := range vals {
		arr.Append(raw.Number(v))
	}
	return arr
}

func normalizeRotation(rot int) int {
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	if rot%90 != 0 {
		return 0
	}
	return rot
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SerializeContent writes operations in content stream syntax.
func SerializeContent(ops []semantic.Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		if op.Operator == "BI" && len(op.Operands) == 1 {
			if img, ok := op.Operands[0].(semantic.InlineImageOperand); ok {
				buf.WriteString("BI")
				for _, k := range sortedKeys(img.Params.Values) {
					buf.WriteString(" /" + escapeName(k) + " ")
					buf.Write(serializeOperand(img.Params.Values[k]))
				}
				buf.WriteString(" ID ")
				buf.Write(img.Data)
				buf.WriteString("\nEI\n")
				continue
			}
		}
		for _, operand := range op.Operands {
			buf.Write(serializeOperand(operand))
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func serializeOperand(op semantic.Operand) []byte {
	switch v := op.(type) {
	case semantic.NumberOperand:
		return []byte(formatNumber(v.Value))
	case semantic.NameOperand:
		return []byte("/" + escapeName(v.Value))
	case semantic.StringOperand:
		if v.Hex {
			return hexString(v.Value)
		}
		return escapeLiteralString(v.Value)
	case semantic.BoolOperand:
		return []byte(strconv.FormatBool(v.Value))
	case semantic.ArrayOperand:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(serializeOperand(it))
		}
		buf.WriteByte(']')
		return buf.Bytes()
	case semantic.DictOperand:
		var buf bytes.Buffer
		buf.WriteString("<<")
		for _, k := range sortedKeys(v.Values) {
			buf.WriteString("/" + escapeName(k) + " ")
			buf.Write(serializeOperand(v.Values[k]))
		}
		buf.WriteString(">>")
		return buf.Bytes()
	}
	return []byte("null")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLiteralString(rawBytes []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range rawBytes {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

func hexString(data []byte) []byte {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, 2*len(data)+2)
	out = append(out, '<')
	for _, c := range data {
		out = append(out, digits[c>>4], digits[c&0xf])
	}
	return append(out, '>')
}

func escapeName(n string) string {
	var b bytes.Buffer
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || c == '/' || c == '(' || c == ')' || c == '<' || c == '>' ||
			c == '[' || c == ']' || c == '{' || c == '}' || c == '%' {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// serializePrimitive writes a direct object. Streams must already have
// been replaced by references.
func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte("/" + escapeName(v.Val))
	case raw.NumberObj:
		if v.IsInt {
			return []byte(strconv.FormatInt(v.I, 10))
		}
		return []byte(formatNumber(v.F))
	case raw.BoolObj:
		return []byte(strconv.FormatBool(v.V))
	case raw.StringObj:
		if v.Hex {
			return hexString(v.Bytes)
		}
		return escapeLiteralString(v.Bytes)
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.R.Num, v.R.Gen))
	case *raw.ArrayObj:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(serializePrimitive(it))
		}
		buf.WriteByte(']')
		return buf.Bytes()
	case *raw.DictObj:
		var buf bytes.Buffer
		buf.WriteString("<<")
		for _, k := range v.Keys() {
			buf.WriteString("/" + escapeName(k) + " ")
			buf.Write(serializePrimitive(v.KV[k]))
		}
		buf.WriteString(">>")
		return buf.Bytes()
	}
	return []byte("null")
}
