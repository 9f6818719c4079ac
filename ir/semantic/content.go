package semantic

import (
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfedit/scanner"
)

// ParseContent tokenizes a decoded content stream into operations.
func ParseContent(data []byte) ([]Operation, error) {
	s := scanner.New(data, scanner.Config{})
	var ops []Operation
	var operands []Operand
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ops, fmt.Errorf("content stream: %w", err)
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			if tok.Str == "BI" {
				op, err := parseInlineImage(s)
				if err != nil {
					return ops, err
				}
				ops = append(ops, op)
				operands = nil
				continue
			}
			ops = append(ops, Operation{Operator: tok.Str, Operands: operands})
			operands = nil
		case scanner.TokenRef:
			// Content streams cannot hold references; "1 0 R" here is a
			// malformed sequence. Keep the numbers.
			operands = append(operands, NumberOperand{Value: float64(tok.Num)}, NumberOperand{Value: float64(tok.Gen)})
		default:
			v, err := operandFromToken(s, tok)
			if err != nil {
				return ops, err
			}
			operands = append(operands, v)
		}
	}
	return ops, nil
}

func operandFromToken(s scanner.Scanner, tok scanner.Token) (Operand, error) {
	switch tok.Type {
	case scanner.TokenNumber:
		return NumberOperand{Value: tok.Number()}, nil
	case scanner.TokenName:
		return NameOperand{Value: tok.Str}, nil
	case scanner.TokenString:
		return StringOperand{Value: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenBoolean:
		return BoolOperand{Value: tok.Bool}, nil
	case scanner.TokenNull:
		return NullOperand{}, nil
	case scanner.TokenArray:
		var arr ArrayOperand
		for {
			t, err := s.Next()
			if err != nil {
				return nil, fmt.Errorf("content array: %w", err)
			}
			if t.Type == scanner.TokenKeyword && t.Str == "]" {
				return arr, nil
			}
			v, err := operandFromToken(s, t)
			if err != nil {
				return nil, err
			}
			arr.Values = append(arr.Values, v)
		}
	case scanner.TokenDict:
		return parseDictOperand(s, ">>")
	}
	return nil, fmt.Errorf("unexpected %v token %q in content stream", tok.Type, tok.Str)
}

func parseDictOperand(s scanner.Scanner, end string) (DictOperand, error) {
	d := DictOperand{Values: make(map[string]Operand)}
	for {
		t, err := s.Next()
		if err != nil {
			return d, fmt.Errorf("content dict: %w", err)
		}
		if t.Type == scanner.TokenKeyword && t.Str == end {
			return d, nil
		}
		if t.Type != scanner.TokenName {
			return d, fmt.Errorf("content dict: expected name, got %v", t.Type)
		}
		vt, err := s.Next()
		if err != nil {
			return d, err
		}
		v, err := operandFromToken(s, vt)
		if err != nil {
			return d, err
		}
		d.Values[t.Str] = v
	}
}

// parseInlineImage reads "BI <params> ID <data> EI"; the scanner turns ID
// into a payload token.
func parseInlineImage(s scanner.Scanner) (Operation, error) {
	img := InlineImageOperand{Params: DictOperand{Values: make(map[string]Operand)}}
	for {
		t, err := s.Next()
		if err != nil {
			return Operation{}, fmt.Errorf("inline image: %w", err)
		}
		if t.Type == scanner.TokenInlineImage {
			img.Data = t.Bytes
			return Operation{Operator: "BI", Operands: []Operand{img}}, nil
		}
		if t.Type != scanner.TokenName {
			return Operation{}, errors.New("inline image: expected parameter name")
		}
		vt, err := s.Next()
		if err != nil {
			return Operation{}, err
		}
		v, err := operandFromToken(s, vt)
		if err != nil {
			return Operation{}, err
		}
		img.Params.Values[t.Str] = v
	}
}

// Number returns the numeric value of op's i-th operand.
func (op Operation) Number(i int) (float64, bool) {
	if i < 0 || i >= len(op.Operands) {
		return 0, false
	}
	n, ok := op.Operands[i].(NumberOperand)
	return n.Value, ok
}

// Numbers returns all operands as numbers, failing if any is not one.
func (op Operation) Numbers() ([]float64, bool) {
	out := make([]float64, len(op.Operands))
	for i := range op.Operands {
		v, ok := op.Number(i)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Op builds an operation from Go values: float64/int become numbers,
// string becomes a name, []byte a string.
func Op(operator string, operands ...any) Operation {
	out := make([]Operand, 0, len(operands))
	for _, v := range operands {
		switch x := v.(type) {
		case float64:
			out = append(out, NumberOperand{Value: x})
		case int:
			out = append(out, NumberOperand{Value: float64(x)})
		case string:
			out = append(out, NameOperand{Value: x})
		case []byte:
			out = append(out, StringOperand{Value: x})
		case Operand:
			out = append(out, x)
		}
	}
	return Operation{Operator: operator, Operands: out}
}
