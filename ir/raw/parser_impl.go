package raw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/wudi/pdfedit/recovery"
	"github.com/wudi/pdfedit/scanner"
)

// Parser converts file bytes into a raw.Document.
type Parser interface {
	Parse(ctx context.Context, data []byte) (*Document, error)
}

// ParserConfig controls raw parsing behavior.
type ParserConfig struct {
	Scanner  scanner.Config
	Recovery recovery.Strategy
}

// NewParser returns a parser that rebuilds the object table by scanning
// the whole file for "n g obj" headers. Cross-reference tables are not
// trusted; later definitions of an object win, which matches incremental
// update semantics.
func NewParser(cfg ParserConfig) Parser {
	if cfg.Scanner.Recovery == nil {
		cfg.Scanner.Recovery = cfg.Recovery
	}
	return &parserImpl{cfg: cfg}
}

type parserImpl struct {
	cfg ParserConfig
}

var versionRe = regexp.MustCompile(`%PDF-(\d\.\d)`)

func (p *parserImpl) Parse(ctx context.Context, data []byte) (*Document, error) {
	doc := NewDocument()
	if m := versionRe.FindSubmatch(data[:min(len(data), 1024)]); m != nil {
		doc.Version = string(m[1])
	}

	s := scanner.New(data, p.cfg.Scanner)
	tr := &tokenReader{s: s}
	var trailers []*DictObj

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if p.skip(ctx, err, recovery.Location{ByteOffset: s.Position(), Component: "raw"}) {
				continue
			}
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			if next, err := tr.next(); err == nil && next.Type == scanner.TokenDict {
				if d, err := parseDict(tr); err == nil {
					trailers = append(trailers, d)
				}
			}
			continue
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			continue
		}
		genTok, err := tr.next()
		if err != nil {
			break
		}
		if genTok.Type != scanner.TokenNumber || !genTok.IsInt {
			tr.unread(genTok)
			continue
		}
		kwTok, err := tr.next()
		if err != nil {
			break
		}
		if kwTok.Type != scanner.TokenKeyword || kwTok.Str != "obj" {
			tr.unread(kwTok)
			tr.unread(genTok)
			continue
		}

		ref := ObjectRef{Num: int(tok.Int), Gen: int(genTok.Int)}
		loc := recovery.Location{ByteOffset: tok.Pos, ObjectNum: ref.Num, ObjectGen: ref.Gen, Component: "raw"}
		s.SetRecoveryLocation(loc)

		obj, err := p.parseIndirect(tr, s)
		if err != nil {
			err = fmt.Errorf("parse object %d %d: %w", ref.Num, ref.Gen, err)
			if !p.skip(ctx, err, loc) {
				return nil, err
			}
			skipToEndobj(s, data, kwTok.Pos)
			tr.buf = nil
			continue
		}
		doc.Objects[ref] = obj
	}

	for _, t := range trailers {
		for _, k := range t.Keys() {
			doc.Trailer.Set(k, t.KV[k])
		}
	}
	if len(doc.Objects) == 0 {
		return nil, errors.New("no objects found")
	}
	return doc, nil
}

func (p *parserImpl) parseIndirect(tr *tokenReader, s scanner.Scanner) (Object, error) {
	obj, err := parseObject(tr)
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(*DictObj); ok {
		if n, ok := dict.Number("Length"); ok {
			s.SetNextStreamLength(int64(n))
		}
		next, err := tr.next()
		s.SetNextStreamLength(-1)
		if err == nil {
			if next.Type == scanner.TokenStream {
				obj = NewStream(dict, next.Bytes)
			} else {
				tr.unread(next)
			}
		}
	}
	if t, err := tr.next(); err == nil && !(t.Type == scanner.TokenKeyword && t.Str == "endobj") {
		tr.unread(t)
	}
	return obj, nil
}

func (p *parserImpl) skip(ctx context.Context, err error, loc recovery.Location) bool {
	if p.cfg.Recovery == nil {
		return false
	}
	return p.cfg.Recovery.OnError(ctx, err, loc) != recovery.ActionFail
}

func skipToEndobj(s scanner.Scanner, data []byte, from int64) {
	idx := bytes.Index(data[from:], []byte("endobj"))
	if idx < 0 {
		_ = s.Seek(int64(len(data)))
		return
	}
	_ = s.Seek(from + int64(idx) + int64(len("endobj")))
}

// ParseValue parses the first object in data. Object streams use it for
// their embedded objects.
func ParseValue(data []byte, cfg scanner.Config) (Object, error) {
	tr := &tokenReader{s: scanner.New(data, cfg)}
	return parseObject(tr)
}

func parseObject(tr *tokenReader) (Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	return objectFromToken(tr, tok)
}

func objectFromToken(tr *tokenReader, tok scanner.Token) (Object, error) {
	switch tok.Type {
	case scanner.TokenName:
		return NameObj{Val: tok.Str}, nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return NumberInt(tok.Int), nil
		}
		return NumberFloat(tok.Float), nil
	case scanner.TokenBoolean:
		return BoolObj{V: tok.Bool}, nil
	case scanner.TokenNull:
		return NullObj{}, nil
	case scanner.TokenString:
		return StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenArray:
		return parseArray(tr)
	case scanner.TokenDict:
		return parseDict(tr)
	case scanner.TokenRef:
		return Ref(tok.Num, tok.Gen), nil
	}
	return nil, fmt.Errorf("unexpected token %v %q at %d", tok.Type, tok.Str, tok.Pos)
}

func parseArray(tr *tokenReader) (*ArrayObj, error) {
	arr := &ArrayObj{}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "]" {
			return arr, nil
		}
		item, err := objectFromToken(tr, tok)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func parseDict(tr *tokenReader) (*DictObj, error) {
	d := Dict()
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == ">>" {
			return d, nil
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("expected name in dict, got %v at %d", tok.Type, tok.Pos)
		}
		val, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		d.Set(tok.Str, val)
	}
}

type tokenReader struct {
	s   scanner.Scanner
	buf []scanner.Token
}

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) {
	r.buf = append(r.buf, tok)
}
