// Package parser loads PDF bytes into the raw and semantic models.
package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/h2non/filetype"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/recovery"
	"github.com/wudi/pdfedit/scanner"
)

// ErrNotPDF is returned for input that does not carry a PDF signature.
var ErrNotPDF = errors.New("input is not a PDF document")

// ErrEncrypted is returned for documents with an Encrypt dictionary.
var ErrEncrypted = errors.New("encrypted documents are not supported")

// Config controls document parsing.
type Config struct {
	Recovery recovery.Strategy
	Scanner  scanner.Config
	Limits   filters.Limits
}

// DocumentParser builds documents from complete in-memory files.
type DocumentParser struct {
	cfg  Config
	pipe *filters.Pipeline
}

func NewDocumentParser(cfg Config) *DocumentParser {
	return &DocumentParser{cfg: cfg, pipe: filters.Default(cfg.Limits)}
}

// Sniff checks the file signature.
func Sniff(data []byte) error {
	if !filetype.Is(data, "pdf") {
		return ErrNotPDF
	}
	return nil
}

// Parse returns the raw object graph with object streams expanded.
func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	if err := Sniff(data); err != nil {
		return nil, err
	}
	doc, err := raw.NewParser(raw.ParserConfig{Scanner: p.cfg.Scanner, Recovery: p.cfg.Recovery}).Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("scan objects: %w", err)
	}
	if _, ok := doc.Trailer.Get("Encrypt"); ok {
		return nil, ErrEncrypted
	}
	if err := p.expandObjectStreams(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Load parses data and builds the semantic document.
func (p *DocumentParser) Load(ctx context.Context, data []byte) (*semantic.Document, error) {
	rawDoc, err := p.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	doc, err := semantic.NewBuilder(rawDoc, p.pipe).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}
	return doc, nil
}

// Load is a convenience wrapper using the default configuration.
func Load(ctx context.Context, data []byte) (*semantic.Document, error) {
	return NewDocumentParser(Config{}).Load(ctx, data)
}

// expandObjectStreams adds objects stored inside /Type /ObjStm streams.
// Objects found directly in the file take precedence.
func (p *DocumentParser) expandObjectStreams(ctx context.Context, doc *raw.Document) error {
	for _, ref := range doc.Refs() {
		s, ok := doc.Objects[ref].(*raw.StreamObj)
		if !ok {
			continue
		}
		if t, _ := s.Dict.Name("Type"); t != "ObjStm" {
			continue
		}
		data := s.Data
		if names, params := filters.ExtractFilters(s.Dict); len(names) > 0 {
			var err error
			data, err = p.pipe.Decode(ctx, s.Data, names, params)
			if err != nil {
				if p.skip(ctx, err, ref) {
					continue
				}
				return fmt.Errorf("object stream %s: %w", ref, err)
			}
		}
		n, _ := s.Dict.Number("N")
		first, _ := s.Dict.Number("First")
		if int(first) > len(data) {
			continue
		}
		pairs, err := headerPairs(data[:int(first)], int(n))
		if err != nil {
			if p.skip(ctx, err, ref) {
				continue
			}
			return fmt.Errorf("object stream %s: %w", ref, err)
		}
		for _, pair := range pairs {
			off := int(first) + pair[1]
			if off < 0 || off >= len(data) {
				continue
			}
			key := raw.ObjectRef{Num: pair[0]}
			if _, exists := doc.Objects[key]; exists {
				continue
			}
			obj, err := raw.ParseValue(data[off:], p.cfg.Scanner)
			if err != nil {
				if p.skip(ctx, err, key) {
					continue
				}
				return fmt.Errorf("object %s in stream %s: %w", key, ref, err)
			}
			doc.Objects[key] = obj
		}
	}
	return nil
}

// headerPairs reads the "objnum offset" pairs of an object stream.
func headerPairs(header []byte, n int) ([][2]int, error) {
	s := scanner.New(header, scanner.Config{})
	out := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		a, err := s.Next()
		if err != nil {
			return nil, fmt.Errorf("object stream header: %w", err)
		}
		b, err := s.Next()
		if err != nil {
			return nil, fmt.Errorf("object stream header: %w", err)
		}
		if !a.IsInt || !b.IsInt {
			return nil, errors.New("object stream header: expected integers")
		}
		out = append(out, [2]int{int(a.Int), int(b.Int)})
	}
	return out, nil
}

func (p *DocumentParser) skip(ctx context.Context, err error, ref raw.ObjectRef) bool {
	if p.cfg.Recovery == nil {
		return false
	}
	return p.cfg.Recovery.OnError(ctx, err, recovery.Location{ObjectNum: ref.Num, ObjectGen: ref.Gen, Component: "objstm"}) != recovery.ActionFail
}
