// Package optimize tidies pages after editing: it drops the glyph-free
// placeholders left by text clearing, removes state-only groups and merges
// duplicate font resources.
package optimize

import (
	"context"
	"fmt"

	"github.com/wudi/pdfedit/ir/semantic"
)

type Config struct {
	CompactContent  bool
	MergeFonts      bool
	DropUnusedFonts bool
}

// DefaultConfig enables every pass.
func DefaultConfig() Config {
	return Config{CompactContent: true, MergeFonts: true, DropUnusedFonts: true}
}

// Stats counts what a run removed.
type Stats struct {
	OpsRemoved   int
	FontsMerged  int
	FontsDropped int
}

func (s *Stats) add(o Stats) {
	s.OpsRemoved += o.OpsRemoved
	s.FontsMerged += o.FontsMerged
	s.FontsDropped += o.FontsDropped
}

type Optimizer struct {
	config Config
}

func New(config Config) *Optimizer {
	return &Optimizer{config: config}
}

// Optimize runs the configured passes over every page.
func (o *Optimizer) Optimize(ctx context.Context, doc *semantic.Document) (Stats, error) {
	pages := make([]int, len(doc.Pages))
	for i := range pages {
		pages[i] = i
	}
	return o.OptimizePages(ctx, doc, pages)
}

// OptimizePages runs the configured passes over the listed pages only.
func (o *Optimizer) OptimizePages(ctx context.Context, doc *semantic.Document, pages []int) (Stats, error) {
	var total Stats
	for _, i := range pages {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if i < 0 || i >= len(doc.Pages) {
			return total, fmt.Errorf("optimize: page %d out of range", i)
		}
		st, err := o.optimizePage(doc.Pages[i])
		if err != nil {
			return total, fmt.Errorf("optimize page %d: %w", i, err)
		}
		total.add(st)
	}
	return total, nil
}

func (o *Optimizer) optimizePage(page *semantic.Page) (Stats, error) {
	var st Stats
	if o.config.CompactContent {
		var ops []semantic.Operation
		for _, cs := range page.Contents {
			ops = append(ops, cs.Operations...)
		}
		out := Compact(ops)
		if removed := len(ops) - len(out); removed > 0 {
			st.OpsRemoved = removed
			page.Contents = []semantic.ContentStream{{Operations: out}}
		}
	}
	if o.config.MergeFonts {
		n, err := mergeFonts(page)
		if err != nil {
			return st, err
		}
		st.FontsMerged = n
	}
	if o.config.DropUnusedFonts {
		st.FontsDropped = dropUnusedFonts(page)
	}
	return st, nil
}
