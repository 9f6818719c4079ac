package optimize

import (
	"sort"

	"github.com/wudi/pdfedit/ir/semantic"
)

// mergeFonts points every Tf at one resource per distinct font and drops
// the duplicates. The lowest key of each group is kept.
func mergeFonts(page *semantic.Page) (int, error) {
	if page.Resources == nil || len(page.Resources.Fonts) < 2 {
		return 0, nil
	}
	keys := make([]string, 0, len(page.Resources.Fonts))
	for k := range page.Resources.Fonts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	canonical := make(map[string]string)
	rename := make(map[string]string)
	for _, k := range keys {
		fp, err := fontKey(page.Resources.Fonts[k])
		if err != nil {
			return 0, err
		}
		if first, ok := canonical[fp]; ok {
			rename[k] = first
			continue
		}
		canonical[fp] = k
	}
	if len(rename) == 0 {
		return 0, nil
	}
	for ci := range page.Contents {
		ops := page.Contents[ci].Operations
		for i, op := range ops {
			if op.Operator != "Tf" || len(op.Operands) == 0 {
				continue
			}
			name, ok := op.Operands[0].(semantic.NameOperand)
			if !ok {
				continue
			}
			if to, ok := rename[name.Value]; ok {
				operands := append([]semantic.Operand(nil), op.Operands...)
				operands[0] = semantic.NameOperand{Value: to}
				ops[i] = semantic.Operation{Operator: "Tf", Operands: operands}
			}
		}
	}
	for k := range rename {
		delete(page.Resources.Fonts, k)
	}
	return len(rename), nil
}

// dropUnusedFonts removes font resources no Tf names. Pages with XObjects
// are left alone since forms may inherit the page resources.
func dropUnusedFonts(page *semantic.Page) int {
	if page.Resources == nil || len(page.Resources.Fonts) == 0 || len(page.Resources.Other["XObject"]) > 0 {
		return 0
	}
	used := make(map[string]bool)
	for _, cs := range page.Contents {
		for _, op := range cs.Operations {
			if op.Operator != "Tf" || len(op.Operands) == 0 {
				continue
			}
			if name, ok := op.Operands[0].(semantic.NameOperand); ok {
				used[name.Value] = true
			}
		}
	}
	n := 0
	for k := range page.Resources.Fonts {
		if !used[k] {
			delete(page.Resources.Fonts, k)
			n++
		}
	}
	return n
}
