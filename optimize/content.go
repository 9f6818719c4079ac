package optimize

import "github.com/wudi/pdfedit/ir/semantic"

// positioning ops reset the current point from the line matrix.
var positioning = map[string]bool{"Td": true, "TD": true, "Tm": true, "T*": true, "'": true, `"`: true}

var shows = map[string]bool{"Tj": true, "TJ": true, "'": true, `"`: true}

// stateOnly ops change graphics or text state without painting.
var stateOnly = map[string]bool{
	"BT": true, "ET": true, "Td": true, "TD": true, "Tm": true, "T*": true,
	"Tf": true, "Tc": true, "Tw": true, "Tz": true, "TL": true, "Ts": true, "Tr": true,
	"g": true, "G": true, "rg": true, "RG": true, "k": true, "K": true,
	"cs": true, "CS": true, "sc": true, "SC": true, "scn": true, "SCN": true,
	"cm": true, "gs": true, "w": true, "J": true, "j": true, "M": true, "d": true, "ri": true, "i": true,
}

// Compact removes placeholders nothing depends on, text objects that only
// position, and q..Q groups that only set state.
func Compact(ops []semantic.Operation) []semantic.Operation {
	return dropStateGroups(dropEmptyText(dropPlaceholders(ops)))
}

// IsPlaceholder reports whether op shows no glyphs: a Tj or TJ with empty
// strings and at most kerning numbers.
func IsPlaceholder(op semantic.Operation) bool {
	if op.Operator != "Tj" && op.Operator != "TJ" || len(op.Operands) != 1 {
		return false
	}
	switch v := op.Operands[0].(type) {
	case semantic.StringOperand:
		return len(v.Value) == 0
	case semantic.ArrayOperand:
		for _, it := range v.Values {
			switch x := it.(type) {
			case semantic.NumberOperand:
			case semantic.StringOperand:
				if len(x.Value) > 0 {
					return false
				}
			default:
				return false
			}
		}
		return true
	}
	return false
}

// dropPlaceholders removes a placeholder when the next op that cares about
// the current point repositions it, or the text object ends first.
func dropPlaceholders(ops []semantic.Operation) []semantic.Operation {
	out := make([]semantic.Operation, 0, len(ops))
	for i, op := range ops {
		if IsPlaceholder(op) && advanceUnused(ops[i+1:]) {
			continue
		}
		out = append(out, op)
	}
	return out
}

func advanceUnused(rest []semantic.Operation) bool {
	for _, op := range rest {
		switch {
		case op.Operator == "ET" || positioning[op.Operator]:
			return true
		case shows[op.Operator] && !IsPlaceholder(op):
			return false
		}
	}
	return true
}

// dropEmptyText removes BT..ET objects whose body only positions.
func dropEmptyText(ops []semantic.Operation) []semantic.Operation {
	out := make([]semantic.Operation, 0, len(ops))
	start, pure := -1, false
	for _, op := range ops {
		switch {
		case op.Operator == "BT":
			start, pure = len(out), true
		case op.Operator == "ET" && start >= 0:
			if pure {
				out = out[:start]
				start = -1
				continue
			}
			start = -1
		case start >= 0 && !positioning[op.Operator]:
			pure = false
		}
		out = append(out, op)
	}
	return out
}

// dropStateGroups removes q..Q groups, innermost first, whose content
// cannot paint anything. Q restores everything they set.
func dropStateGroups(ops []semantic.Operation) []semantic.Operation {
	type level struct {
		start int
		pure  bool
	}
	out := make([]semantic.Operation, 0, len(ops))
	var stack []level
	taint := func() {
		if n := len(stack); n > 0 {
			stack[n-1].pure = false
		}
	}
	for _, op := range ops {
		switch op.Operator {
		case "q":
			stack = append(stack, level{start: len(out), pure: true})
		case "Q":
			if len(stack) == 0 {
				break
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.pure {
				out = out[:top.start]
				continue
			}
			taint()
		default:
			if !stateOnly[op.Operator] {
				taint()
			}
		}
		out = append(out, op)
	}
	return out
}
