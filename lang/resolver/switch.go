package resolver

import (
	"fmt"
	"unicode"

	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/token"
)

// SwitchStrategy classifies how lang/compiler should emit a switch's case
// dispatch (§4.3 item 6, §4.5 "Switch execution").
type SwitchStrategy uint8

const (
	// Sequential is the fallback: cases are tested in source order, needed
	// whenever any case has a guard, a destructuring/type pattern, or a
	// non-literal pattern.
	Sequential SwitchStrategy = iota
	// BinarySearch means every case is a single literal pattern that can be
	// sorted once and probed in O(log n).
	BinarySearch
	// JumpTable means every case is a single int literal pattern whose
	// values are dense enough for an O(1) indexed jump table.
	JumpTable
)

func (s SwitchStrategy) String() string {
	switch s {
	case BinarySearch:
		return "binary-search"
	case JumpTable:
		return "jump-table"
	default:
		return "sequential"
	}
}

// switchNode resolves one switch's subject and case arms, binds any
// destructuring pattern variables scoped to their arm, and records a
// SwitchStrategy hint for the compiler. It is called identically for the
// statement and expression forms of switch (*ast.Switch implements both).
func (r *resolver) switchNode(sw *ast.Switch) {
	r.expr(sw.Subject)

	seenDefault := false
	var seenKeys []string
	var intVals []int64
	allSingleLiteral := true

	for ci := range sw.Cases {
		c := &sw.Cases[ci]
		if len(c.Patterns) == 0 {
			// validation rule (§4.3 item 8): a switch may have at most one
			// default arm, and it must be last — anything after it is
			// unreachable.
			if seenDefault {
				r.errorf(c.Pos, "switch: multiple default cases")
			}
			seenDefault = true
		} else if seenDefault {
			r.errorf(c.Pos, "switch: unreachable case after default")
		}

		r.push(&block{fn: r.env.fn})
		singleLiteral := len(c.Patterns) == 1 && c.Guard == nil
		var caseLit *ast.Literal
		for _, p := range c.Patterns {
			lit, isLit := r.resolvePattern(p)
			if !isLit {
				singleLiteral = false
				continue
			}
			caseLit = lit
			key := literalKey(lit)
			for _, seen := range seenKeys {
				if seen == key {
					// validation rule (§4.3 item 8): a literal value
					// already matched by an earlier case can never be
					// reached by this one.
					r.errorf(c.Pos, "switch: unreachable case, value already matched")
					break
				}
			}
			seenKeys = append(seenKeys, key)
		}
		if c.Guard != nil {
			r.expr(c.Guard)
			singleLiteral = false
		}
		if singleLiteral && caseLit != nil && caseLit.Kind == token.INT_LIT {
			intVals = append(intVals, caseLit.Int)
		}
		allSingleLiteral = allSingleLiteral && (len(c.Patterns) == 0 || singleLiteral)
		r.stmt(c.Body)
		r.pop()
	}

	strategy := Sequential
	if allSingleLiteral && len(seenKeys) > 0 {
		strategy = BinarySearch
		if len(intVals) == len(seenKeys) {
			lo, hi := intVals[0], intVals[0]
			for _, v := range intVals {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			span := hi - lo + 1
			// Only worth a dense jump table when the case values aren't too
			// sparse relative to the table size it would require.
			if span > 0 && span <= int64(len(intVals))*4 {
				strategy = JumpTable
			}
		}
	}
	r.info.SwitchHints[sw] = strategy
}

// resolvePattern resolves one switch-case pattern (§4.5 "Switch execution":
// literal, binding variable, wildcard, type, or destructuring list/map
// pattern). It returns the pattern's Literal and true only when the whole
// pattern is a single bare literal, the shape eligible for the binary-search
// or jump-table strategies.
func (r *resolver) resolvePattern(p ast.Expr) (*ast.Literal, bool) {
	switch p := p.(type) {
	case *ast.Literal:
		return p, true

	case *ast.Identifier:
		_, isClass := r.info.Classes[p.Name]
		switch {
		case p.Name == "_" || p.Name == "*":
			// wildcard: matches anything, binds nothing
		case isBuiltinType(p.Name), isClass:
			// bare type-pattern, e.g. "case String:" or a user class (§3.5)
		case isLowerFirst(p.Name):
			// destructuring binding variable, scoped to this arm only
			r.bindIdent(p, false)
		default:
			r.use(p)
		}

	case *ast.ListLit:
		for _, el := range p.Elems {
			r.resolvePattern(el)
		}

	case *ast.MapLit:
		for _, ent := range p.Entries {
			if ent.Key != nil {
				r.expr(ent.Key)
			}
			r.resolvePattern(ent.Value)
		}

	default:
		r.expr(p)
	}
	return nil, false
}

func isLowerFirst(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsLower(r)
}

// literalKey builds a comparison key for duplicate/unreachable-case
// detection; distinct literal kinds never collide even when their textual
// form might (e.g. 1 vs "1").
func literalKey(lit *ast.Literal) string {
	switch lit.Kind {
	case token.STRING_LIT:
		return "s:" + lit.Str
	case token.TRUE:
		return "b:true"
	case token.FALSE:
		return "b:false"
	case token.NULL:
		return "n"
	case token.INT_LIT, token.LONG_LIT:
		return fmt.Sprintf("i:%d", lit.Int)
	case token.DOUBLE_LIT:
		return fmt.Sprintf("f:%v", lit.Float)
	default:
		return fmt.Sprintf("r:%s", lit.Raw)
	}
}
