package filteralgebra

import "github.com/sparqlveil/sparqlveil/pkg/model"

// A contradiction in the merge table is reported as ok == false by
// Combine and the combine helpers below: a query whose filters reduce
// to a contradiction can never be satisfied, and the driver responds
// by dropping the triples that depend on the variable rather than
// emitting an unsatisfiable filter.

// Combine left-folds filters pairwise via combineTwo: "and"/"or"/"not"
// roots are always conjoined rather than pairwise-dispatched;
// otherwise the two scalar comparison operators are looked up in the
// closed table below.
// Combine assumes every filter in filters shares the same free
// variable (the caller, model.Query.AddFilter, only invokes it for
// same-variable candidates).
func Combine(filters []model.Expression) (model.Expression, bool) {
	if len(filters) == 0 {
		return model.Expression{}, true
	}
	acc := filters[0]
	for _, next := range filters[1:] {
		merged, ok := combineTwo(acc, next)
		if !ok {
			return model.Expression{}, false
		}
		acc = merged
	}
	return acc, true
}

func combineTwo(a, b model.Expression) (model.Expression, bool) {
	if !a.Op.IsComparison() || !b.Op.IsComparison() {
		return model.And(a, b), true
	}
	v := a.Var

	// Canonicalize ordering so the pair-dispatch switch below only
	// needs to enumerate each unordered pair once.
	if a.Op > b.Op {
		a, b = b, a
	}

	if a.Op == model.OpEq {
		return combineEqWith(v, a.Const, b)
	}

	switch {
	case a.Op == model.OpNe && b.Op == model.OpNe:
		return combineNeNe(v, a.Const, b.Const)
	case a.Op == model.OpNe && (b.Op == model.OpLt || b.Op == model.OpLe || b.Op == model.OpGt || b.Op == model.OpGe):
		return combineNeBound(v, a.Const, b)
	case b.Op == model.OpNe && (a.Op == model.OpLt || a.Op == model.OpLe || a.Op == model.OpGt || a.Op == model.OpGe):
		return combineNeBound(v, b.Const, a)
	case a.Op == model.OpNe && b.Op == model.OpIn:
		return combineNeIn(v, a.Const, b.List)
	case b.Op == model.OpNe && a.Op == model.OpIn:
		return combineNeIn(v, b.Const, a.List)
	case a.Op == model.OpNe && b.Op == model.OpNotIn:
		return combineNeNotIn(v, a.Const, b.List)
	case b.Op == model.OpNe && a.Op == model.OpNotIn:
		return combineNeNotIn(v, b.Const, a.List)
	case isBoundOp(a.Op) && isBoundOp(b.Op):
		return combineBoundBound(v, a, b)
	case isBoundOp(a.Op) && b.Op == model.OpIn:
		return combineBoundSet(v, a, b.List, true)
	case isBoundOp(b.Op) && a.Op == model.OpIn:
		return combineBoundSet(v, b, a.List, true)
	case isBoundOp(a.Op) && b.Op == model.OpNotIn:
		return combineBoundSet(v, a, b.List, false)
	case isBoundOp(b.Op) && a.Op == model.OpNotIn:
		return combineBoundSet(v, b, a.List, false)
	case a.Op == model.OpIn && b.Op == model.OpIn:
		return combineInIn(v, a.List, b.List)
	case a.Op == model.OpIn && b.Op == model.OpNotIn:
		return combineInNotIn(v, a.List, b.List)
	case b.Op == model.OpIn && a.Op == model.OpNotIn:
		return combineInNotIn(v, b.List, a.List)
	case a.Op == model.OpNotIn && b.Op == model.OpNotIn:
		return combineNotInNotIn(v, a.List, b.List)
	}

	return model.And(a, b), true
}

func isBoundOp(op model.ExprOp) bool {
	return op == model.OpLt || op == model.OpLe || op == model.OpGt || op == model.OpGe
}

// satisfies reports whether value satisfies a single scalar comparison
// filter f (f.Op must not be Eq).
func satisfies(value model.NodeValue, f model.Expression) bool {
	switch f.Op {
	case model.OpNe:
		c, err := compare(value, f.Const)
		return err == nil && c != 0
	case model.OpLt:
		c, err := compare(value, f.Const)
		return err == nil && c < 0
	case model.OpLe:
		c, err := compare(value, f.Const)
		return err == nil && c <= 0
	case model.OpGt:
		c, err := compare(value, f.Const)
		return err == nil && c > 0
	case model.OpGe:
		c, err := compare(value, f.Const)
		return err == nil && c >= 0
	case model.OpIn:
		for _, item := range f.List {
			if value.Equal(item) {
				return true
			}
		}
		return false
	case model.OpNotIn:
		for _, item := range f.List {
			if value.Equal(item) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// combineEqWith resolves Eq(v,val) against any other single-variable
// comparison filter: since Eq already pins the only admissible value,
// the merge either confirms Eq (when val satisfies other) or
// contradicts.
func combineEqWith(v model.Variable, val model.NodeValue, other model.Expression) (model.Expression, bool) {
	if other.Op == model.OpEq {
		if val.Equal(other.Const) {
			return model.Eq(v, val), true
		}
		return model.Expression{}, false
	}
	if satisfies(val, other) {
		return model.Eq(v, val), true
	}
	return model.Expression{}, false
}

func combineNeNe(v model.Variable, a, b model.NodeValue) (model.Expression, bool) {
	if a.Equal(b) {
		return model.Ne(v, a), true
	}
	return model.NotIn(v, []model.NodeValue{a, b}), true
}

// combineNeBound collapses Ne(v,val) with a bound filter when val sits
// exactly on the bound (a closed bound tightens to its strict form, a
// strict bound already excludes val); otherwise the exclusion doesn't
// interact with the bound and both are kept.
func combineNeBound(v model.Variable, val model.NodeValue, bound model.Expression) (model.Expression, bool) {
	eq, err := compare(val, bound.Const)
	if err != nil || eq != 0 {
		return model.And(model.Ne(v, val), bound), true
	}
	switch bound.Op {
	case model.OpGe:
		return model.Gt(v, val), true
	case model.OpLe:
		return model.Lt(v, val), true
	case model.OpGt, model.OpLt:
		return bound, true
	}
	return model.And(model.Ne(v, val), bound), true
}

func combineNeIn(v model.Variable, val model.NodeValue, list []model.NodeValue) (model.Expression, bool) {
	filtered := make([]model.NodeValue, 0, len(list))
	for _, item := range list {
		if !item.Equal(val) {
			filtered = append(filtered, item)
		}
	}
	return collapseList(v, model.OpIn, filtered)
}

func combineNeNotIn(v model.Variable, val model.NodeValue, list []model.NodeValue) (model.Expression, bool) {
	for _, item := range list {
		if item.Equal(val) {
			return model.NotIn(v, list), true
		}
	}
	return model.NotIn(v, append(append([]model.NodeValue(nil), list...), val)), true
}

// combineBoundBound tightens two bound filters on the same variable.
// Same-direction bounds collapse to the tighter single bound;
// opposite-direction bounds form a range, collapsing to Eq when the
// range is a single closed point, to a contradiction (ok == false)
// when it's empty, and to a
// conjunction of both otherwise.
func combineBoundBound(v model.Variable, a, b model.Expression) (model.Expression, bool) {
	aUpper := a.Op == model.OpLt || a.Op == model.OpLe
	bUpper := b.Op == model.OpLt || b.Op == model.OpLe
	if aUpper == bUpper {
		if aUpper {
			return tighterUpper(v, a, b), true
		}
		return tighterLower(v, a, b), true
	}
	lower, upper := a, b
	if aUpper {
		lower, upper = b, a
	}
	c, err := compare(lower.Const, upper.Const)
	if err != nil {
		return model.Expression{}, false
	}
	lowerClosed := lower.Op == model.OpGe
	upperClosed := upper.Op == model.OpLe
	switch {
	case c < 0:
		return model.And(lower, upper), true
	case c == 0 && lowerClosed && upperClosed:
		return model.Eq(v, lower.Const), true
	default:
		return model.Expression{}, false
	}
}

func tighterUpper(v model.Variable, a, b model.Expression) model.Expression {
	c, err := compare(a.Const, b.Const)
	if err != nil {
		return model.And(a, b)
	}
	switch {
	case c < 0:
		return a
	case c > 0:
		return b
	default:
		if a.Op == model.OpLt || b.Op == model.OpLt {
			return model.Lt(v, a.Const)
		}
		return model.Le(v, a.Const)
	}
}

func tighterLower(v model.Variable, a, b model.Expression) model.Expression {
	c, err := compare(a.Const, b.Const)
	if err != nil {
		return model.And(a, b)
	}
	switch {
	case c > 0:
		return a
	case c < 0:
		return b
	default:
		if a.Op == model.OpGt || b.Op == model.OpGt {
			return model.Gt(v, a.Const)
		}
		return model.Ge(v, a.Const)
	}
}

// combineBoundSet intersects a bound filter with an In/NotIn set. For
// In, only values satisfying the bound survive. For NotIn, values the
// bound already excludes are redundant and dropped from the exclusion
// set; the bound and the reduced exclusion set are then conjoined.
func combineBoundSet(v model.Variable, bound model.Expression, list []model.NodeValue, isIn bool) (model.Expression, bool) {
	if isIn {
		filtered := make([]model.NodeValue, 0, len(list))
		for _, item := range list {
			if satisfies(item, bound) {
				filtered = append(filtered, item)
			}
		}
		return collapseList(v, model.OpIn, filtered)
	}
	filtered := make([]model.NodeValue, 0, len(list))
	for _, item := range list {
		if satisfies(item, bound) {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) == 0 {
		return bound, true
	}
	return model.And(bound, model.NotIn(v, filtered)), true
}

func combineInIn(v model.Variable, a, b []model.NodeValue) (model.Expression, bool) {
	var filtered []model.NodeValue
	for _, item := range a {
		for _, other := range b {
			if item.Equal(other) {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return collapseList(v, model.OpIn, filtered)
}

func combineInNotIn(v model.Variable, in, notIn []model.NodeValue) (model.Expression, bool) {
	var filtered []model.NodeValue
	for _, item := range in {
		excluded := false
		for _, other := range notIn {
			if item.Equal(other) {
				excluded = true
				break
			}
		}
		if !excluded {
			filtered = append(filtered, item)
		}
	}
	return collapseList(v, model.OpIn, filtered)
}

func combineNotInNotIn(v model.Variable, a, b []model.NodeValue) (model.Expression, bool) {
	union := append([]model.NodeValue(nil), a...)
	for _, item := range b {
		dup := false
		for _, existing := range union {
			if existing.Equal(item) {
				dup = true
				break
			}
		}
		if !dup {
			union = append(union, item)
		}
	}
	return model.NotIn(v, union), true
}

// collapseList applies the general In/NotIn collapse rules: an empty
// permitted set contradicts, a singleton collapses to Eq/Ne.
func collapseList(v model.Variable, op model.ExprOp, list []model.NodeValue) (model.Expression, bool) {
	switch len(list) {
	case 0:
		if op == model.OpIn {
			return model.Expression{}, false
		}
		return model.NotIn(v, nil), true
	case 1:
		if op == model.OpIn {
			return model.Eq(v, list[0]), true
		}
		return model.Ne(v, list[0]), true
	default:
		if op == model.OpIn {
			return model.In(v, list), true
		}
		return model.NotIn(v, list), true
	}
}
