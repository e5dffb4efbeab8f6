package model

// ProjectionTerm is one entry of the SELECT list. Expr is non-nil for
// a compound projected expression (an aggregate or function over one
// or more variables); for a bare projected variable, Expr is nil and
// Var names it directly.
type ProjectionTerm struct {
	Var  Variable
	Expr *Expression
}

// mentions reports whether the term refers to v, either directly or
// through its compound expression.
func (p ProjectionTerm) mentions(v Variable) bool {
	if p.Expr == nil {
		return p.Var == v
	}
	for _, fv := range p.Expr.FreeVars() {
		if fv == v {
			return true
		}
	}
	return false
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Var        Variable
	Descending bool
}

// TypeBindings holds the candidate rdf:type sets inferred for each
// live variable and constant URI, and the candidate predicate-URI sets
// inferred for each predicate variable.
type TypeBindings struct {
	VarTypes          map[Variable][]IRI
	URITypes          map[IRI][]IRI
	PredicateVarTypes map[Variable][]IRI
}

// NewTypeBindings returns an empty TypeBindings.
func NewTypeBindings() *TypeBindings {
	return &TypeBindings{
		VarTypes:          map[Variable][]IRI{},
		URITypes:          map[IRI][]IRI{},
		PredicateVarTypes: map[Variable][]IRI{},
	}
}

// Query is the mutable owner of a rewritten SPARQL query body. All
// structural mutation happens through its methods, which maintain the
// well-formedness invariants: projection only names live variables,
// filters' free variables all appear in the remaining triples, and
// TypeBindings are restricted to live variables/URIs.
type Query struct {
	Projection []ProjectionTerm
	Distinct   bool
	Triples    []Triple
	Filters    []Expression
	GroupBy    []Variable
	Having     []Expression
	OrderBy    []OrderTerm
	Limit      *int
	Offset     *int
	Bindings   *TypeBindings
}

// Combine is the Filter Algebra's merge operation, injected by callers
// (the Rewrite Driver) so that Query has no import dependency on
// pkg/filteralgebra. ok is false when the filters are contradictory
// (the merge table's bottom).
type Combine func(filters []Expression) (merged Expression, ok bool)

// Clone deep-copies q for the Rewrite Driver's before/after diagnostics.
func (q *Query) Clone() *Query {
	clone := &Query{
		Distinct: q.Distinct,
		Triples:  append([]Triple(nil), q.Triples...),
		Filters:  append([]Expression(nil), q.Filters...),
		GroupBy:  append([]Variable(nil), q.GroupBy...),
		Having:   append([]Expression(nil), q.Having...),
		OrderBy:  append([]OrderTerm(nil), q.OrderBy...),
	}
	clone.Projection = append([]ProjectionTerm(nil), q.Projection...)
	if q.Limit != nil {
		l := *q.Limit
		clone.Limit = &l
	}
	if q.Offset != nil {
		o := *q.Offset
		clone.Offset = &o
	}
	if q.Bindings != nil {
		b := NewTypeBindings()
		for k, v := range q.Bindings.VarTypes {
			b.VarTypes[k] = append([]IRI(nil), v...)
		}
		for k, v := range q.Bindings.URITypes {
			b.URITypes[k] = append([]IRI(nil), v...)
		}
		for k, v := range q.Bindings.PredicateVarTypes {
			b.PredicateVarTypes[k] = append([]IRI(nil), v...)
		}
		clone.Bindings = b
	}
	return clone
}

// StructurallyEqual reports whether q and other have the same
// triples/filters/projection (modulo filter order within the set),
// used by the rewrite driver's "no constraints applied" diagnostic.
func (q *Query) StructurallyEqual(other *Query) bool {
	if len(q.Triples) != len(other.Triples) || len(q.Filters) != len(other.Filters) ||
		len(q.Projection) != len(other.Projection) {
		return false
	}
	for i := range q.Triples {
		if !q.Triples[i].Equal(other.Triples[i]) {
			return false
		}
	}
	for i := range q.Projection {
		a, b := q.Projection[i], other.Projection[i]
		if a.Var != b.Var || (a.Expr == nil) != (b.Expr == nil) {
			return false
		}
		if a.Expr != nil && !a.Expr.StructurallyEqual(*b.Expr) {
			return false
		}
	}
	used := make([]bool, len(other.Filters))
	for _, f := range q.Filters {
		found := false
		for i, g := range other.Filters {
			if used[i] {
				continue
			}
			if f.StructurallyEqual(g) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// triplesMentioning returns the triples of q that mention n.
func (q *Query) triplesMentioning(n NodeID) []Triple {
	var out []Triple
	for _, t := range q.Triples {
		if t.Mentions(n) {
			out = append(out, t)
		}
	}
	return out
}

// liveVars returns the set of variables appearing in any remaining
// triple.
func (q *Query) liveVars() map[Variable]bool {
	live := map[Variable]bool{}
	for _, t := range q.Triples {
		for _, n := range []NodeID{t.Subject, t.Predicate, t.Object} {
			if v, ok := n.(Variable); ok {
				live[v] = true
			}
		}
	}
	return live
}

// RemoveTriple drops t (by structural equality) and cascades the three
// invariant-restoring passes: projected
// variables no longer live are dropped, TypeBindings entries for
// variables/URIs no longer live are dropped, and filters whose free
// variables are no longer all live are dropped.
func (q *Query) RemoveTriple(t Triple) {
	out := make([]Triple, 0, len(q.Triples))
	removed := false
	for _, existing := range q.Triples {
		if !removed && existing.Equal(t) {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	q.Triples = out
	if !removed {
		return
	}
	q.restoreInvariants()
}

// RemoveTriplesMentioning drops every triple mentioning n, used by the
// node pass for instance-level and class-level denial of a constant URI
// or a variable whose every candidate type is denied.
func (q *Query) RemoveTriplesMentioning(n NodeID) {
	for _, t := range q.triplesMentioning(n) {
		q.RemoveTriple(t)
	}
}

// RemoveTriplesByObject drops every triple whose object equals n,
// the recovery applied after a filter merge contradiction: only
// object-position triples are dropped, not every triple mentioning n.
func (q *Query) RemoveTriplesByObject(n NodeID) {
	var toRemove []Triple
	for _, t := range q.Triples {
		if t.Object.Equal(n) {
			toRemove = append(toRemove, t)
		}
	}
	for _, t := range toRemove {
		q.RemoveTriple(t)
	}
}

func (q *Query) restoreInvariants() {
	live := q.liveVars()

	proj := make([]ProjectionTerm, 0, len(q.Projection))
	for _, p := range q.Projection {
		keep := false
		if p.Expr == nil {
			keep = live[p.Var]
		} else {
			// A compound projected expression dies with any of its
			// variables: keeping it would project an expression over a
			// variable no remaining triple binds.
			keep = true
			for _, fv := range p.Expr.FreeVars() {
				if !live[fv] {
					keep = false
					break
				}
			}
		}
		if keep {
			proj = append(proj, p)
		}
	}
	q.Projection = proj

	if q.Bindings != nil {
		for v := range q.Bindings.VarTypes {
			if !live[v] {
				delete(q.Bindings.VarTypes, v)
			}
		}
		for v := range q.Bindings.PredicateVarTypes {
			if !live[v] {
				delete(q.Bindings.PredicateVarTypes, v)
			}
		}
		liveURIs := map[IRI]bool{}
		for _, t := range q.Triples {
			for _, n := range []NodeID{t.Subject, t.Predicate, t.Object} {
				if iri, ok := n.(IRI); ok {
					liveURIs[iri] = true
				}
			}
		}
		for u := range q.Bindings.URITypes {
			if !liveURIs[u] {
				delete(q.Bindings.URITypes, u)
			}
		}
	}

	filters := make([]Expression, 0, len(q.Filters))
	for _, f := range q.Filters {
		allLive := true
		for _, fv := range f.FreeVars() {
			if !live[fv] {
				allLive = false
				break
			}
		}
		if allLive {
			filters = append(filters, f)
		}
	}
	q.Filters = filters
}

// RemoveProjectedVar drops v from the SELECT list, including any
// compound projected expression that reads it.
func (q *Query) RemoveProjectedVar(v Variable) {
	out := make([]ProjectionTerm, 0, len(q.Projection))
	for _, p := range q.Projection {
		if !p.mentions(v) {
			out = append(out, p)
		}
	}
	q.Projection = out
}

// RemoveFilter drops a filter matching f by structural equality. Two
// NotExists filters are compared by their inner pattern.
func (q *Query) RemoveFilter(f Expression) {
	out := make([]Expression, 0, len(q.Filters))
	removed := false
	for _, existing := range q.Filters {
		if !removed && existing.StructurallyEqual(f) {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	q.Filters = out
}

// filterAlreadyExists reports whether f structurally matches a filter
// already present on q. This check runs before any merge attempt in
// AddFilter: dedup first, then merge.
func (q *Query) filterAlreadyExists(f Expression) bool {
	for _, existing := range q.Filters {
		if existing.StructurallyEqual(f) {
			return true
		}
	}
	return false
}

// isObjectOfPredicateVariableTriple reports whether v appears as the
// object of some remaining triple whose predicate is itself a
// variable. When true, AddFilter never attempts to merge a new filter
// on v with existing ones.
func (q *Query) isObjectOfPredicateVariableTriple(v Variable) bool {
	for _, t := range q.Triples {
		if t.Object.Equal(v) && t.IsPredicateVariable() {
			return true
		}
	}
	return false
}

// AddFilter adds newFilter (a constraint on v) to q, deduplicating and
// merging with existing same-variable filters. The merge step is
// delegated to combine (normally filteralgebra.Combine) so that this
// package stays independent of the filter algebra package. It returns
// contradiction=true when the merge table's bottom is reached; the
// caller (the rewrite driver) is then responsible for dropping the
// object-position triples that depend on v.
func (q *Query) AddFilter(v Variable, newFilter Expression, combine Combine) (contradiction bool) {
	if q.filterAlreadyExists(newFilter) {
		return false
	}

	moreVariables := len(newFilter.FreeVars()) > 1
	predicateVar := q.isObjectOfPredicateVariableTriple(v)

	if newFilter.Op == OpNotExists || moreVariables || predicateVar {
		q.Filters = append(q.Filters, newFilter)
		return false
	}

	var matchIdx []int
	for i, existing := range q.Filters {
		if existing.Op == OpNotExists {
			continue
		}
		fv := existing.FreeVars()
		if len(fv) == 1 && fv[0] == v {
			matchIdx = append(matchIdx, i)
		}
	}

	if len(matchIdx) == 0 {
		q.Filters = append(q.Filters, newFilter)
		return false
	}

	candidates := make([]Expression, 0, len(matchIdx)+1)
	for _, i := range matchIdx {
		candidates = append(candidates, q.Filters[i])
	}
	candidates = append(candidates, newFilter)

	merged, ok := combine(candidates)

	kept := make([]Expression, 0, len(q.Filters)-len(matchIdx))
	removeSet := map[int]bool{}
	for _, i := range matchIdx {
		removeSet[i] = true
	}
	for i, f := range q.Filters {
		if !removeSet[i] {
			kept = append(kept, f)
		}
	}
	q.Filters = kept

	if !ok {
		return true
	}
	if !merged.IsVacuouslyTrue() {
		q.Filters = append(q.Filters, merged)
	}
	return false
}

// AddRawFilter adds f to q without requiring the caller to name a
// single governing variable. It delegates to AddFilter using f's first
// free variable: a single-variable f is merged exactly as AddFilter
// would merge it on that variable, while for a multi-variable or
// NotExists-shaped f AddFilter's own moreVariables/NotExists guard
// skips merging, so the choice of which free variable to key on does
// not affect behavior. A filter with no free variables is appended
// unless an identical one is already present.
func (q *Query) AddRawFilter(f Expression, combine Combine) (contradiction bool) {
	vars := f.FreeVars()
	if len(vars) == 0 {
		if !q.filterAlreadyExists(f) {
			q.Filters = append(q.Filters, f)
		}
		return false
	}
	return q.AddFilter(vars[0], f, combine)
}
