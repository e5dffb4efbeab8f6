package model

// Triple is one basic-graph-pattern triple in the query body. Predicate
// may itself be a Variable (a predicate-variable triple).
type Triple struct {
	Subject   NodeID
	Predicate NodeID
	Object    NodeID
}

// Equal reports structural equality of the three positions.
func (t Triple) Equal(other Triple) bool {
	return t.Subject.Equal(other.Subject) &&
		t.Predicate.Equal(other.Predicate) &&
		t.Object.Equal(other.Object)
}

// Mentions reports whether n appears in any position of t.
func (t Triple) Mentions(n NodeID) bool {
	return t.Subject.Equal(n) || t.Predicate.Equal(n) || t.Object.Equal(n)
}

// IsPredicateVariable reports whether the predicate position is a
// Variable, i.e. the edge label itself is unbound.
func (t Triple) IsPredicateVariable() bool {
	_, ok := t.Predicate.(Variable)
	return ok
}
