// Package rewrite implements the rewrite driver: the node, predicate,
// and attribute passes that narrow a query against a user's policy.
package rewrite

import (
	"github.com/sparqlveil/sparqlveil/internal/logging"
	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/policy"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
	"github.com/sparqlveil/sparqlveil/pkg/typeinfer"
)

// Driver owns the immutable Policy Store and Schema Oracle and runs
// the three rewrite passes against a caller-supplied Query.
type Driver struct {
	Policy  *policy.Store
	Oracle  schema.Oracle
	Options typeinfer.Options
}

// NewDriver returns a Driver with default type inference options
// (predicate-variable fallback disabled).
func NewDriver(store *policy.Store, oracle schema.Oracle) *Driver {
	return &Driver{Policy: store, Oracle: oracle, Options: typeinfer.DefaultOptions()}
}

// Rewrite runs the node, predicate, and attribute passes in order
// against q for user, logging "no X constraints applied" when a pass
// changes nothing and "NO CONSTRAINTS APPLIED TO THE QUERY" when the
// whole rewrite is a no-op.
func (d *Driver) Rewrite(q *model.Query, user string) {
	original := q.Clone()

	beforeNode := q.Clone()
	d.ApplyNodeConstraints(q, user)
	if q.StructurallyEqual(beforeNode) {
		logging.Info().Str("user", user).Msg("no node constraints applied")
	}

	beforePredicate := q.Clone()
	d.ApplyPredicateConstraints(q, user)
	if q.StructurallyEqual(beforePredicate) {
		logging.Info().Str("user", user).Msg("no predicate constraints applied")
	}

	beforeAttribute := q.Clone()
	d.ApplyAttributeConstraints(q, user)
	if q.StructurallyEqual(beforeAttribute) {
		logging.Info().Str("user", user).Msg("no attribute constraints applied")
	}

	if q.StructurallyEqual(original) {
		logging.Info().Str("user", user).Msg("NO CONSTRAINTS APPLIED TO THE QUERY")
	}
}

func iriValues(iris []model.IRI) []model.NodeValue {
	out := make([]model.NodeValue, len(iris))
	for i, v := range iris {
		out[i] = model.NodeValue{Lexical: string(v), Type: model.TypeIRI}
	}
	return out
}

func containsIRI(list []model.IRI, v model.IRI) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsClass(classes []model.IRI, c model.IRI) bool {
	return containsIRI(classes, c)
}
