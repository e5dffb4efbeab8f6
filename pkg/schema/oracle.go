// Package schema implements the schema oracle: rdfs:domain/rdfs:range
// and rdfs:subClassOf lookups, plus the ground-type and
// predicate-candidate probes the type inferencer drives.
package schema

import "github.com/sparqlveil/sparqlveil/pkg/model"

// Oracle answers the schema questions the type inferencer needs. A
// failed or unanswerable probe returns a nil slice, which callers
// treat as "no constraint" rather than as an error.
type Oracle interface {
	// Domain returns the declared rdfs:domain classes of predicate p,
	// including subclasses transitively implied by rdfs:subClassOf.
	Domain(p model.IRI) []model.IRI

	// Range returns the declared rdfs:range classes of predicate p,
	// including subclasses transitively implied by rdfs:subClassOf.
	Range(p model.IRI) []model.IRI

	// SubClassesOf returns classes, plus the transitive closure of
	// their rdfs:subClassOf descendants.
	SubClassesOf(classes []model.IRI) []model.IRI

	// TypesOf returns the ground rdf:type candidates for target within
	// pattern: if pattern already contains an explicit
	// "target rdf:type <IRI>" triple, that IRI is returned directly;
	// otherwise the dataset is probed for the types of whatever
	// target is bound to.
	TypesOf(pattern []model.Triple, target model.NodeID) []model.IRI

	// PredicateValues returns the predicate URIs the dataset actually
	// uses to connect an instance of subjectTypes to an instance of
	// objectTypes (an empty list leaves that position unconstrained),
	// the ground probe used for predicate-variable type inference.
	// Declared domain/range are not consulted.
	PredicateValues(subjectTypes, objectTypes []model.IRI) []model.IRI
}
