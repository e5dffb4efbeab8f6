// Package typeinfer implements the type inferencer: per-variable and
// per-URI candidate rdf:type sets, and per-predicate-variable
// candidate predicate-URI sets.
package typeinfer

import (
	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
)

// Options tunes inference behavior. EnablePredicateFallback widens
// predicate-variable candidates beyond the ground probe; no known
// query shape needs the wider set, so it is off by default.
type Options struct {
	EnablePredicateFallback bool
}

// DefaultOptions disables the predicate-variable fallback.
func DefaultOptions() Options { return Options{EnablePredicateFallback: false} }

// VarTypes returns the candidate rdf:type set for variable v within
// query: the ground-probe result from the Oracle, restricted by any
// rdfs:domain/rdfs:range implied by v's position in a triple with a
// ground predicate. An empty/nil result means "no type information
// available", which the rewrite passes treat as "skip this variable"
// rather than as a contradiction.
func VarTypes(oracle schema.Oracle, query *model.Query, v model.Variable) []model.IRI {
	candidates := oracle.TypesOf(query.Triples, v)
	restricted := restrictByDomainRange(oracle, query.Triples, v, candidates)
	return restricted
}

// URITypes mirrors VarTypes for a constant URI appearing in the query.
func URITypes(oracle schema.Oracle, query *model.Query, u model.IRI) []model.IRI {
	candidates := oracle.TypesOf(query.Triples, u)
	restricted := restrictByDomainRange(oracle, query.Triples, u, candidates)
	return restricted
}

// restrictByDomainRange intersects candidates with the union of
// rdfs:domain (when n is a subject of a ground predicate) and
// rdfs:range (when n is an object of a ground predicate) restrictions
// implied by every triple mentioning n. When candidates is empty (no ground
// probe result) the domain/range-derived set is returned directly,
// since it is then the only type information available.
func restrictByDomainRange(oracle schema.Oracle, triples []model.Triple, n model.NodeID, candidates []model.IRI) []model.IRI {
	var restriction []model.IRI
	sawGroundPredicate := false
	for _, t := range triples {
		pred, ok := t.Predicate.(model.IRI)
		if !ok {
			continue
		}
		if t.Subject.Equal(n) {
			sawGroundPredicate = true
			restriction = append(restriction, oracle.Domain(pred)...)
		}
		if t.Object.Equal(n) {
			sawGroundPredicate = true
			restriction = append(restriction, oracle.Range(pred)...)
		}
	}
	if !sawGroundPredicate || restriction == nil {
		return candidates
	}
	if candidates == nil {
		return dedupe(restriction)
	}
	return intersect(candidates, restriction)
}

// PredicateTypes returns the candidate predicate-URI set for a
// predicate variable: the ground probe of predicates actually
// connecting an instance of subjectTypes to an instance of
// objectTypes. When opts.EnablePredicateFallback is set, candidates
// are widened by predicates that some instance of a subjectTypes class
// uses and whose declared domain/range is compatible with
// subjectTypes/objectTypes, even absent a ground instance connecting
// them to objectTypes. Predicates no such instance uses are not added.
func PredicateTypes(oracle schema.Oracle, subjectTypes, objectTypes []model.IRI, opts Options) []model.IRI {
	primary := oracle.PredicateValues(subjectTypes, objectTypes)
	if !opts.EnablePredicateFallback {
		return primary
	}
	seen := map[model.IRI]bool{}
	out := append([]model.IRI(nil), primary...)
	for _, p := range primary {
		seen[p] = true
	}
	for _, s := range subjectTypes {
		for _, candidate := range oracle.PredicateValues([]model.IRI{s}, nil) {
			if domainCompatible(oracle, candidate, subjectTypes) && rangeCompatible(oracle, candidate, objectTypes) && !seen[candidate] {
				seen[candidate] = true
				out = append(out, candidate)
			}
		}
	}
	return out
}

func domainCompatible(oracle schema.Oracle, p model.IRI, subjectTypes []model.IRI) bool {
	if len(subjectTypes) == 0 {
		return true
	}
	domain := oracle.Domain(p)
	if domain == nil {
		return true
	}
	return len(intersect(domain, subjectTypes)) > 0
}

func rangeCompatible(oracle schema.Oracle, p model.IRI, objectTypes []model.IRI) bool {
	if len(objectTypes) == 0 {
		return true
	}
	rng := oracle.Range(p)
	if rng == nil {
		return true
	}
	return len(intersect(rng, objectTypes)) > 0
}

func intersect(a, b []model.IRI) []model.IRI {
	bSet := toSet(b)
	var out []model.IRI
	seen := map[model.IRI]bool{}
	for _, v := range a {
		if bSet[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func dedupe(a []model.IRI) []model.IRI {
	seen := map[model.IRI]bool{}
	var out []model.IRI
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func toSet(list []model.IRI) map[model.IRI]bool {
	set := make(map[model.IRI]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}
