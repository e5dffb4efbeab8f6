package rewrite

import (
	"github.com/sparqlveil/sparqlveil/internal/logging"
	"github.com/sparqlveil/sparqlveil/pkg/filteralgebra"
	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
	"github.com/sparqlveil/sparqlveil/pkg/typeinfer"
)

// ApplyPredicateConstraints runs the predicate pass: edge denial for
// every remaining triple. The triple list is snapshotted up front
// since passes mutate q.Triples.
func (d *Driver) ApplyPredicateConstraints(q *model.Query, user string) {
	for _, t := range append([]model.Triple(nil), q.Triples...) {
		if !stillPresent(q, t) {
			continue
		}
		d.checkPredicateConstraints(q, user, t)
	}
}

func stillPresent(q *model.Query, t model.Triple) bool {
	for _, existing := range q.Triples {
		if existing.Equal(t) {
			return true
		}
	}
	return false
}

// checkPredicateConstraints products over every candidate (predicateType,
// subjectType, objectType) combination surviving domain/range
// filtering, and for each combination applies whatever predicate
// constraints match. If the cumulative NOT EXISTS count reaches every
// surviving combination, the whole triple is dropped instead of
// filtered.
func (d *Driver) checkPredicateConstraints(q *model.Query, user string, t model.Triple) {
	subjectTypes := d.typesOfPosition(q, t.Subject)
	objectTypes := d.typesOfPosition(q, t.Object)

	var predicateTypes []model.IRI
	if t.IsPredicateVariable() {
		predicateTypes = typeinfer.PredicateTypes(d.Oracle, subjectTypes, objectTypes, d.Options)
	} else if predIRI, ok := t.Predicate.(model.IRI); ok {
		predicateTypes = []model.IRI{predIRI}
	}

	total := len(predicateTypes) * len(subjectTypes) * len(objectTypes)
	if total == 0 {
		return
	}

	var filters []model.Expression
	contSkip := 0
	contNotExists := 0

	for _, pt := range predicateTypes {
		domain := d.Oracle.Domain(pt)
		rng := d.Oracle.Range(pt)
		for _, st := range subjectTypes {
			if len(domain) > 0 && !containsClass(domain, st) {
				contSkip += len(objectTypes)
				continue
			}
			for _, ot := range objectTypes {
				if len(rng) > 0 && !containsClass(rng, ot) {
					contSkip++
					continue
				}

				for _, pc := range d.Policy.PredicateConstraintsFor(user, st, pt, ot) {
					switch {
					case !pc.HasSubjects() && !pc.HasObjects():
						filters = append(filters, model.NotExists(model.Triple{Subject: t.Subject, Predicate: pt, Object: t.Object}))
						contNotExists++

					case pc.HasSubjects() && pc.HasObjects():
						f, forceRemove := buildCompoundDenial(t.Subject, pc.Subjects, t.Object, pc.Objects)
						if forceRemove {
							logging.Info().Str("user", user).Msg("dropping triple: predicate constraint denies this exact subject/object pair")
							q.RemoveTriple(t)
							return
						}
						if f != nil {
							filters = append(filters, *f)
						}

					case pc.HasSubjects():
						if subjVar, ok := t.Subject.(model.Variable); ok {
							filters = append(filters, model.NotIn(subjVar, iriValues(pc.Subjects)))
						} else if subjIRI, ok := t.Subject.(model.IRI); ok && containsIRI(pc.Subjects, subjIRI) {
							filters = append(filters, model.NotExists(model.Triple{Subject: subjIRI, Predicate: schema.RDFType, Object: st}))
							contNotExists++
						}

					case pc.HasObjects():
						if objVar, ok := t.Object.(model.Variable); ok {
							filters = append(filters, model.NotIn(objVar, iriValues(pc.Objects)))
						} else if objIRI, ok := t.Object.(model.IRI); ok && containsIRI(pc.Objects, objIRI) {
							filters = append(filters, model.NotExists(model.Triple{Subject: objIRI, Predicate: schema.RDFType, Object: ot}))
							contNotExists++
						}
					}
				}
			}
		}
	}

	if contNotExists > 0 && contNotExists == total-contSkip {
		logging.Info().Str("user", user).Msg("dropping triple: every surviving predicate-constraint combination denies it")
		q.RemoveTriple(t)
		return
	}

	for _, f := range filters {
		if contradiction := q.AddRawFilter(f, filteralgebra.Combine); contradiction {
			logging.Info().Str("user", user).Msg("filter merge contradiction: removing dependent triples")
			for _, v := range f.FreeVars() {
				q.RemoveTriplesByObject(v)
			}
			continue
		}
		logging.Info().Str("user", user).Str("filter", describeFilter(f)).Msg("added filter")
	}
}

// typesOfPosition returns the candidate type set for whichever node
// shape n is: variable types from the Type Inferencer, or the single
// ground type set of a constant URI.
func (d *Driver) typesOfPosition(q *model.Query, n model.NodeID) []model.IRI {
	switch v := n.(type) {
	case model.Variable:
		return typeinfer.VarTypes(d.Oracle, q, v)
	case model.IRI:
		return typeinfer.URITypes(d.Oracle, q, v)
	default:
		return nil
	}
}

// buildCompoundDenial implements the "both subjects and objects set on
// one constraint entry" branch: the denied region is the conjunction
// (subject in deniedSubjects) AND (object in deniedObjects), so the
// filter added is its negation. A constant subject/object is resolved
// statically: if it is definitely outside its denylist the conjunction
// can never hold and no filter is needed; if it is definitely inside
// its denylist and the other side is also a statically-satisfied
// constant, the triple must be dropped outright (forceRemove).
func buildCompoundDenial(subject model.NodeID, deniedSubjects []model.IRI, object model.NodeID, deniedObjects []model.IRI) (*model.Expression, bool) {
	subjTrue, subjFalse := staticMembership(subject, deniedSubjects)
	objTrue, objFalse := staticMembership(object, deniedObjects)

	if subjFalse || objFalse {
		return nil, false
	}
	if subjTrue && objTrue {
		return nil, true
	}
	if subjTrue {
		f := negateMembership(object, deniedObjects)
		return &f, false
	}
	if objTrue {
		f := negateMembership(subject, deniedSubjects)
		return &f, false
	}
	// Both sides are variables: not(A and B) == (not A) or (not B).
	result := model.Expression{Op: model.OpOr, Args: []model.Expression{
		negateMembership(subject, deniedSubjects),
		negateMembership(object, deniedObjects),
	}}
	return &result, false
}

// staticMembership reports, for a constant IRI, whether it is
// definitely in or out of denied. For a variable it reports neither.
func staticMembership(n model.NodeID, denied []model.IRI) (isTrue, isFalse bool) {
	iri, ok := n.(model.IRI)
	if !ok {
		return false, false
	}
	if containsIRI(denied, iri) {
		return true, false
	}
	return false, true
}

func negateMembership(n model.NodeID, denied []model.IRI) model.Expression {
	v, ok := n.(model.Variable)
	if !ok {
		return model.Expression{Op: model.OpAnd, Args: nil}
	}
	return model.NotIn(v, iriValues(denied))
}
