package rewrite

import (
	"github.com/sparqlveil/sparqlveil/internal/logging"
	"github.com/sparqlveil/sparqlveil/pkg/filteralgebra"
	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/policy"
	"github.com/sparqlveil/sparqlveil/pkg/rewriteerrors"
	"github.com/sparqlveil/sparqlveil/pkg/typeinfer"
)

// ApplyAttributeConstraints runs the attribute pass: value denial for
// every remaining triple.
func (d *Driver) ApplyAttributeConstraints(q *model.Query, user string) {
	for _, t := range append([]model.Triple(nil), q.Triples...) {
		if !stillPresent(q, t) {
			continue
		}
		d.checkAttributeConstraints(q, user, t)
	}
}

// checkAttributeConstraints products over (predicateType, subjectType) pairs
// surviving a domain-only skip check (attribute constraints restrict
// a single edge's object value, so only the subject side has a class
// to check against), and for each pair dispatches on the attribute
// constraint's operator symbol.
func (d *Driver) checkAttributeConstraints(q *model.Query, user string, t model.Triple) {
	subjectTypes := d.typesOfPosition(q, t.Subject)

	var predicateTypes []model.IRI
	if t.IsPredicateVariable() {
		predicateTypes = typeinfer.PredicateTypes(d.Oracle, subjectTypes, nil, d.Options)
	} else if predIRI, ok := t.Predicate.(model.IRI); ok {
		predicateTypes = []model.IRI{predIRI}
	}

	total := len(predicateTypes) * len(subjectTypes)
	if total == 0 {
		return
	}

	var filters []model.Expression
	contSkip := 0
	contNotExists := 0

	for _, pt := range predicateTypes {
		domain := d.Oracle.Domain(pt)
		for _, st := range subjectTypes {
			if len(domain) > 0 && !containsClass(domain, st) {
				contSkip++
				continue
			}

			for _, ac := range d.Policy.AttributeConstraintsFor(user, st, pt) {
				if ac.Symbol == "X" {
					removed := d.applyDenyRead(q, user, t, pt, ac, &contNotExists)
					if removed {
						return
					}
					continue
				}

				f, violated := d.buildValueFilterOrViolation(t, pt, ac)
				switch {
				case f != nil:
					filters = append(filters, *f)
				case violated:
					if t.IsPredicateVariable() {
						filters = append(filters, model.NotExists(model.Triple{Subject: t.Subject, Predicate: pt, Object: t.Object}))
						contNotExists++
					} else {
						logging.Info().Str("user", user).Str("symbol", ac.Symbol).Msg("dropping triple: literal violates attribute constraint")
						q.RemoveTriple(t)
						return
					}
				}
			}
		}
	}

	if contNotExists > 0 && contNotExists == total-contSkip {
		logging.Info().Str("user", user).Msg("dropping triple: every surviving attribute-constraint combination denies it")
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

// applyDenyRead implements the ac.Symbol == "X" branch: a scoped entry
// (HasSubjects) only denies the edge for the named subject instances;
// an unscoped entry denies it for every instance of the subject type,
// and the subject/URI distinction stops mattering — only whether the
// predicate is itself a variable decides between a NOT EXISTS filter
// and outright removal. Returns true if the triple was removed
// (caller must stop processing t immediately).
func (d *Driver) applyDenyRead(q *model.Query, user string, t model.Triple, pt model.IRI, ac policy.AttributeConstraint, contNotExists *int) bool {
	if ac.HasSubjects() {
		if subjVar, ok := t.Subject.(model.Variable); ok {
			f := model.NotIn(subjVar, iriValues(ac.Subjects))
			if contradiction := q.AddFilter(subjVar, f, filteralgebra.Combine); contradiction {
				logging.Info().Str("user", user).Str("variable", string(subjVar)).Msg("filter merge contradiction: removing dependent triples")
				q.RemoveTriplesByObject(subjVar)
			} else {
				logging.Info().Str("user", user).Str("filter", describeFilter(f)).Msg("added filter")
			}
			return false
		}
		subjIRI, ok := t.Subject.(model.IRI)
		if !ok || !containsIRI(ac.Subjects, subjIRI) {
			return false
		}
	}

	if t.IsPredicateVariable() {
		f := model.NotExists(model.Triple{Subject: t.Subject, Predicate: pt, Object: t.Object})
		q.AddRawFilter(f, filteralgebra.Combine)
		logging.Info().Str("user", user).Str("filter", describeFilter(f)).Msg("added filter")
		(*contNotExists)++
		return false
	}

	logging.Info().Str("user", user).Msg("dropping triple: attribute constraint denies read access")
	q.RemoveTriple(t)
	return true
}

// buildValueFilterOrViolation dispatches on ac.Symbol for the
// value-operator constraints (=, !=, <, <=, >, >=, between, in,
// notin). If the triple's object is a variable, it returns the filter
// to add. If the object is a literal, it returns (nil, true) when the
// literal violates the permitted range/set and (nil, false) otherwise
// (no filter needed; the literal already satisfies the constraint).
func (d *Driver) buildValueFilterOrViolation(t model.Triple, pt model.IRI, ac policy.AttributeConstraint) (*model.Expression, bool) {
	objVar, isVar := t.Object.(model.Variable)
	objLit, isLit := t.Object.(model.Literal)

	switch ac.Symbol {
	case "=", "!=", "<", "<=", ">", ">=":
		if len(ac.Values) == 0 {
			return nil, false
		}
		bound := ac.Values[0]
		if isVar {
			f := comparisonFilter(ac.Symbol, objVar, bound)
			return &f, false
		}
		if isLit {
			literal := model.NodeValue{Lexical: objLit.Lexical, Type: objLit.Type}
			return nil, filteralgebra.Violates(ac.Symbol, literal, bound, model.NodeValue{})
		}
		return nil, false

	case "between":
		if len(ac.Values) < 2 {
			return nil, false
		}
		lo, hi := ac.Values[0], ac.Values[1]
		if isVar {
			f := model.And(model.Ge(objVar, lo), model.Le(objVar, hi))
			return &f, false
		}
		if isLit {
			literal := model.NodeValue{Lexical: objLit.Lexical, Type: objLit.Type}
			return nil, filteralgebra.Violates("between", literal, lo, hi)
		}
		return nil, false

	case "in", "notin":
		if isVar {
			var f model.Expression
			if ac.Symbol == "in" {
				f = model.In(objVar, ac.Values)
			} else {
				f = model.NotIn(objVar, ac.Values)
			}
			return &f, false
		}
		if isLit {
			literal := model.NodeValue{Lexical: objLit.Lexical, Type: objLit.Type}
			return nil, filteralgebra.ViolatesSet(ac.Symbol, literal, ac.Values)
		}
		return nil, false
	}
	return nil, false
}

// comparisonFilter is only ever called with the six symbols
// buildValueFilterOrViolation's own switch has already dispatched on;
// the default case is therefore unreachable given the policy's
// ValidSymbols gate at load time, and MustBugf surfaces a violation of
// that invariant instead of silently returning a no-op filter.
func comparisonFilter(symbol string, v model.Variable, bound model.NodeValue) model.Expression {
	switch symbol {
	case "=":
		return model.Eq(v, bound)
	case "!=":
		return model.Ne(v, bound)
	case "<":
		return model.Lt(v, bound)
	case "<=":
		return model.Le(v, bound)
	case ">":
		return model.Gt(v, bound)
	case ">=":
		return model.Ge(v, bound)
	default:
		panic(rewriteerrors.MustBugf("rewrite: comparisonFilter called with unvalidated symbol %q", symbol))
	}
}
