package rewrite

import (
	"github.com/sparqlveil/sparqlveil/internal/logging"
	"github.com/sparqlveil/sparqlveil/pkg/filteralgebra"
	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
	"github.com/sparqlveil/sparqlveil/pkg/typeinfer"
)

// ApplyNodeConstraints runs the node pass: entity-class denial for
// every live variable and constant URI in q.
func (d *Driver) ApplyNodeConstraints(q *model.Query, user string) {
	for _, v := range distinctVariables(q) {
		d.checkVarNodeConstraints(q, user, v)
	}
	for _, u := range distinctURIs(q) {
		d.checkURINodeConstraints(q, user, u)
	}
}

// checkVarNodeConstraints: each candidate type of v independently contributes either
// an instance-level denylist (accumulated across types) or a
// class-level NOT EXISTS filter; if every single candidate type
// produced a class-level denial, every triple mentioning v is dropped
// outright instead of adding a filter per type.
func (d *Driver) checkVarNodeConstraints(q *model.Query, user string, v model.Variable) {
	types := typeinfer.VarTypes(d.Oracle, q, v)
	if len(types) == 0 {
		return
	}

	var deniedNodes []model.IRI
	var filters []model.Expression
	contNotExists := 0

	for _, ty := range types {
		constraints := d.Policy.NodeConstraintsFor(user, ty)
		for _, nc := range constraints {
			if nc.HasNodes() {
				deniedNodes = append(deniedNodes, nc.Nodes...)
			} else {
				filters = append(filters, model.NotExists(model.Triple{
					Subject: v, Predicate: schema.RDFType, Object: ty,
				}))
				contNotExists++
			}
		}
	}

	if len(deniedNodes) > 0 {
		filters = append(filters, model.NotIn(v, iriValues(deniedNodes)))
	}

	if contNotExists > 0 && contNotExists == len(types) {
		logging.Info().Str("user", user).Str("variable", string(v)).Msg("dropping triples: every candidate type of variable is class-denied")
		q.RemoveTriplesMentioning(v)
		return
	}

	for _, f := range filters {
		if contradiction := q.AddFilter(v, f, filteralgebra.Combine); contradiction {
			logging.Info().Str("user", user).Str("variable", string(v)).Msg("filter merge contradiction: removing dependent triples")
			q.RemoveTriplesByObject(v)
			continue
		}
		logging.Info().Str("user", user).Str("variable", string(v)).Str("filter", describeFilter(f)).Msg("added filter")
	}
}

func describeFilter(f model.Expression) string {
	if f.Op == model.OpNotExists && f.Pattern != nil {
		return "NOT EXISTS { " + f.Pattern.Subject.String() + " " + f.Pattern.Predicate.String() + " " + f.Pattern.Object.String() + " }"
	}
	return f.Op.String()
}

// checkURINodeConstraints: a
// constant URI never gets a filter added on its behalf — either it
// survives untouched, or it (and every triple mentioning it) is
// dropped outright, for the first denial found.
func (d *Driver) checkURINodeConstraints(q *model.Query, user string, u model.IRI) {
	types := typeinfer.URITypes(d.Oracle, q, u)
	for _, ty := range types {
		constraints := d.Policy.NodeConstraintsFor(user, ty)
		for _, nc := range constraints {
			if nc.HasNodes() {
				if containsIRI(nc.Nodes, u) {
					logging.Info().Str("user", user).Str("uri", string(u)).Msg("dropping triples: instance denied by node constraint")
					q.RemoveTriplesMentioning(u)
					return
				}
				continue
			}
			logging.Info().Str("user", user).Str("uri", string(u)).Str("type", string(ty)).Msg("dropping triples: class denied by node constraint")
			q.RemoveTriplesMentioning(u)
			return
		}
	}
}

func distinctVariables(q *model.Query) []model.Variable {
	seen := map[model.Variable]bool{}
	var out []model.Variable
	for _, t := range q.Triples {
		for _, n := range []model.NodeID{t.Subject, t.Predicate, t.Object} {
			if v, ok := n.(model.Variable); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func distinctURIs(q *model.Query) []model.IRI {
	seen := map[model.IRI]bool{}
	var out []model.IRI
	for _, t := range q.Triples {
		for _, n := range []model.NodeID{t.Subject, t.Predicate, t.Object} {
			if v, ok := n.(model.IRI); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
