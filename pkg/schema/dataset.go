package schema

import "github.com/sparqlveil/sparqlveil/pkg/model"

// Well-known predicates the Oracle reasons over directly.
const (
	RDFType        model.IRI = "rdf:type"
	RDFSDomain     model.IRI = "rdfs:domain"
	RDFSRange      model.IRI = "rdfs:range"
	RDFSSubClassOf model.IRI = "rdfs:subClassOf"
)

// Dataset is an in-memory ground triple index, the one Oracle
// implementation SPARQLVeil ships. It holds
// only ground triples (constant subject/predicate/object) loaded from
// Turtle; the query being rewritten is held separately as a
// model.Query and is never part of the Dataset.
type Dataset struct {
	triples []model.Triple
}

// NewDataset returns a Dataset over the given ground triples.
func NewDataset(triples []model.Triple) *Dataset {
	return &Dataset{triples: append([]model.Triple(nil), triples...)}
}

var _ Oracle = (*Dataset)(nil)

func (d *Dataset) byPredicate(p model.IRI) []model.Triple {
	var out []model.Triple
	for _, t := range d.triples {
		if iri, ok := t.Predicate.(model.IRI); ok && iri == p {
			out = append(out, t)
		}
	}
	return out
}

// Domain returns p's declared rdfs:domain classes, widened by their
// transitive subclasses: an instance of a subclass of the domain class
// still satisfies the domain restriction.
func (d *Dataset) Domain(p model.IRI) []model.IRI {
	var classes []model.IRI
	for _, t := range d.byPredicate(RDFSDomain) {
		if subj, ok := t.Subject.(model.IRI); ok && subj == p {
			if obj, ok := t.Object.(model.IRI); ok {
				classes = append(classes, obj)
			}
		}
	}
	if classes == nil {
		return nil
	}
	return d.SubClassesOf(classes)
}

// Range returns p's declared rdfs:range classes, widened as Domain does.
func (d *Dataset) Range(p model.IRI) []model.IRI {
	var classes []model.IRI
	for _, t := range d.byPredicate(RDFSRange) {
		if subj, ok := t.Subject.(model.IRI); ok && subj == p {
			if obj, ok := t.Object.(model.IRI); ok {
				classes = append(classes, obj)
			}
		}
	}
	if classes == nil {
		return nil
	}
	return d.SubClassesOf(classes)
}

// SubClassesOf returns classes plus the fixed point of their
// rdfs:subClassOf descendants, scanning repeatedly until no new
// subclass is found.
func (d *Dataset) SubClassesOf(classes []model.IRI) []model.IRI {
	seen := map[model.IRI]bool{}
	for _, c := range classes {
		seen[c] = true
	}
	subOf := d.byPredicate(RDFSSubClassOf)
	changed := true
	for changed {
		changed = false
		for _, t := range subOf {
			sub, ok1 := t.Subject.(model.IRI)
			super, ok2 := t.Object.(model.IRI)
			if !ok1 || !ok2 || !seen[super] || seen[sub] {
				continue
			}
			seen[sub] = true
			changed = true
		}
	}
	out := make([]model.IRI, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}

func (d *Dataset) groundTypesOf(subject model.NodeID) []model.IRI {
	var out []model.IRI
	for _, t := range d.triples {
		if iri, ok := t.Predicate.(model.IRI); !ok || iri != RDFType {
			continue
		}
		if !t.Subject.Equal(subject) {
			continue
		}
		if obj, ok := t.Object.(model.IRI); ok {
			out = append(out, obj)
		}
	}
	return out
}

// TypesOf implements the short-circuit-then-join lookup described in
// Oracle.TypesOf: an explicit ground rdf:type triple for target wins
// outright; a constant IRI target otherwise gets its own rdf:type set
// from the dataset without any join; for a variable target every
// solution of pattern (evaluated as a basic graph pattern join over
// the dataset) contributes the rdf:type of whatever target is bound to
// in that solution.
func (d *Dataset) TypesOf(pattern []model.Triple, target model.NodeID) []model.IRI {
	for _, t := range pattern {
		if t.Subject.Equal(target) {
			if pIRI, ok := t.Predicate.(model.IRI); ok && pIRI == RDFType {
				if obj, ok := t.Object.(model.IRI); ok {
					return []model.IRI{obj}
				}
			}
		}
	}

	if iri, ok := target.(model.IRI); ok {
		return d.groundTypesOf(iri)
	}

	v, ok := target.(model.Variable)
	if !ok {
		return nil
	}

	seen := map[model.IRI]bool{}
	var out []model.IRI
	for _, binding := range d.solve(pattern) {
		bound, ok := binding[v]
		if !ok {
			continue
		}
		for _, ty := range d.groundTypesOf(bound) {
			if !seen[ty] {
				seen[ty] = true
				out = append(out, ty)
			}
		}
	}
	return out
}

// PredicateValues returns the predicates the dataset actually uses to
// connect an instance of subjectTypes to an instance of objectTypes —
// a ground probe, not a declared-schema check, matching the primary
// branch of getPredicateTypes. An empty subjectTypes/objectTypes list
// means "unconstrained" for that position.
func (d *Dataset) PredicateValues(subjectTypes, objectTypes []model.IRI) []model.IRI {
	subjSet := toSet(subjectTypes)
	objSet := toSet(objectTypes)

	seen := map[model.IRI]bool{}
	var out []model.IRI
	for _, t := range d.triples {
		p, ok := t.Predicate.(model.IRI)
		if !ok || seen[p] {
			continue
		}
		if len(subjSet) > 0 && !hasAny(d.groundTypesOf(t.Subject), subjSet) {
			continue
		}
		if len(objSet) > 0 && !hasAny(d.groundTypesOf(t.Object), objSet) {
			continue
		}
		seen[p] = true
		out = append(out, p)
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

func hasAny(list []model.IRI, set map[model.IRI]bool) bool {
	for _, v := range list {
		if set[v] {
			return true
		}
	}
	return false
}

// solve evaluates pattern as a basic graph pattern join over the
// dataset via naive nested-loop joining, returning every satisfying
// binding of the pattern's variables. Adequate for the small
// constraint-checking patterns the type inferencer builds, not a
// general SPARQL execution engine.
func (d *Dataset) solve(pattern []model.Triple) []map[model.Variable]model.NodeID {
	solutions := []map[model.Variable]model.NodeID{{}}
	for _, t := range pattern {
		var next []map[model.Variable]model.NodeID
		for _, binding := range solutions {
			for _, candidate := range d.triples {
				extended, ok := matchAndExtend(t, candidate, binding)
				if ok {
					next = append(next, extended)
				}
			}
		}
		solutions = next
		if len(solutions) == 0 {
			return nil
		}
	}
	return solutions
}

func matchAndExtend(pattern, candidate model.Triple, binding map[model.Variable]model.NodeID) (map[model.Variable]model.NodeID, bool) {
	next := make(map[model.Variable]model.NodeID, len(binding)+3)
	for k, v := range binding {
		next[k] = v
	}
	positions := [][2]model.NodeID{
		{pattern.Subject, candidate.Subject},
		{pattern.Predicate, candidate.Predicate},
		{pattern.Object, candidate.Object},
	}
	for _, pos := range positions {
		pNode, cNode := pos[0], pos[1]
		if v, ok := pNode.(model.Variable); ok {
			if bound, has := next[v]; has {
				if !bound.Equal(cNode) {
					return nil, false
				}
			} else {
				next[v] = cNode
			}
			continue
		}
		if !pNode.Equal(cNode) {
			return nil, false
		}
	}
	return next, true
}
