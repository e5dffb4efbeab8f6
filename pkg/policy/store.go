package policy

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/sparqlveil/sparqlveil/internal/logging"
	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/rewriteerrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the immutable, load-once policy: the three typed
// constraint collections and their lookup operations. Safe for
// concurrent read-only use by multiple rewrite.Driver instances.
type Store struct {
	nodeConstraints      []NodeConstraint
	predicateConstraints []PredicateConstraint
	attributeConstraints []AttributeConstraint
}

type rawEntry struct {
	Constraint  string   `json:"constraint"`
	User        string   `json:"user"`
	Type        string   `json:"type"`
	SubjectType string   `json:"subjectType"`
	Predicate   string   `json:"predicate"`
	ObjectType  string   `json:"objectType"`
	Symbol      string   `json:"symbol"`
	ValueType   string   `json:"valueType"`
	Nodes       []string `json:"nodes"`
	Subjects    []string `json:"subjects"`
	Objects     []string `json:"objects"`
	Values      []string `json:"values"`
}

// Load decodes a policy JSON array into a Store. Malformed individual
// entries (unrecognized "constraint" kind, or an attribute entry with
// an operator symbol outside ValidSymbols) are skipped and reported as
// warnings rather than failing the whole load.
func Load(r io.Reader) (*Store, []error, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("policy: reading policy file: %w", err)
	}

	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("policy: parsing policy file: %w", err)
	}

	store := &Store{}
	var warnings []error
	for i, e := range entries {
		switch e.Constraint {
		case "node":
			store.nodeConstraints = append(store.nodeConstraints, NodeConstraint{
				User:     e.User,
				NodeType: model.IRI(e.Type),
				Nodes:    toIRIs(e.Nodes),
			})
		case "predicate":
			store.predicateConstraints = append(store.predicateConstraints, PredicateConstraint{
				User:        e.User,
				SubjectType: model.IRI(e.SubjectType),
				Predicate:   model.IRI(e.Predicate),
				ObjectType:  model.IRI(e.ObjectType),
				Subjects:    toIRIs(e.Subjects),
				Objects:     toIRIs(e.Objects),
			})
		case "attribute":
			if !ValidSymbols[e.Symbol] {
				warn := rewriteerrors.NewPolicyWarning(i, fmt.Errorf("policy: unrecognized attribute operator %q", e.Symbol))
				logging.Warn().Err(warn).Int("entryIndex", i).Msg("skipping policy entry with unrecognized operator")
				warnings = append(warnings, warn)
				continue
			}
			store.attributeConstraints = append(store.attributeConstraints, AttributeConstraint{
				User:        e.User,
				SubjectType: model.IRI(e.SubjectType),
				Predicate:   model.IRI(e.Predicate),
				Symbol:      e.Symbol,
				Values:      toNodeValues(e.Values, e.ValueType),
				Subjects:    toIRIs(e.Subjects),
			})
		default:
			warn := rewriteerrors.NewPolicyWarning(i, fmt.Errorf("policy: unrecognized constraint kind %q", e.Constraint))
			logging.Warn().Err(warn).Int("entryIndex", i).Msg("skipping policy entry with unrecognized constraint kind")
			warnings = append(warnings, warn)
		}
	}
	return store, warnings, nil
}

func toIRIs(values []string) []model.IRI {
	if values == nil {
		return nil
	}
	out := make([]model.IRI, len(values))
	for i, v := range values {
		out[i] = model.IRI(v)
	}
	return out
}

func toNodeValues(values []string, valueType string) []model.NodeValue {
	if values == nil {
		return nil
	}
	t := primitiveTypeOf(valueType)
	out := make([]model.NodeValue, len(values))
	for i, v := range values {
		out[i] = model.NodeValue{Lexical: v, Type: t}
	}
	return out
}

func primitiveTypeOf(name string) model.PrimitiveType {
	switch name {
	case "integer":
		return model.TypeInteger
	case "double":
		return model.TypeDouble
	case "date":
		return model.TypeDate
	case "iri":
		return model.TypeIRI
	default:
		return model.TypeString
	}
}

// NodeConstraintsFor returns the node constraints governing user's
// access to nodeType: an
// unscoped (class-level) entry is authoritative and short-circuits,
// discarding any instance-level entries already found; absent one, all
// matching instance-level entries are returned together.
func (s *Store) NodeConstraintsFor(user string, nodeType model.IRI) []NodeConstraint {
	var scoped []NodeConstraint
	for _, c := range s.nodeConstraints {
		if c.User != user || c.NodeType != nodeType {
			continue
		}
		if !c.HasNodes() {
			return []NodeConstraint{c}
		}
		scoped = append(scoped, c)
	}
	return scoped
}

// PredicateConstraintsFor returns the predicate constraints governing
// the edge (subjectType, predicate, objectType) for user: an absolute
// entry (no subjects and no objects) denies the edge outright and
// short-circuits.
func (s *Store) PredicateConstraintsFor(user string, subjectType, predicate, objectType model.IRI) []PredicateConstraint {
	var scoped []PredicateConstraint
	for _, c := range s.predicateConstraints {
		if c.User != user || c.SubjectType != subjectType || c.Predicate != predicate || c.ObjectType != objectType {
			continue
		}
		if !c.HasSubjects() && !c.HasObjects() {
			return []PredicateConstraint{c}
		}
		scoped = append(scoped, c)
	}
	return scoped
}

// AttributeConstraintsFor returns the attribute constraints governing
// (subjectType, predicate) for user: an unscoped deny-read
// ("X") entry is authoritative and short-circuits; a scoped "X" entry
// discards any value-operator entries already accumulated and
// continues accumulating only further scoped "X" entries; non-"X"
// entries only ever accumulate before the first scoped "X" entry is
// seen.
func (s *Store) AttributeConstraintsFor(user string, subjectType, predicate model.IRI) []AttributeConstraint {
	var result []AttributeConstraint
	sawScopedDeny := false
	for _, c := range s.attributeConstraints {
		if c.User != user || c.SubjectType != subjectType || c.Predicate != predicate {
			continue
		}
		if c.Symbol == "X" {
			if !c.HasSubjects() {
				return []AttributeConstraint{c}
			}
			if !sawScopedDeny {
				result = nil
				sawScopedDeny = true
			}
			result = append(result, c)
			continue
		}
		if !sawScopedDeny {
			result = append(result, c)
		}
	}
	return result
}
