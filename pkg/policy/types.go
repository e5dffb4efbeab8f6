// Package policy implements the policy store: typed node/predicate/
// attribute constraint lookups with subsumption and override rules.
package policy

import "github.com/sparqlveil/sparqlveil/pkg/model"

// NodeConstraint denies access to an entire class, or to specific
// named instances of it, for a user.
type NodeConstraint struct {
	User     string
	NodeType model.IRI
	Nodes    []model.IRI
}

// HasNodes reports whether this is an instance-level constraint
// (specific denied nodes) rather than a class-level one.
func (c NodeConstraint) HasNodes() bool { return len(c.Nodes) > 0 }

// PredicateConstraint denies an edge (predicate) between classes of
// subject/object, optionally scoped to specific subject/object
// instances.
type PredicateConstraint struct {
	User        string
	SubjectType model.IRI
	Predicate   model.IRI
	ObjectType  model.IRI
	Subjects    []model.IRI
	Objects     []model.IRI
}

func (c PredicateConstraint) HasSubjects() bool { return len(c.Subjects) > 0 }
func (c PredicateConstraint) HasObjects() bool  { return len(c.Objects) > 0 }

// AttributeConstraint restricts the values an edge's object may take,
// or denies the edge outright (Symbol == "X").
type AttributeConstraint struct {
	User        string
	SubjectType model.IRI
	Predicate   model.IRI
	Symbol      string // one of: X, =, !=, <, <=, >, >=, between, in, notin
	Values      []model.NodeValue
	Subjects    []model.IRI
}

func (c AttributeConstraint) HasSubjects() bool { return len(c.Subjects) > 0 }

// ValidSymbols is the closed operator set entries are validated
// against at load time.
var ValidSymbols = map[string]bool{
	"X": true, "=": true, "!=": true, "<": true, "<=": true,
	">": true, ">=": true, "between": true, "in": true, "notin": true,
}
