package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/policy"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
)

func testDataset() *schema.Dataset {
	return schema.NewDataset([]model.Triple{
		{Subject: model.IRI("ex:treats"), Predicate: schema.RDFSDomain, Object: model.IRI("ex:Doctor")},
		{Subject: model.IRI("ex:treats"), Predicate: schema.RDFSRange, Object: model.IRI("ex:Patient")},
		{Subject: model.IRI("ex:ssn"), Predicate: schema.RDFSDomain, Object: model.IRI("ex:Patient")},
		{Subject: model.IRI("ex:aliceDoctor"), Predicate: schema.RDFType, Object: model.IRI("ex:Doctor")},
		{Subject: model.IRI("ex:bobPatient"), Predicate: schema.RDFType, Object: model.IRI("ex:Patient")},
		{Subject: model.IRI("ex:aliceDoctor"), Predicate: model.IRI("ex:treats"), Object: model.IRI("ex:bobPatient")},
	})
}

func testDriver(t *testing.T, policyJSON string) *Driver {
	t.Helper()
	store, warnings, err := policy.Load(strings.NewReader(policyJSON))
	require.NoError(t, err)
	require.Empty(t, warnings)
	return NewDriver(store, testDataset())
}

func TestNodeClassDeny(t *testing.T) {
	d := testDriver(t, `[{"constraint":"node","user":"alice","type":"ex:Doctor"}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.Variable("doctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
		},
	}
	d.ApplyNodeConstraints(q, "alice")
	require.Empty(t, q.Triples, "a class-level node denial covering every candidate type must drop the triple")
}

func TestInstanceDeny(t *testing.T) {
	d := testDriver(t, `[{"constraint":"node","user":"alice","type":"ex:Patient","nodes":["ex:bobPatient"]}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.Variable("doctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
		},
	}
	d.ApplyNodeConstraints(q, "alice")
	require.Len(t, q.Triples, 1, "instance-level denial narrows via a filter, it does not drop the triple")
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpNotIn, q.Filters[0].Op)
	require.Equal(t, model.Variable("patient"), q.Filters[0].Var)
	require.Contains(t, q.Filters[0].List, model.NodeValue{Lexical: "ex:bobPatient", Type: model.TypeIRI})
}

func TestAttributeLessThanOnVariable(t *testing.T) {
	d := testDriver(t, `[{"constraint":"attribute","user":"alice","subjectType":"ex:Patient","predicate":"ex:ssn","symbol":"<","values":["100"],"valueType":"integer"}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.Variable("patient"), Predicate: model.IRI("ex:treats"), Object: model.Variable("doctor")},
			{Subject: model.Variable("patient"), Predicate: model.IRI("ex:ssn"), Object: model.Variable("ssn")},
		},
	}
	d.ApplyAttributeConstraints(q, "alice")
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpLt, q.Filters[0].Op)
	require.Equal(t, model.Variable("ssn"), q.Filters[0].Var)
}

func TestAttributeLessThanOnViolatingLiteralDropsTriple(t *testing.T) {
	d := testDriver(t, `[{"constraint":"attribute","user":"alice","subjectType":"ex:Patient","predicate":"ex:ssn","symbol":"<","values":["100"],"valueType":"integer"}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.IRI("ex:bobPatient"), Predicate: model.IRI("ex:ssn"), Object: model.Literal{Lexical: "999", Type: model.TypeInteger}},
		},
	}
	d.ApplyAttributeConstraints(q, "alice")
	require.Empty(t, q.Triples, "a violating literal on a ground predicate must drop the triple, not add a filter")
}

func TestAttributeInRangeLiteralSurvives(t *testing.T) {
	d := testDriver(t, `[{"constraint":"attribute","user":"alice","subjectType":"ex:Patient","predicate":"ex:ssn","symbol":"<","values":["1000"],"valueType":"integer"}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.IRI("ex:bobPatient"), Predicate: model.IRI("ex:ssn"), Object: model.Literal{Lexical: "999", Type: model.TypeInteger}},
		},
	}
	d.ApplyAttributeConstraints(q, "alice")
	require.Len(t, q.Triples, 1, "a compliant literal must not be dropped")
}

func TestFilterMergeContradictionDropsTriple(t *testing.T) {
	d := testDriver(t, `[{"constraint":"attribute","user":"alice","subjectType":"ex:Patient","predicate":"ex:ssn","symbol":"<","values":["50"],"valueType":"integer"}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.Variable("patient"), Predicate: model.IRI("ex:ssn"), Object: model.Variable("ssn")},
		},
		Filters: []model.Expression{model.Gt("ssn", model.NodeValue{Lexical: "100", Type: model.TypeInteger})},
	}
	d.ApplyAttributeConstraints(q, "alice")
	require.Empty(t, q.Triples, "ssn > 100 and ssn < 50 is contradictory and must drop the triple producing the object variable")
	require.Empty(t, q.Filters)
}

func TestFilterMergeTightensBound(t *testing.T) {
	d := testDriver(t, `[{"constraint":"attribute","user":"alice","subjectType":"ex:Patient","predicate":"ex:ssn","symbol":"<","values":["50"],"valueType":"integer"}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.Variable("patient"), Predicate: model.IRI("ex:ssn"), Object: model.Variable("ssn")},
		},
		Filters: []model.Expression{model.Lt("ssn", model.NodeValue{Lexical: "80", Type: model.TypeInteger})},
	}
	d.ApplyAttributeConstraints(q, "alice")
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpLt, q.Filters[0].Op)
	require.Equal(t, model.NodeValue{Lexical: "50", Type: model.TypeInteger}, q.Filters[0].Const)
}

func TestRewriteEmptyPolicyIsNoOp(t *testing.T) {
	d := testDriver(t, `[]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.Variable("doctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
		},
	}
	before := q.Clone()
	d.Rewrite(q, "alice")
	require.True(t, q.StructurallyEqual(before), "an empty policy must never narrow the query")
}
