package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
	"github.com/sparqlveil/sparqlveil/pkg/sparql"
)

// peopleDataset mirrors the illustrative schema used throughout the
// end-to-end scenarios: Doctor is a subclass of Person, ex:name has
// domain Person, and both a Doctor and a plain Person carry a name, so
// the subject of an ex:name triple has two candidate classes.
func peopleDataset() *schema.Dataset {
	return schema.NewDataset([]model.Triple{
		{Subject: model.IRI("ex:Doctor"), Predicate: schema.RDFSSubClassOf, Object: model.IRI("ex:Person")},
		{Subject: model.IRI("ex:name"), Predicate: schema.RDFSDomain, Object: model.IRI("ex:Person")},
		{Subject: model.IRI("ex:aliceDoctor"), Predicate: schema.RDFType, Object: model.IRI("ex:Doctor")},
		{Subject: model.IRI("ex:bobPerson"), Predicate: schema.RDFType, Object: model.IRI("ex:Person")},
		{Subject: model.IRI("ex:aliceDoctor"), Predicate: model.IRI("ex:name"), Object: model.Literal{Lexical: "Alice", Type: model.TypeString}},
		{Subject: model.IRI("ex:bobPerson"), Predicate: model.IRI("ex:name"), Object: model.Literal{Lexical: "Bob", Type: model.TypeString}},
	})
}

func nameQuery() *model.Query {
	return &model.Query{
		Projection: []model.ProjectionTerm{{Var: "x"}, {Var: "n"}},
		Triples: []model.Triple{
			{Subject: model.Variable("x"), Predicate: model.IRI("ex:name"), Object: model.Variable("n")},
		},
	}
}

func peopleDriver(t *testing.T, policyJSON string) *Driver {
	t.Helper()
	d := testDriver(t, policyJSON)
	d.Oracle = peopleDataset()
	return d
}

func TestNodeClassDenyAddsNotExistsFilter(t *testing.T) {
	d := peopleDriver(t, `[{"constraint":"node","user":"guest","type":"ex:Doctor"}]`)
	q := nameQuery()
	d.ApplyNodeConstraints(q, "guest")
	require.Len(t, q.Triples, 1, "the variable can still denote a plain Person, so the triple stays")
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpNotExists, q.Filters[0].Op)
	require.True(t, q.Filters[0].Pattern.Equal(model.Triple{
		Subject: model.Variable("x"), Predicate: schema.RDFType, Object: model.IRI("ex:Doctor"),
	}))
}

func TestNodeClassDenyNotExistsIsDeduplicated(t *testing.T) {
	d := peopleDriver(t, `[{"constraint":"node","user":"guest","type":"ex:Doctor"}]`)
	q := nameQuery()
	d.ApplyNodeConstraints(q, "guest")
	d.ApplyNodeConstraints(q, "guest")
	require.Len(t, q.Filters, 1, "re-running the pass must not insert a second structurally equal NOT EXISTS filter")
}

func TestInstanceDenyOnConstantDropsTriplesAndProjection(t *testing.T) {
	d := peopleDriver(t, `[{"constraint":"node","user":"guest","type":"ex:Doctor","nodes":["ex:aliceDoctor"]}]`)
	q := &model.Query{
		Projection: []model.ProjectionTerm{{Var: "n"}},
		Triples: []model.Triple{
			{Subject: model.IRI("ex:aliceDoctor"), Predicate: model.IRI("ex:name"), Object: model.Variable("n")},
		},
	}
	d.ApplyNodeConstraints(q, "guest")
	require.Empty(t, q.Triples)
	require.Empty(t, q.Projection, "the projected variable died with the denied constant's triple")
}

func TestRewriteIsIdempotent(t *testing.T) {
	d := testDriver(t, `[
		{"constraint":"node","user":"alice","type":"ex:Patient","nodes":["ex:bobPatient"]},
		{"constraint":"attribute","user":"alice","subjectType":"ex:Patient","predicate":"ex:ssn","symbol":"<","values":["100"],"valueType":"integer"}
	]`)
	q := &model.Query{
		Projection: []model.ProjectionTerm{{Var: "doctor"}, {Var: "ssn"}},
		Triples: []model.Triple{
			{Subject: model.Variable("doctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
			{Subject: model.Variable("patient"), Predicate: model.IRI("ex:ssn"), Object: model.Variable("ssn")},
		},
	}
	d.Rewrite(q, "alice")
	require.NotEmpty(t, q.Filters, "the policy must have narrowed the query")
	once := q.Clone()
	d.Rewrite(q, "alice")
	require.True(t, q.StructurallyEqual(once), "a second rewrite of an already-narrowed query must change nothing")
}

func TestEmptyPolicyLeavesQueryUntouched(t *testing.T) {
	d := peopleDriver(t, `[]`)
	q := nameQuery()
	q.Distinct = true
	limit := 10
	q.Limit = &limit
	before := q.Clone()
	d.Rewrite(q, "guest")
	require.True(t, q.StructurallyEqual(before))
	require.Equal(t, before.Distinct, q.Distinct)
	require.Equal(t, *before.Limit, *q.Limit)
}

func TestEndToEndAttributeBoundThroughSparqlText(t *testing.T) {
	dataset := schema.NewDataset([]model.Triple{
		{Subject: model.IRI("http://example.org/hasSalary"), Predicate: schema.RDFSDomain, Object: model.IRI("http://example.org/Person")},
		{Subject: model.IRI("http://example.org/alice"), Predicate: schema.RDFType, Object: model.IRI("http://example.org/Person")},
		{Subject: model.IRI("http://example.org/alice"), Predicate: model.IRI("http://example.org/hasSalary"), Object: model.Literal{Lexical: "2000", Type: model.TypeInteger}},
	})
	d := testDriver(t, `[{"constraint":"attribute","user":"guest","subjectType":"http://example.org/Person","predicate":"http://example.org/hasSalary","symbol":"<","values":["1000"],"valueType":"integer"}]`)
	d.Oracle = dataset

	q, prefixes, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?s ?v WHERE {
			?s ex:hasSalary ?v .
		}
	`)
	require.NoError(t, err)

	d.Rewrite(q, "guest")

	out := sparql.Serialize(q, prefixes)
	require.Contains(t, out, "PREFIX ex: <http://example.org/>")
	require.Contains(t, out, "?s <http://example.org/hasSalary> ?v .")
	require.Contains(t, out, "FILTER (?v < 1000)")
}

func TestEndToEndViolatingLiteralYieldsEmptyPattern(t *testing.T) {
	dataset := schema.NewDataset([]model.Triple{
		{Subject: model.IRI("http://example.org/hasSalary"), Predicate: schema.RDFSDomain, Object: model.IRI("http://example.org/Person")},
		{Subject: model.IRI("http://example.org/alice"), Predicate: schema.RDFType, Object: model.IRI("http://example.org/Person")},
	})
	d := testDriver(t, `[{"constraint":"attribute","user":"guest","subjectType":"http://example.org/Person","predicate":"http://example.org/hasSalary","symbol":"<","values":["1000"],"valueType":"integer"}]`)
	d.Oracle = dataset

	q, _, err := sparql.Parse(`
		PREFIX ex: <http://example.org/>
		SELECT ?s WHERE {
			ex:alice ex:hasSalary 5000 .
		}
	`)
	require.NoError(t, err)

	d.Rewrite(q, "guest")
	require.Empty(t, q.Triples, "a literal outside the permitted range must elide the triple, leaving an empty pattern")
}
