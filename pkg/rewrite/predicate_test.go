package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlveil/sparqlveil/pkg/model"
)

func treatsQuery() *model.Query {
	return &model.Query{
		Projection: []model.ProjectionTerm{{Var: "doctor"}, {Var: "patient"}},
		Triples: []model.Triple{
			{Subject: model.Variable("doctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
		},
	}
}

func TestPredicateAbsoluteEdgeDenialDropsTriple(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"alice","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient"}]`)
	q := treatsQuery()
	d.ApplyPredicateConstraints(q, "alice")
	require.Empty(t, q.Triples, "an unscoped edge denial covering the only candidate combination must drop the triple")
	require.Empty(t, q.Projection, "projected variables die with their only triple")
}

func TestPredicateSubjectSetNarrowsVariableSubject(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"alice","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient","subjects":["ex:aliceDoctor"]}]`)
	q := treatsQuery()
	d.ApplyPredicateConstraints(q, "alice")
	require.Len(t, q.Triples, 1)
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpNotIn, q.Filters[0].Op)
	require.Equal(t, model.Variable("doctor"), q.Filters[0].Var)
	require.Contains(t, q.Filters[0].List, model.NodeValue{Lexical: "ex:aliceDoctor", Type: model.TypeIRI})
}

func TestPredicateObjectSetNarrowsVariableObject(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"alice","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient","objects":["ex:bobPatient"]}]`)
	q := treatsQuery()
	d.ApplyPredicateConstraints(q, "alice")
	require.Len(t, q.Triples, 1)
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpNotIn, q.Filters[0].Op)
	require.Equal(t, model.Variable("patient"), q.Filters[0].Var)
}

func TestPredicateCompoundDenialBuildsDisjunction(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"alice","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient","subjects":["ex:aliceDoctor"],"objects":["ex:bobPatient"]}]`)
	q := treatsQuery()
	d.ApplyPredicateConstraints(q, "alice")
	require.Len(t, q.Triples, 1)
	require.Len(t, q.Filters, 1)
	require.Equal(t, model.OpOr, q.Filters[0].Op, "not(s in S and o in O) over two variables is a disjunction of exclusions")
	require.Len(t, q.Filters[0].Args, 2)
	require.Equal(t, model.OpNotIn, q.Filters[0].Args[0].Op)
	require.Equal(t, model.OpNotIn, q.Filters[0].Args[1].Op)
}

func TestPredicateConstantSubjectInDeniedSetDropsTriple(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"alice","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient","subjects":["ex:aliceDoctor"]}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.IRI("ex:aliceDoctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
		},
	}
	d.ApplyPredicateConstraints(q, "alice")
	require.Empty(t, q.Triples, "a denied constant subject turns the only combination into NOT EXISTS, which drops the triple")
}

func TestPredicateConstantSubjectOutsideDeniedSetSurvives(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"alice","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient","subjects":["ex:someoneElse"]}]`)
	q := &model.Query{
		Triples: []model.Triple{
			{Subject: model.IRI("ex:aliceDoctor"), Predicate: model.IRI("ex:treats"), Object: model.Variable("patient")},
		},
	}
	d.ApplyPredicateConstraints(q, "alice")
	require.Len(t, q.Triples, 1)
	require.Empty(t, q.Filters, "a constant subject outside the denied set needs no narrowing at all")
}

func TestPredicateNoMatchingConstraintLeavesQueryAlone(t *testing.T) {
	d := testDriver(t, `[{"constraint":"predicate","user":"someone-else","subjectType":"ex:Doctor","predicate":"ex:treats","objectType":"ex:Patient"}]`)
	q := treatsQuery()
	before := q.Clone()
	d.ApplyPredicateConstraints(q, "alice")
	require.True(t, q.StructurallyEqual(before))
}
