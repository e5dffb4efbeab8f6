package filteralgebra

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlveil/sparqlveil/pkg/model"
)

// eval reports whether binding the filter's variable to x satisfies f,
// the brute-force reference semantics the pairwise table is checked
// against.
func eval(f model.Expression, x model.NodeValue) bool {
	switch f.Op {
	case model.OpEq:
		c, err := compare(x, f.Const)
		return err == nil && c == 0
	case model.OpAnd:
		for _, a := range f.Args {
			if !eval(a, x) {
				return false
			}
		}
		return true
	case model.OpOr:
		for _, a := range f.Args {
			if eval(a, x) {
				return true
			}
		}
		return false
	case model.OpNot:
		return !eval(f.Args[0], x)
	default:
		return satisfies(x, f)
	}
}

func intSet(vals ...string) []model.NodeValue {
	out := make([]model.NodeValue, len(vals))
	for i, v := range vals {
		out[i] = intVal(v)
	}
	return out
}

// pairwiseFixtures builds one filter per operator/constant combination
// over a small integer domain. Constants are chosen so that every
// outcome class of the pairwise table is reachable: agreement,
// tightening, range formation, point collapse, and contradiction.
func pairwiseFixtures() []model.Expression {
	var out []model.Expression
	for _, c := range []string{"1", "3", "5"} {
		v := intVal(c)
		out = append(out,
			model.Eq("x", v), model.Ne("x", v),
			model.Lt("x", v), model.Le("x", v),
			model.Gt("x", v), model.Ge("x", v),
		)
	}
	for _, s := range [][]model.NodeValue{
		intSet("1", "3"),
		intSet("3"),
		intSet("2", "4", "6"),
		intSet("0", "1", "2", "3", "4", "5", "6"),
	} {
		out = append(out, model.In("x", s), model.NotIn("x", s))
	}
	return out
}

// TestCombinePairwiseSolutionSets checks the closure property: for
// every ordered pair of simple filters, Combine either reports a
// contradiction (in which case no domain value may satisfy both
// inputs) or returns a filter whose solution set over the domain
// equals the conjunction of the two inputs' solution sets. The domain
// 0..6 contains a witness for every satisfiable conjunction the
// fixture constants can express, so sampling it is exhaustive.
func TestCombinePairwiseSolutionSets(t *testing.T) {
	domain := intSet("0", "1", "2", "3", "4", "5", "6")
	fixtures := pairwiseFixtures()

	for i, f1 := range fixtures {
		for j, f2 := range fixtures {
			name := fmt.Sprintf("%d_%s/%d_%s", i, f1.Op, j, f2.Op)
			t.Run(name, func(t *testing.T) {
				merged, ok := Combine([]model.Expression{f1, f2})
				for _, x := range domain {
					want := eval(f1, x) && eval(f2, x)
					if !ok {
						require.False(t, want,
							"Combine reported contradiction but %s satisfies both inputs", x.Lexical)
						continue
					}
					require.Equal(t, want, eval(merged, x),
						"merged filter disagrees with the conjunction at %s", x.Lexical)
				}
			})
		}
	}
}

// TestCombineTripleFoldSolutionSets spot-checks the left-fold over
// three filters, including folds whose intermediate accumulator is a
// compound And (which the table conjoins rather than dispatches on).
func TestCombineTripleFoldSolutionSets(t *testing.T) {
	domain := intSet("0", "1", "2", "3", "4", "5", "6")
	cases := [][]model.Expression{
		{model.Gt("x", intVal("1")), model.Lt("x", intVal("5")), model.Ne("x", intVal("3"))},
		{model.Ge("x", intVal("1")), model.Le("x", intVal("5")), model.In("x", intSet("0", "2", "4", "6"))},
		{model.NotIn("x", intSet("2", "3")), model.Gt("x", intVal("1")), model.Lt("x", intVal("4"))},
		{model.Lt("x", intVal("5")), model.Gt("x", intVal("3")), model.Ne("x", intVal("4"))},
	}
	for i, filters := range cases {
		merged, ok := Combine(filters)
		for _, x := range domain {
			want := true
			for _, f := range filters {
				if !eval(f, x) {
					want = false
					break
				}
			}
			if !ok {
				require.False(t, want, "case %d: contradiction reported but %s satisfies all inputs", i, x.Lexical)
				continue
			}
			require.Equal(t, want, eval(merged, x), "case %d: fold disagrees at %s", i, x.Lexical)
		}
	}
}
