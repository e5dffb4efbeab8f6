// Package filteralgebra normalizes and merges simple comparison
// filters on a single variable via a closed pairwise-combination
// table, detecting contradictions.
package filteralgebra

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sparqlveil/sparqlveil/pkg/model"
)

const dateLayout = "2006-01-02"

// ErrMalformedDate is returned by compare when a date-typed literal
// cannot be parsed. Violates, which the attribute pass uses, treats
// any compare error as "violates every operator", so the attribute
// pass drops the offending triple.
var ErrMalformedDate = fmt.Errorf("filteralgebra: malformed date literal")

// compare returns -1, 0, or 1 according to whether x is less than,
// equal to, or greater than y, comparing according to x's primitive
// type (the two sides are expected to share a type; Filter Algebra
// callers only ever compare values drawn from the same typed
// constraint). IRI-typed values have no ordering and always compare
// equal.
func compare(x, y model.NodeValue) (int, error) {
	switch x.Type {
	case model.TypeDate:
		xt, err := time.Parse(dateLayout, x.Lexical)
		if err != nil {
			return 0, ErrMalformedDate
		}
		yt, err := time.Parse(dateLayout, y.Lexical)
		if err != nil {
			return 0, ErrMalformedDate
		}
		switch {
		case xt.Before(yt):
			return -1, nil
		case xt.After(yt):
			return 1, nil
		default:
			return 0, nil
		}
	case model.TypeDouble:
		xf, err := strconv.ParseFloat(x.Lexical, 64)
		if err != nil {
			return 0, fmt.Errorf("filteralgebra: malformed double %q: %w", x.Lexical, err)
		}
		yf, err := strconv.ParseFloat(y.Lexical, 64)
		if err != nil {
			return 0, fmt.Errorf("filteralgebra: malformed double %q: %w", y.Lexical, err)
		}
		switch {
		case xf < yf:
			return -1, nil
		case xf > yf:
			return 1, nil
		default:
			return 0, nil
		}
	case model.TypeInteger:
		xi, err := strconv.ParseInt(x.Lexical, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("filteralgebra: malformed integer %q: %w", x.Lexical, err)
		}
		yi, err := strconv.ParseInt(y.Lexical, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("filteralgebra: malformed integer %q: %w", y.Lexical, err)
		}
		switch {
		case xi < yi:
			return -1, nil
		case xi > yi:
			return 1, nil
		default:
			return 0, nil
		}
	case model.TypeString:
		switch {
		case x.Lexical < y.Lexical:
			return -1, nil
		case x.Lexical > y.Lexical:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, nil
	}
}

// Violates reports whether literal fails the permitted range expressed
// by op/bound (and, for "between", upperBound). A malformed date is
// treated as violating every operator, per ErrMalformedDate's contract.
func Violates(op string, literal, bound, upperBound model.NodeValue) bool {
	switch op {
	case "=":
		c, err := compare(literal, bound)
		return err != nil || c != 0
	case "!=":
		c, err := compare(literal, bound)
		return err != nil || c == 0
	case "<":
		c, err := compare(literal, bound)
		return err != nil || c >= 0
	case "<=":
		c, err := compare(literal, bound)
		return err != nil || c > 0
	case ">":
		c, err := compare(literal, bound)
		return err != nil || c <= 0
	case ">=":
		c, err := compare(literal, bound)
		return err != nil || c < 0
	case "between":
		lo, err1 := compare(literal, bound)
		hi, err2 := compare(literal, upperBound)
		if err1 != nil || err2 != nil {
			return true
		}
		return lo < 0 || hi > 0
	default:
		return false
	}
}

// ViolatesSet reports whether literal fails an "in"/"notin" permitted
// set (plain list membership).
func ViolatesSet(op string, literal model.NodeValue, list []model.NodeValue) bool {
	member := false
	for _, v := range list {
		if literal.Equal(v) {
			member = true
			break
		}
	}
	switch op {
	case "in":
		return !member
	case "notin":
		return member
	default:
		return false
	}
}
