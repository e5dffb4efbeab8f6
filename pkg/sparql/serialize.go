package sparql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sparqlveil/sparqlveil/pkg/model"
)

// Serialize renders q as SPARQL text using the given prefix table, the
// inverse of Parse. It always produces IRIs in full <...> form rather
// than re-abbreviating them against prefixes, since the Rewrite Driver
// may introduce IRIs (policy-derived constants) that were never given
// a prefixed form on input; the PREFIX header is still emitted so a
// query round-tripped through Parse/Serialize without added IRIs reads
// identically to its input aside from that expansion.
func Serialize(q *model.Query, prefixes PrefixMap) string {
	var sb strings.Builder

	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "PREFIX %s: <%s>\n", name, prefixes[name])
	}
	if len(names) > 0 {
		sb.WriteByte('\n')
	}

	sb.WriteString("SELECT ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(q.Projection) == 0 {
		sb.WriteString("*")
	} else {
		for i, p := range q.Projection {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if p.Expr == nil {
				fmt.Fprintf(&sb, "?%s", string(p.Var))
			} else {
				fmt.Fprintf(&sb, "(%s AS ?%s)", serializeExpr(*p.Expr), string(p.Var))
			}
		}
	}
	sb.WriteString("\nWHERE {\n")
	for _, t := range q.Triples {
		fmt.Fprintf(&sb, "  %s %s %s .\n", serializeNode(t.Subject), serializeNode(t.Predicate), serializeNode(t.Object))
	}
	for _, f := range q.Filters {
		if f.Op == model.OpNotExists {
			fmt.Fprintf(&sb, "  FILTER NOT EXISTS { %s %s %s . }\n",
				serializeNode(f.Pattern.Subject), serializeNode(f.Pattern.Predicate), serializeNode(f.Pattern.Object))
			continue
		}
		fmt.Fprintf(&sb, "  FILTER (%s)\n", serializeExpr(f))
	}
	sb.WriteString("}")

	if len(q.GroupBy) > 0 {
		sb.WriteString("\nGROUP BY")
		for _, v := range q.GroupBy {
			fmt.Fprintf(&sb, " ?%s", string(v))
		}
	}
	for _, h := range q.Having {
		fmt.Fprintf(&sb, "\nHAVING (%s)", serializeExpr(h))
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString("\nORDER BY")
		for _, o := range q.OrderBy {
			if o.Descending {
				fmt.Fprintf(&sb, " DESC(?%s)", string(o.Var))
			} else {
				fmt.Fprintf(&sb, " ?%s", string(o.Var))
			}
		}
	}
	if q.Limit != nil {
		fmt.Fprintf(&sb, "\nLIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&sb, "\nOFFSET %d", *q.Offset)
	}
	sb.WriteByte('\n')
	return sb.String()
}

func serializeNode(n model.NodeID) string {
	switch v := n.(type) {
	case model.Variable:
		return "?" + string(v)
	case model.IRI:
		return "<" + string(v) + ">"
	case model.Blank:
		return "_:" + string(v)
	case model.Literal:
		return serializeNodeValue(model.NodeValue{Lexical: v.Lexical, Type: v.Type})
	default:
		return ""
	}
}

func serializeNodeValue(v model.NodeValue) string {
	switch v.Type {
	case model.TypeIRI:
		return "<" + v.Lexical + ">"
	case model.TypeInteger, model.TypeDouble:
		return v.Lexical
	case model.TypeDate:
		return fmt.Sprintf(`"%s"^^<http://www.w3.org/2001/XMLSchema#date>`, v.Lexical)
	default:
		return strconv.Quote(v.Lexical)
	}
}

func serializeExpr(e model.Expression) string {
	switch e.Op {
	case model.OpAnd:
		return joinArgs(e.Args, " && ")
	case model.OpOr:
		return joinArgs(e.Args, " || ")
	case model.OpNot:
		return "!" + parenthesize(e.Args[0])
	case model.OpIn:
		return fmt.Sprintf("?%s IN (%s)", string(e.Var), joinValues(e.List))
	case model.OpNotIn:
		return fmt.Sprintf("?%s NOT IN (%s)", string(e.Var), joinValues(e.List))
	case model.OpNotExists:
		return fmt.Sprintf("NOT EXISTS { %s %s %s . }",
			serializeNode(e.Pattern.Subject), serializeNode(e.Pattern.Predicate), serializeNode(e.Pattern.Object))
	default:
		return fmt.Sprintf("?%s %s %s", string(e.Var), opSymbol(e.Op), serializeNodeValue(e.Const))
	}
}

func parenthesize(e model.Expression) string {
	if e.Op == model.OpAnd || e.Op == model.OpOr {
		return "(" + serializeExpr(e) + ")"
	}
	return serializeExpr(e)
}

func joinArgs(args []model.Expression, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = parenthesize(a)
	}
	return strings.Join(parts, sep)
}

func joinValues(list []model.NodeValue) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = serializeNodeValue(v)
	}
	return strings.Join(parts, ", ")
}

func opSymbol(op model.ExprOp) string {
	switch op {
	case model.OpEq:
		return "="
	case model.OpNe:
		return "!="
	case model.OpLt:
		return "<"
	case model.OpLe:
		return "<="
	case model.OpGt:
		return ">"
	case model.OpGe:
		return ">="
	default:
		return "?"
	}
}
