package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sparqlveil/sparqlveil/pkg/model"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
)

// Parse parses a SELECT query over the basic-graph-pattern-plus-filters
// subset: PREFIX declarations, SELECT (DISTINCT) projection,
// WHERE { triples, FILTER(expr) / FILTER NOT EXISTS {triple} },
// GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET. It returns the parsed
// query body as an unbound *model.Query (Bindings is nil; the rewrite
// passes ask the type inferencer for types as they need them) and the
// prefix table in effect, so Serialize can round-trip it unchanged.
func Parse(s string) (*model.Query, PrefixMap, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{toks: toks, prefixes: PrefixMap{}}
	q, err := p.parseQuery()
	if err != nil {
		return nil, nil, err
	}
	return q, p.prefixes, nil
}

type parser struct {
	toks     []token
	pos      int
	prefixes PrefixMap
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// atKeyword reports whether the current token is an identifier matching
// kw case-insensitively (SPARQL keywords are case-insensitive).
func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return fmt.Errorf("sparql: expected %q, got %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) atPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return fmt.Errorf("sparql: expected %q, got %q", s, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) parseQuery() (*model.Query, error) {
	for p.atKeyword("PREFIX") {
		p.advance()
		if p.cur().kind != tokPName && !(p.cur().kind == tokIdent) {
			return nil, fmt.Errorf("sparql: expected prefix name after PREFIX")
		}
		name := strings.TrimSuffix(p.cur().text, ":")
		p.advance()
		if p.cur().kind != tokIRIRef {
			return nil, fmt.Errorf("sparql: expected IRI ref in PREFIX declaration")
		}
		p.prefixes[name] = p.cur().text
		p.advance()
	}

	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	q := &model.Query{}
	if p.atKeyword("DISTINCT") {
		p.advance()
		q.Distinct = true
	}

	if err := p.parseProjection(q); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if err := p.parseWhereGroup(q); err != nil {
		return nil, err
	}

	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}

	return q, nil
}

// parseProjection parses the SELECT list. "SELECT *" is not part of
// this grammar: the rewrite passes need each projected variable named
// up front.
func (p *parser) parseProjection(q *model.Query) error {
	for {
		if p.cur().kind == tokVar {
			q.Projection = append(q.Projection, model.ProjectionTerm{Var: model.Variable(p.advance().text)})
			continue
		}
		if p.atPunct("(") {
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return err
			}
			if p.cur().kind != tokVar {
				return fmt.Errorf("sparql: expected variable after AS")
			}
			v := model.Variable(p.advance().text)
			if err := p.expectPunct(")"); err != nil {
				return err
			}
			q.Projection = append(q.Projection, model.ProjectionTerm{Var: v, Expr: &expr})
			continue
		}
		break
	}
	if len(q.Projection) == 0 {
		return fmt.Errorf("sparql: expected at least one projected variable")
	}
	return nil
}

func (p *parser) parseWhereGroup(q *model.Query) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for !p.atPunct("}") {
		if p.atKeyword("FILTER") {
			p.advance()
			f, err := p.parseFilter()
			if err != nil {
				return err
			}
			q.Filters = append(q.Filters, f)
			continue
		}
		t, err := p.parseTriple()
		if err != nil {
			return err
		}
		q.Triples = append(q.Triples, t)
		if p.atPunct(".") {
			p.advance()
		}
	}
	return p.expectPunct("}")
}

func (p *parser) parseFilter() (model.Expression, error) {
	if p.atKeyword("NOT") {
		p.advance()
		if err := p.expectKeyword("EXISTS"); err != nil {
			return model.Expression{}, err
		}
		if err := p.expectPunct("{"); err != nil {
			return model.Expression{}, err
		}
		t, err := p.parseTriple()
		if err != nil {
			return model.Expression{}, err
		}
		if p.atPunct(".") {
			p.advance()
		}
		if err := p.expectPunct("}"); err != nil {
			return model.Expression{}, err
		}
		return model.NotExists(t), nil
	}
	if err := p.expectPunct("("); err != nil {
		return model.Expression{}, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return model.Expression{}, err
	}
	if err := p.expectPunct(")"); err != nil {
		return model.Expression{}, err
	}
	return expr, nil
}

func (p *parser) parseTriple() (model.Triple, error) {
	subj, err := p.parseVarOrTerm(false)
	if err != nil {
		return model.Triple{}, err
	}
	pred, err := p.parseVarOrTerm(true)
	if err != nil {
		return model.Triple{}, err
	}
	obj, err := p.parseVarOrTerm(false)
	if err != nil {
		return model.Triple{}, err
	}
	return model.Triple{Subject: subj, Predicate: pred, Object: obj}, nil
}

func (p *parser) parseVarOrTerm(isPredicate bool) (model.NodeID, error) {
	t := p.cur()
	switch t.kind {
	case tokVar:
		p.advance()
		return model.Variable(t.text), nil
	case tokIRIRef:
		p.advance()
		return model.IRI(t.text), nil
	case tokPName:
		p.advance()
		return p.resolvePName(t.text)
	case tokIdent:
		if isPredicate && t.text == "a" {
			p.advance()
			return schema.RDFType, nil
		}
		p.advance()
		return model.IRI(t.text), nil
	case tokString, tokNumber:
		return p.parseLiteralTerm()
	}
	return nil, fmt.Errorf("sparql: unexpected token %q in triple pattern", t.text)
}

func (p *parser) resolvePName(tok string) (model.IRI, error) {
	parts := strings.SplitN(tok, ":", 2)
	base, ok := p.prefixes[parts[0]]
	if !ok {
		return "", fmt.Errorf("sparql: unknown prefix %q", parts[0])
	}
	local := ""
	if len(parts) > 1 {
		local = parts[1]
	}
	return model.IRI(base + local), nil
}

func (p *parser) parseLiteralTerm() (model.NodeID, error) {
	v, err := p.parseNodeValue()
	if err != nil {
		return nil, err
	}
	return model.Literal{Lexical: v.Lexical, Type: v.Type}, nil
}

// parseNodeValue parses one constant: a quoted string (optionally with
// a ^^<datatype>/@lang suffix), a bare number, or an IRI term used as a
// constraint value.
func (p *parser) parseNodeValue() (model.NodeValue, error) {
	t := p.cur()
	switch t.kind {
	case tokString:
		p.advance()
		return model.NodeValue{Lexical: t.text, Type: primitiveTypeFromSuffix(t.suffix)}, nil
	case tokNumber:
		p.advance()
		ty := model.TypeInteger
		if strings.Contains(t.text, ".") {
			ty = model.TypeDouble
		}
		return model.NodeValue{Lexical: t.text, Type: ty}, nil
	case tokIRIRef:
		p.advance()
		return model.NodeValue{Lexical: t.text, Type: model.TypeIRI}, nil
	case tokPName:
		p.advance()
		iri, err := p.resolvePName(t.text)
		if err != nil {
			return model.NodeValue{}, err
		}
		return model.NodeValue{Lexical: string(iri), Type: model.TypeIRI}, nil
	}
	return model.NodeValue{}, fmt.Errorf("sparql: expected a literal or IRI value, got %q", t.text)
}

func primitiveTypeFromSuffix(suffix string) model.PrimitiveType {
	if suffix == "" {
		return model.TypeString
	}
	lower := strings.ToLower(suffix)
	switch {
	case strings.Contains(lower, "integer") || strings.Contains(lower, "int"):
		return model.TypeInteger
	case strings.Contains(lower, "double") || strings.Contains(lower, "float") || strings.Contains(lower, "decimal"):
		return model.TypeDouble
	case strings.Contains(lower, "date"):
		return model.TypeDate
	default:
		return model.TypeString
	}
}

// Expression grammar (SPARQL's standard precedence, restricted to the
// rewriter's operator set): OrExpr := AndExpr ("||" AndExpr)*;
// AndExpr := UnaryExpr ("&&" UnaryExpr)*; UnaryExpr := "!" UnaryExpr |
// PrimaryExpr; PrimaryExpr := "(" OrExpr ")" | Comparison.

func (p *parser) parseExpression() (model.Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (model.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return model.Expression{}, err
	}
	for p.cur().kind == tokOp && p.cur().text == "||" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return model.Expression{}, err
		}
		left = model.Expression{Op: model.OpOr, Args: []model.Expression{left, right}}
	}
	return left, nil
}

func (p *parser) parseAnd() (model.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return model.Expression{}, err
	}
	for p.cur().kind == tokOp && p.cur().text == "&&" {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return model.Expression{}, err
		}
		left = model.And(left, right)
	}
	return left, nil
}

func (p *parser) parseUnary() (model.Expression, error) {
	if p.cur().kind == tokOp && p.cur().text == "!" {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return model.Expression{}, err
		}
		return model.Expression{Op: model.OpNot, Args: []model.Expression{inner}}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (model.Expression, error) {
	if p.atPunct("(") {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return model.Expression{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return model.Expression{}, err
		}
		return expr, nil
	}
	return p.parseComparison()
}

// parseComparison handles the leaf comparison forms:
// Var op Const, Var IN (list), Var NOT IN (list).
func (p *parser) parseComparison() (model.Expression, error) {
	if p.cur().kind != tokVar {
		return model.Expression{}, fmt.Errorf("sparql: expected a variable in filter expression, got %q", p.cur().text)
	}
	v := model.Variable(p.advance().text)

	negatedIn := false
	if p.atKeyword("NOT") {
		p.advance()
		negatedIn = true
	}
	if p.atKeyword("IN") {
		p.advance()
		list, err := p.parseValueList()
		if err != nil {
			return model.Expression{}, err
		}
		if negatedIn {
			return model.NotIn(v, list), nil
		}
		return model.In(v, list), nil
	}
	if negatedIn {
		return model.Expression{}, fmt.Errorf("sparql: expected IN after NOT")
	}

	if p.cur().kind != tokOp {
		return model.Expression{}, fmt.Errorf("sparql: expected a comparison operator, got %q", p.cur().text)
	}
	op := p.advance().text
	val, err := p.parseNodeValue()
	if err != nil {
		return model.Expression{}, err
	}
	switch op {
	case "=":
		return model.Eq(v, val), nil
	case "!=":
		return model.Ne(v, val), nil
	case "<":
		return model.Lt(v, val), nil
	case "<=":
		return model.Le(v, val), nil
	case ">":
		return model.Gt(v, val), nil
	case ">=":
		return model.Ge(v, val), nil
	}
	return model.Expression{}, fmt.Errorf("sparql: unsupported comparison operator %q", op)
}

func (p *parser) parseValueList() ([]model.NodeValue, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var list []model.NodeValue
	for {
		v, err := p.parseNodeValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseSolutionModifiers(q *model.Query) error {
	if p.atKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for p.cur().kind == tokVar {
			q.GroupBy = append(q.GroupBy, model.Variable(p.advance().text))
		}
	}
	if p.atKeyword("HAVING") {
		p.advance()
		if err := p.expectPunct("("); err != nil {
			return err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		if err := p.expectPunct(")"); err != nil {
			return err
		}
		q.Having = append(q.Having, expr)
	}
	if p.atKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			desc := false
			if p.atKeyword("ASC") || p.atKeyword("DESC") {
				desc = p.atKeyword("DESC")
				p.advance()
				if err := p.expectPunct("("); err != nil {
					return err
				}
				if p.cur().kind != tokVar {
					return fmt.Errorf("sparql: expected variable in ORDER BY")
				}
				v := model.Variable(p.advance().text)
				if err := p.expectPunct(")"); err != nil {
					return err
				}
				q.OrderBy = append(q.OrderBy, model.OrderTerm{Var: v, Descending: desc})
				continue
			}
			if p.cur().kind == tokVar {
				q.OrderBy = append(q.OrderBy, model.OrderTerm{Var: model.Variable(p.advance().text)})
				continue
			}
			break
		}
	}
	if p.atKeyword("LIMIT") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return err
		}
		q.Limit = &n
	}
	if p.atKeyword("OFFSET") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return err
		}
		q.Offset = &n
	}
	return nil
}

func (p *parser) parseIntLiteral() (int, error) {
	if p.cur().kind != tokNumber {
		return 0, fmt.Errorf("sparql: expected an integer, got %q", p.cur().text)
	}
	n, err := strconv.Atoi(p.advance().text)
	if err != nil {
		return 0, fmt.Errorf("sparql: malformed integer: %w", err)
	}
	return n, nil
}
