package schema

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sparqlveil/sparqlveil/pkg/model"
)

// LoadTurtle reads a minimal line-oriented subset of Turtle: one
// statement per line, "@prefix ns: <iri> ." directives, <iri> and
// ns:local terms, the "a" keyword for rdf:type, and plain or
// "value"^^<datatype-iri> literals. No blank-node "[...]" or
// collection "(...)" syntax, and no multi-line statements. This is
// deliberately not a general Turtle implementation.
func LoadTurtle(r io.Reader) (*Dataset, error) {
	prefixes := map[string]string{}
	var triples []model.Triple

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@prefix") {
			if err := parsePrefixLine(line, prefixes); err != nil {
				return nil, fmt.Errorf("schema: line %d: %w", lineNo, err)
			}
			continue
		}
		line = strings.TrimSuffix(strings.TrimSpace(line), ".")
		fields, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("schema: line %d: %w", lineNo, err)
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("schema: line %d: expected 3 terms, got %d", lineNo, len(fields))
		}
		subj, err := resolveTerm(fields[0], prefixes, false)
		if err != nil {
			return nil, fmt.Errorf("schema: line %d: subject: %w", lineNo, err)
		}
		pred, err := resolveTerm(fields[1], prefixes, true)
		if err != nil {
			return nil, fmt.Errorf("schema: line %d: predicate: %w", lineNo, err)
		}
		obj, err := resolveTerm(fields[2], prefixes, false)
		if err != nil {
			return nil, fmt.Errorf("schema: line %d: object: %w", lineNo, err)
		}
		triples = append(triples, model.Triple{Subject: subj, Predicate: pred, Object: obj})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewDataset(triples), nil
}

func stripComment(line string) string {
	inLiteral := false
	inIRI := false
	for i, r := range line {
		switch {
		case r == '"' && !inIRI:
			inLiteral = !inLiteral
		case r == '<' && !inLiteral:
			inIRI = true
		case r == '>' && !inLiteral:
			inIRI = false
		case r == '#' && !inLiteral && !inIRI:
			return line[:i]
		}
	}
	return line
}

func parsePrefixLine(line string, prefixes map[string]string) error {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), "."))
	if len(fields) != 3 {
		return fmt.Errorf("malformed @prefix directive %q", line)
	}
	name := strings.TrimSuffix(fields[1], ":")
	iri := strings.Trim(fields[2], "<>")
	prefixes[name] = iri
	return nil
}

// tokenize splits a statement line into its three terms, keeping
// quoted literals (which may contain spaces) intact.
func tokenize(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if inQuote {
		return nil, fmt.Errorf("unterminated literal in %q", line)
	}
	return fields, nil
}

func resolveTerm(tok string, prefixes map[string]string, isPredicate bool) (model.NodeID, error) {
	switch {
	case tok == "a" && isPredicate:
		return RDFType, nil
	case tok == "rdf:type" || tok == "rdfs:domain" || tok == "rdfs:range" || tok == "rdfs:subClassOf":
		return model.IRI(tok), nil
	case strings.HasPrefix(tok, "?"):
		return model.Variable(tok[1:]), nil
	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return model.IRI(tok[1 : len(tok)-1]), nil
	case strings.HasPrefix(tok, "_:"):
		return model.Blank(tok[2:]), nil
	case strings.HasPrefix(tok, "\""):
		return resolveLiteral(tok)
	case strings.Contains(tok, ":"):
		parts := strings.SplitN(tok, ":", 2)
		base, ok := prefixes[parts[0]]
		if !ok {
			return nil, fmt.Errorf("unknown prefix %q", parts[0])
		}
		return model.IRI(base + parts[1]), nil
	default:
		return model.IRI(tok), nil
	}
}

func resolveLiteral(tok string) (model.NodeID, error) {
	end := strings.LastIndex(tok, "\"")
	if !strings.HasPrefix(tok, "\"") || end <= 0 {
		return nil, fmt.Errorf("malformed literal %q", tok)
	}
	lexical := tok[1:end]
	suffix := tok[end+1:]
	switch {
	case strings.HasPrefix(suffix, "^^"):
		dtype := strings.Trim(suffix[2:], "<>")
		return model.Literal{Lexical: lexical, Type: primitiveTypeFromIRI(dtype)}, nil
	case strings.HasPrefix(suffix, "@"):
		return model.Literal{Lexical: lexical, Type: model.TypeString}, nil
	default:
		return model.Literal{Lexical: lexical, Type: model.TypeString}, nil
	}
}

func primitiveTypeFromIRI(dtype string) model.PrimitiveType {
	switch {
	case strings.HasSuffix(dtype, "integer") || strings.HasSuffix(dtype, "int"):
		return model.TypeInteger
	case strings.HasSuffix(dtype, "double") || strings.HasSuffix(dtype, "float") || strings.HasSuffix(dtype, "decimal"):
		return model.TypeDouble
	case strings.HasSuffix(dtype, "date") || strings.HasSuffix(dtype, "dateTime"):
		return model.TypeDate
	default:
		return model.TypeString
	}
}
