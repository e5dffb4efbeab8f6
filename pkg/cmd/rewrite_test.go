package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlveil/sparqlveil/pkg/rewriteerrors"
)

const testTurtle = `@prefix ex: <http://example.org/> .
ex:hasSalary rdfs:domain ex:Person .
ex:alice a ex:Person .
ex:alice ex:hasSalary "2000"^^<http://www.w3.org/2001/XMLSchema#integer> .
`

const testPolicy = `[{"constraint":"attribute","user":"guest","subjectType":"http://example.org/Person","predicate":"http://example.org/hasSalary","symbol":"<","values":["1000"],"valueType":"integer"}]`

const testQuery = `PREFIX ex: <http://example.org/>
SELECT ?s ?v WHERE {
	?s ex:hasSalary ?v .
}
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRewriteCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	datasetPath := writeFixture(t, dir, "dataset.ttl", testTurtle)
	policyPath := writeFixture(t, dir, "policy.json", testPolicy)
	queryPath := writeFixture(t, dir, "query.sparql", testQuery)

	root := NewRootCommand("sparqlveil")
	root.AddCommand(NewRewriteCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"rewrite",
		"--dataset", datasetPath,
		"--policy", policyPath,
		"--user", "guest",
		"--query", queryPath,
		"--log-level", "error",
	})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "SELECT ?s ?v")
	require.Contains(t, out.String(), "FILTER (?v < 1000)")
}

func TestRewriteCommandReadsQueryFromStdin(t *testing.T) {
	dir := t.TempDir()
	datasetPath := writeFixture(t, dir, "dataset.ttl", testTurtle)
	policyPath := writeFixture(t, dir, "policy.json", `[]`)

	root := NewRootCommand("sparqlveil")
	root.AddCommand(NewRewriteCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(bytes.NewBufferString(testQuery))
	root.SetArgs([]string{
		"rewrite",
		"--dataset", datasetPath,
		"--policy", policyPath,
		"--user", "guest",
		"--log-level", "error",
	})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "SELECT ?s ?v")
	require.NotContains(t, out.String(), "FILTER", "an empty policy must not narrow the query")
}

func TestRewriteCommandMissingDatasetIsConfigError(t *testing.T) {
	dir := t.TempDir()
	policyPath := writeFixture(t, dir, "policy.json", `[]`)

	root := NewRootCommand("sparqlveil")
	root.AddCommand(NewRewriteCommand())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"rewrite",
		"--dataset", filepath.Join(dir, "missing.ttl"),
		"--policy", policyPath,
		"--user", "guest",
		"--log-level", "error",
	})

	err := root.Execute()
	require.Error(t, err)
	var configErr rewriteerrors.ConfigError
	require.True(t, errors.As(err, &configErr))
	require.Equal(t, filepath.Join(dir, "missing.ttl"), configErr.Path())
}
