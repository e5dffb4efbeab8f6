package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sparqlveil/sparqlveil/internal/logging"
	"github.com/sparqlveil/sparqlveil/pkg/policy"
	"github.com/sparqlveil/sparqlveil/pkg/rewrite"
	"github.com/sparqlveil/sparqlveil/pkg/rewriteerrors"
	"github.com/sparqlveil/sparqlveil/pkg/schema"
	"github.com/sparqlveil/sparqlveil/pkg/sparql"
)

// NewRewriteCommand returns the `rewrite` subcommand, wiring dataset
// load, policy load, SPARQL parse, the rewrite driver, and SPARQL
// serialize in sequence.
func NewRewriteCommand() *cobra.Command {
	var datasetPath string
	var policyPath string
	var user string
	var queryPath string

	rewriteCmd := &cobra.Command{
		Use:     "rewrite",
		Short:   "Rewrite a SPARQL query against a dataset and policy file for a given user",
		Example: "sparqlveil rewrite --dataset data.ttl --policy policy.json --user alice --query q.sparql",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(cmd, datasetPath, policyPath, user, queryPath)
		},
	}

	rewriteCmd.Flags().StringVar(&datasetPath, "dataset", "", "path to the Turtle dataset file")
	rewriteCmd.Flags().StringVar(&policyPath, "policy", "", "path to the policy JSON file")
	rewriteCmd.Flags().StringVar(&user, "user", "", "the user the query is rewritten on behalf of")
	rewriteCmd.Flags().StringVar(&queryPath, "query", "", "path to the SPARQL query file (defaults to stdin)")
	for _, name := range []string{"dataset", "policy", "user"} {
		if err := rewriteCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return rewriteCmd
}

func runRewrite(cmd *cobra.Command, datasetPath, policyPath, user, queryPath string) error {
	datasetFile, err := os.Open(datasetPath)
	if err != nil {
		return rewriteerrors.NewConfigError("dataset", datasetPath, err)
	}
	defer datasetFile.Close()
	dataset, err := schema.LoadTurtle(datasetFile)
	if err != nil {
		return rewriteerrors.NewConfigError("dataset", datasetPath, err)
	}

	policyFile, err := os.Open(policyPath)
	if err != nil {
		return rewriteerrors.NewConfigError("policy", policyPath, err)
	}
	defer policyFile.Close()
	store, warnings, err := policy.Load(policyFile)
	if err != nil {
		return rewriteerrors.NewConfigError("policy", policyPath, err)
	}
	for _, w := range warnings {
		logging.Warn().Err(w).Msg("skipping malformed policy entry")
	}

	queryText, err := readQueryInput(cmd, queryPath)
	if err != nil {
		return err
	}
	query, prefixes, err := sparql.Parse(queryText)
	if err != nil {
		return fmt.Errorf("parsing query: %w", err)
	}

	logging.Info().Str("user", user).Str("query", queryText).Msg("input query")

	driver := rewrite.NewDriver(store, dataset)
	driver.Rewrite(query, user)

	output := sparql.Serialize(query, prefixes)
	logging.Info().Str("user", user).Str("query", output).Msg("output query")
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}

func readQueryInput(cmd *cobra.Command, queryPath string) (string, error) {
	if queryPath == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading query from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(queryPath)
	if err != nil {
		return "", fmt.Errorf("reading query file: %w", err)
	}
	return string(data), nil
}
