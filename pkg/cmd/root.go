package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sparqlveil/sparqlveil/internal/logging"
)

var logLevel string

// RegisterRootFlags wires the ambient flags every subcommand inherits.
func RegisterRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "verbosity of logging (trace, debug, info, warn, error, fatal, panic)")
}

// SetupLogging parses the --log-level flag and installs the resulting
// logger as the process-wide logger, before any subcommand's RunE
// executes.
func SetupLogging(flags *pflag.FlagSet) error {
	levelStr, err := flags.GetString("log-level")
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	logger := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()
	logging.SetGlobalLogger(logger)
	return nil
}

// NewRootCommand builds the sparqlveil root command. Subcommands are
// registered by the caller (cmd/sparqlveil/main.go).
func NewRootCommand(programName string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "A policy-driven SPARQL query rewriter",
		Long:          "Rewrites SPARQL queries to enforce node, predicate, and attribute access-control policies before they reach the triple store",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return SetupLogging(cmd.Flags())
		},
	}
	RegisterRootFlags(rootCmd)
	return rootCmd
}
