package main

import (
	"fmt"
	"os"

	"github.com/sparqlveil/sparqlveil/pkg/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand("sparqlveil")
	rootCmd.AddCommand(cmd.NewRewriteCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
