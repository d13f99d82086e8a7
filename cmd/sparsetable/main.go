// Package main provides the entry point for the sparsetable CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/AlexWan0/go-sparsetable/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
