// Package main provides the entry point for the idsearch CLI.
package main

import (
	"os"

	"idsearch/cmd/idsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
