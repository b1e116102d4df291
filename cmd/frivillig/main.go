// Package main provides the entry point for the frivillig CLI.
package main

import (
	"os"

	"github.com/lukketsvane/frivillig-db/cmd/frivillig/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
