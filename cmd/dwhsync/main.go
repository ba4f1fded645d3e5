// Package main provides the entry point for the dwhsync CLI.
package main

import (
	"os"

	"github.com/dwhsync/dwhsync/cmd/dwhsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
