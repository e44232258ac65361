// Package main is the entry point for the rxdesk CLI.
package main

import (
	"os"

	"github.com/rxdesk/rxdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
