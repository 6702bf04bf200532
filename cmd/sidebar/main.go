// Package main provides the sidebar CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sidebar/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
