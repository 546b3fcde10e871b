// Package main provides the leapsweep CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsweep/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
