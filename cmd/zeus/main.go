// Package main provides the zeus CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/zeus/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
