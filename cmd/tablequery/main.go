// Package main provides the tablequery command.
package main

import (
	"os"

	"github.com/leapstack-labs/tablequery/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
