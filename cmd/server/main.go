// Package main is the entry point for the rental-hub service.
package main

import (
	"fmt"
	"os"

	"github.com/rental-hub/rental-hub/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
