// Package main provides the entry point for the spacetime CLI.
package main

import (
	"os"

	"github.com/lcarter9000/spacetimeengine/cmd/spacetime/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
