// Package main provides the entry point for the slash CLI.
package main

import (
	"fmt"
	"os"

	"github.com/network-plane/slash/cmd/slash/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
