package main

import (
	"os"

	"github.com/wonny/ibdash/cmd/ibdash/commands"
)

// main is the entry point for the ibdash CLI
// ⭐ single CLI entry point: go run ./cmd/ibdash [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
