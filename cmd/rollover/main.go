// Command rollover moves unfinished todos from recent daily documents into
// today's daily document.
//
// Build with: go build -o bin/rollover ./cmd/rollover
// Usage: rollover <command> [options]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
