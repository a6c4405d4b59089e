// Package main provides the born-speech CLI.
//
// Usage:
//
//	born-speech version
//	born-speech inspect --config model.yaml
//	born-speech run --config model.yaml [--labels labels.csv]
package main

import (
	"fmt"
	"os"

	"github.com/born-ml/speech/cmd/born-speech/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
