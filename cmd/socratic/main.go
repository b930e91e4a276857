// Command socratic is the command-line adapter for the Socratic tutoring
// engine: it verifies statements, runs interactive tutoring sessions and
// inspects memory and the escape journal.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
