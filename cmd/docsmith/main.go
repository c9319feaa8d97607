// Command docsmith is the entry point for the docsmith document assistant.
// It ingests documents into a vector store and answers questions about them,
// either from the CLI or through an HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/docsmith-ai/docsmith/cmd/docsmith/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
