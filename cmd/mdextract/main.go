// Command mdextract converts documents to Markdown from the command line.
package main

import (
	"os"

	"github.com/hazyhaar/mdextract/cmd/mdextract/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
