// Command servicectl manages the neuroserve services: it builds and lints the
// services index, lists and runs tasks, scaffolds new services and migrates
// the database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
