// The entrypoint for the qshield CLI.
package main

import (
	"log"

	"qshield/cmd/qshield/commands"
)

// Initialises and executes the command hierarchy.
func main() {
	if err := commands.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
