package main

// Main entry point of the application
// Executes the Cobra root command and exits with its status code

import (
	"os"

	"plotrunner/cmd/commands"
)

func main() {
	os.Exit(commands.Execute())
}
