package main

import (
	"fmt"
	"os"

	"github.com/benvon/embody/cmd/configure/commands"
)

func main() {
	if err := commands.NewRootCmd(commands.DefaultOpener).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
