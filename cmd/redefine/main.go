package main

import (
	"fmt"
	"os"

	"github.com/moasq/bundlepatch/internal/commands"
)

func main() {
	if err := commands.ExecuteRedefine(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
