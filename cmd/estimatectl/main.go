package main

import (
	"fmt"
	"os"

	"github.com/Kre8ivTech/client-portal-sub002/cmd/estimatectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
