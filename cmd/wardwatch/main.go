package main

import (
	"os"

	"github.com/wardwatch-systems/wardwatch/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
