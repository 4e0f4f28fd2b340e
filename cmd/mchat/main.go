package main

import (
	"os"

	"mchat/cmd/mchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
