package main

import (
	"os"

	"github.com/spigell/joe-enricher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
