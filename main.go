package main

import (
	"os"

	"github.com/ecovalle/recolecta/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
