package main

import (
	"os"

	"github.com/psantana5/container-control/cmd/ccc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
