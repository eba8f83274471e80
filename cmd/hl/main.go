package main

import (
	"os"

	"hunkline/cmd/hl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
