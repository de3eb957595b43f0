package main

import (
	"os"

	"github.com/nomis52/gymsync/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
