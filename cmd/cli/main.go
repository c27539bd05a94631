// Package main is the entry point for the trackerql CLI binary.
package main

import (
	"os"

	cli "trackerql/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
