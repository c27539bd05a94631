// Package main is the entry point for the trackerql analytics server.
package main

import (
	"os"

	cli "trackerql/pkg/cli"
)

func main() {
	os.Exit(cli.ExecuteServe())
}
