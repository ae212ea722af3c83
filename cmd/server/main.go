// Package main implements the taskflow server binary: the HTTP API, the
// notification queue consumer, the overdue scanner, and the operational
// subcommands around them.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
