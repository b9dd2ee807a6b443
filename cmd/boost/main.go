// Package main provides the entry point for the boost CLI.
package main

import (
	"os"

	"github.com/jamesainslie/boost/pkg/boost/logging"
)

func main() {
	err := Execute()
	_ = logging.Close()
	if err != nil {
		printError("%v", err)
		os.Exit(exitCode(err))
	}
}
