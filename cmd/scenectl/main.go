// Package main is the entry point for the scenectl CLI tool.
package main

import (
	"os"

	"github.com/stwalsh4118/artscene/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
