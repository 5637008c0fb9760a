// Package main runs discovery from the terminal, without the HTTP server.
package main

import (
	"os"

	"go-outreach-automation/cmd/discover/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
