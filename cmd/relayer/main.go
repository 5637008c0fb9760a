// Package main is the entry point for the desktop relayer. It runs on an employee's
// machine, polls the server and delivers approved drafts through the Telegram app.
package main

import (
	"os"

	"go-outreach-automation/cmd/relayer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
