// SPDX-License-Identifier: GPL-3.0-or-later

// Command doipkit implements the `doipkit` command.
package main

import (
	_ "embed"
	"os"

	"github.com/doipkit/doipkit/internal/cliutils"
	"github.com/doipkit/doipkit/internal/climain"
	"github.com/doipkit/doipkit/internal/markdown"
	"github.com/doipkit/doipkit/pkg/cli/run"
	"github.com/doipkit/doipkit/pkg/cli/sh"
	"github.com/doipkit/doipkit/pkg/cli/version"
)

var mainArgs = os.Args

func main() {
	climain.Run(newCommand(), os.Exit, mainArgs...)
}

//go:embed README.md
var readme string

// newCommand constructs a new [cliutils.Command] for the `doipkit` command.
func newCommand() cliutils.Command {
	return cliutils.NewCommandWithSubCommands("doipkit", markdown.LazyMaybeRender(readme), map[string]cliutils.Command{
		"run":     run.NewCommand(),
		"sh":      sh.NewCommand(),
		"version": version.NewCommand(),
	})
}
