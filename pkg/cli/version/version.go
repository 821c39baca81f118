// SPDX-License-Identifier: GPL-3.0-or-later

// Package version implements the `doipkit version` command.
//
// Grounded on the teacher's pkg/cli/version/version.go, verbatim in
// shape (a package-level overridable Version string, printed as-is).
package version

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/doipkit/doipkit/internal/cliutils"
	"github.com/doipkit/doipkit/internal/markdown"
)

// Version is the program version, overridable via -ldflags at build time.
var Version string = "dev"

//go:embed README.md
var readme string

// NewCommand creates the `doipkit version` [cliutils.Command].
func NewCommand() cliutils.Command {
	return command{}
}

type command struct{}

var _ cliutils.Command = command{}

// Help implements [cliutils.Command].
func (cmd command) Help(env cliutils.Environment, argv ...string) error {
	fmt.Fprintf(env.Stdout(), "%s\n", markdown.TryRender(readme))
	return nil
}

// Main implements [cliutils.Command].
func (cmd command) Main(ctx context.Context, env cliutils.Environment, argv ...string) error {
	// 1. honour requests for printing the help
	if cliutils.HelpRequested(argv...) {
		return cmd.Help(env, argv...)
	}

	// 2. ensure there are no positional arguments
	if len(argv) > 1 {
		err := fmt.Errorf("expected no positional arguments")
		fmt.Fprintf(env.Stderr(), "doipkit version: %s\n", err)
		fmt.Fprintf(env.Stderr(), "Run `doipkit version --help` for usage.\n")
		return err
	}

	// 3. print the version
	fmt.Fprintln(env.Stdout(), Version)
	return nil
}
