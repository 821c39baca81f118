// SPDX-License-Identifier: GPL-3.0-or-later

// Package sh implements the `doipkit sh` command.
//
// Grounded on the teacher's pkg/cli/sh/sh.go: same
// syntax.NewParser/interp.New/runner.Run shape. This port drops the
// teacher's builtin.go self-reexec middleware (which lets a script
// invoke `rbmk` as a builtin without forking a process) since it
// depends on a command directory type this repository has no
// equivalent of; scripts here invoke $DOIPKIT_EXE as an ordinary
// external command instead, which mvdan.cc/sh/v3 already supports
// without any middleware.
package sh

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/doipkit/doipkit/internal/cliutils"
	"github.com/doipkit/doipkit/internal/markdown"
)

//go:embed README.md
var readme string

// NewCommand creates the `doipkit sh` [cliutils.Command].
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

	// 2. ensure we have exactly one script to run
	if len(argv) != 2 {
		err := errors.New("expected exactly one script argument")
		fmt.Fprintf(env.Stderr(), "doipkit sh: %s\n", err.Error())
		fmt.Fprintf(env.Stderr(), "Run `doipkit sh --help` for usage.\n")
		return err
	}

	// 3. open and parse the shell script
	scriptPath := argv[1]
	filep, err := os.Open(scriptPath)
	if err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit sh: cannot open script: %s\n", err.Error())
		return err
	}
	defer filep.Close()

	parser := syntax.NewParser()
	prog, err := parser.Parse(filep, scriptPath)
	if err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit sh: cannot parse script: %s\n", err.Error())
		return err
	}

	// 4. make the doipkit executable path available to the script
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("doipkit sh: cannot determine doipkit path: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("doipkit sh: cannot determine absolute doipkit path: %w", err)
	}
	os.Setenv("DOIPKIT_EXE", exePath)

	// 5. create the shell interpreter
	runner, err := interp.New(
		interp.StdIO(env.Stdin(), env.Stdout(), env.Stderr()),
		interp.Env(expand.FuncEnviron(os.Getenv)),
	)
	if err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit sh: cannot create interpreter: %s\n", err.Error())
		return err
	}

	// 6. run the script
	if err := runner.Run(ctx, prog); err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit sh: %s\n", err.Error())
		return err
	}
	return nil
}
