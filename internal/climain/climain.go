// SPDX-License-Identifier: GPL-3.0-or-later

// Package climain wires a [cliutils.Command] to os.Args, signal-based
// cancellation, and process exit codes. It plays the role the teacher
// repository delegates to an external github.com/rbmk-project/common/climain
// package: here it is reimplemented against the observed call-site
// contract (climain.Run(cmd, os.Exit, os.Args...)) since that package is
// not actually importable from this module.
package climain

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/doipkit/doipkit/internal/cliutils"
)

// Run executes cmd with a context cancelled on SIGINT/SIGTERM, using the
// standard environment, and calls exit with 0 on success or 1 on error.
func Run(cmd cliutils.Command, exit func(int), argv ...string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cliutils.StandardEnvironment{}
	if err := cmd.Main(ctx, env, argv...); err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit: %s\n", err.Error())
		exit(1)
		return
	}
	exit(0)
}
