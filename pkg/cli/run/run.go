// SPDX-License-Identifier: GPL-3.0-or-later

// Package run implements the `doipkit run` command.
//
// Grounded on the teacher's pkg/cli/dig/dig.go Main(ctx, env, argv...)
// numbered-step shape; the wiring of executor+mux+session follows
// internal/doiptest/integration_test.go, promoted from a test helper
// to the real CLI entry point.
package run

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/doipkit/doipkit/internal/cliutils"
	"github.com/doipkit/doipkit/internal/markdown"
	"github.com/doipkit/doipkit/pkg/cliconfig"
	"github.com/doipkit/doipkit/pkg/doip"
	"github.com/doipkit/doipkit/pkg/doipmux"
	"github.com/doipkit/doipkit/pkg/doipsession"
	"github.com/doipkit/doipkit/pkg/executor"
	"github.com/doipkit/doipkit/pkg/exprctx"
	"github.com/doipkit/doipkit/pkg/scenario"
	"github.com/doipkit/doipkit/pkg/scenariomsg"
)

//go:embed README.md
var readme string

// NewCommand creates the `doipkit run` [cliutils.Command].
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

	// 2. resolve the configuration: defaults -> config file -> flags
	cfg, _, err := cliconfig.ParseArgs(env.FS(), "doipkit run", argv[1:])
	if err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit run: %s\n", err.Error())
		return err
	}

	// 3. --discover short-circuits the rest of the command
	if cfg.Discover {
		return discover(ctx, cfg.BroadcastDiagSocket, env.Stdout())
	}

	// 4. build the scenario program: documents first, then any inline
	// positional UDS commands, each as its own raw-UDS step
	steps, err := scenario.Load(env.FS(), cfg.ScenarioPaths)
	if err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit run: %s\n", err.Error())
		return err
	}
	for _, raw := range cfg.RawUdsCommands {
		data, err := scenario.ParseInlineHex(raw)
		if err != nil {
			err = fmt.Errorf("doipkit run: parsing positional command %q: %w", raw, err)
			fmt.Fprintf(env.Stderr(), "%s\n", err.Error())
			return err
		}
		steps = append(steps, scenario.RawUds{Data: scenario.Bytes{Data: data}}, scenario.PrintLastReply{})
	}

	// 5. connect and activate routing
	logger := slog.New(slog.NewJSONHandler(env.Stderr(), nil))
	session, err := doipsession.Connect(ctx, cfg.LocalDiagSocket, cfg.RemoteDiagSocket, cfg.DoipLocalAddr)
	if err != nil {
		fmt.Fprintf(env.Stderr(), "doipkit run: %s\n", err.Error())
		return err
	}
	defer session.Close()

	// 6. start the multiplexer in the background
	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)
	mux := doipmux.New(session, cfg.DoipTargetAddr, logger)
	muxCtx, muxCancel := context.WithCancel(ctx)
	defer muxCancel()
	muxErrCh := make(chan error, 1)
	go func() { muxErrCh <- mux.Run(muxCtx, reqCh, rspCh) }()

	// 7. interpret the scenario in the foreground
	expr := exprctx.NewContext(env.FS(), env.Stdout())
	exec := executor.New(expr, env.FS(), env.Stdout(), cfg.DoipTargetAddr, reqCh, rspCh, logger)
	runErr := exec.Run(ctx, steps)

	muxCancel()
	<-muxErrCh

	if runErr != nil {
		fmt.Fprintf(env.Stderr(), "doipkit run: %s\n", runErr.Error())
		return runErr
	}
	return nil
}

// discoverTimeout bounds how long we wait for vehicle-identification
// responses after broadcasting the request.
const discoverTimeout = 3 * time.Second

// discover broadcasts a vehicle-identification request to broadcastAddr
// and prints every ECU that answers within [discoverTimeout].
func discover(ctx context.Context, broadcastAddr string, stdout io.Writer) error {
	raddr, err := net.ResolveUDPAddr("udp4", broadcastAddr)
	if err != nil {
		return fmt.Errorf("doipkit run: resolving %s: %w", broadcastAddr, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("doipkit run: %w", err)
	}
	defer conn.Close()

	if err := enableBroadcast(conn); err != nil {
		return fmt.Errorf("doipkit run: enabling broadcast: %w", err)
	}

	frame, err := doip.Encode(doip.VehicleIdentificationRequest{})
	if err != nil {
		return fmt.Errorf("doipkit run: %w", err)
	}
	if _, err := conn.WriteToUDP(frame, raddr); err != nil {
		return fmt.Errorf("doipkit run: broadcasting discovery request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(discoverTimeout))

	found := 0
	buf := make([]byte, 256)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		msg, _, err := doip.ReadMessage(bytes.NewReader(buf[:n]), nil)
		if err != nil {
			continue
		}
		resp, ok := msg.(doip.VehicleIdentificationResponse)
		if !ok {
			continue
		}
		found++
		fmt.Fprintf(stdout, "%s\n", doip.String(resp))
	}
	if found == 0 {
		return errors.New("no ECU answered the discovery request")
	}
	return nil
}

// enableBroadcast sets SO_BROADCAST on conn's underlying socket. No
// third-party library in the retrieved pack wraps this syscall, so it
// is the one place this command reaches for net/syscall directly.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = setSocketBroadcast(fd)
	}); err != nil {
		return err
	}
	return sockErr
}
