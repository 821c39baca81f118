// SPDX-License-Identifier: GPL-3.0-or-later

// Package cliconfig implements the CLI surface of spec.md §6: flag
// parsing, the optional YAML config file, and the precedence rule
// (defaults -> config file -> command line, last wins).
//
// Grounded on the teacher's pkg/cli/dig/dig.go and pkg/cli/nc/nc.go
// pflag.NewFlagSet(name, pflag.ContinueOnError) idiom; the config-file
// layer is new (the teacher has no config-file collaborator), modeled
// on the scenario loader's gopkg.in/yaml.v3 usage in pkg/scenario.
package cliconfig

import (
	"fmt"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/doipkit/doipkit/internal/fsx"
)

// Config is the fully resolved CLI configuration.
type Config struct {
	LocalDiagSocket     string
	RemoteDiagSocket    string
	BroadcastDiagSocket string
	Discover            bool
	DoipLocalAddr       uint16
	DoipTargetAddr      uint16
	ScenarioPaths       []string

	// RawUdsCommands contains the positional, inline-hex UDS commands
	// supplied on the command line, if any.
	RawUdsCommands []string
}

// Defaults returns the spec.md §6 default configuration.
func Defaults() Config {
	return Config{
		LocalDiagSocket:     "192.168.11.10:0",
		RemoteDiagSocket:    "192.168.11.53:13400",
		BroadcastDiagSocket: "255.255.255.255:13400",
		Discover:            false,
		DoipLocalAddr:       0xe080,
		DoipTargetAddr:      0x00ed,
	}
}

// fileConfig is the YAML shape of an optional --configfile; every
// field is a pointer (or nil-able slice) so that an absent field
// leaves the prior layer's value untouched.
type fileConfig struct {
	LocalDiagSocket     *string  `yaml:"local_diag_socket,omitempty"`
	RemoteDiagSocket    *string  `yaml:"remote_diag_socket,omitempty"`
	BroadcastDiagSocket *string  `yaml:"broadcast_diag_socket,omitempty"`
	Discover            *bool    `yaml:"discover,omitempty"`
	DoipLocalAddr       *uint16  `yaml:"doip_local_addr,omitempty"`
	DoipTargetAddr      *uint16  `yaml:"doip_target_addr,omitempty"`
	ScenarioPaths       []string `yaml:"scenario,omitempty"`
}

func (fc *fileConfig) apply(c *Config) {
	if fc.LocalDiagSocket != nil {
		c.LocalDiagSocket = *fc.LocalDiagSocket
	}
	if fc.RemoteDiagSocket != nil {
		c.RemoteDiagSocket = *fc.RemoteDiagSocket
	}
	if fc.BroadcastDiagSocket != nil {
		c.BroadcastDiagSocket = *fc.BroadcastDiagSocket
	}
	if fc.Discover != nil {
		c.Discover = *fc.Discover
	}
	if fc.DoipLocalAddr != nil {
		c.DoipLocalAddr = *fc.DoipLocalAddr
	}
	if fc.DoipTargetAddr != nil {
		c.DoipTargetAddr = *fc.DoipTargetAddr
	}
	if len(fc.ScenarioPaths) > 0 {
		c.ScenarioPaths = fc.ScenarioPaths
	}
}

// ParseArgs parses every element of argv as flags and positional
// arguments (the caller strips the command name first) into a fully
// resolved [Config], applying defaults, then an optional config file,
// then explicit command-line flags, in that order. It also returns the
// positional arguments.
func ParseArgs(fsys fsx.FS, name string, argv []string) (Config, []string, error) {
	cfg := Defaults()

	clip := pflag.NewFlagSet(name, pflag.ContinueOnError)
	localDiagSocket := clip.String("local-diag-socket", cfg.LocalDiagSocket, "local IP:PORT for the diagnostic socket")
	remoteDiagSocket := clip.String("remote-diag-socket", cfg.RemoteDiagSocket, "remote ECU IP:PORT")
	broadcastDiagSocket := clip.String("broadcast-diag-socket", cfg.BroadcastDiagSocket, "broadcast IP:PORT for vehicle discovery")
	discover := clip.Bool("discover", cfg.Discover, "broadcast a UDP vehicle-identification request")
	doipLocalAddr := clip.String("doip-local-addr", "0xe080", "local DoIP logical address, as 0xHHHH")
	doipTargetAddr := clip.String("doip-target-addr", "0x00ed", "target DoIP logical address, as 0xHHHH")
	configFile := clip.String("configfile", "", "path to a YAML configuration file")
	scenarioFlag := clip.StringSlice("scenario", nil, "comma-separated scenario document path(s)")

	if err := clip.Parse(argv); err != nil {
		return Config{}, nil, err
	}

	if *configFile != "" {
		data, err := fsx.ReadFile(fsys, *configFile)
		if err != nil {
			return Config{}, nil, fmt.Errorf("cliconfig: reading %s: %w", *configFile, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, nil, fmt.Errorf("cliconfig: parsing %s: %w", *configFile, err)
		}
		fc.apply(&cfg)
	}

	if clip.Changed("local-diag-socket") {
		cfg.LocalDiagSocket = *localDiagSocket
	}
	if clip.Changed("remote-diag-socket") {
		cfg.RemoteDiagSocket = *remoteDiagSocket
	}
	if clip.Changed("broadcast-diag-socket") {
		cfg.BroadcastDiagSocket = *broadcastDiagSocket
	}
	if clip.Changed("discover") {
		cfg.Discover = *discover
	}
	if clip.Changed("doip-local-addr") {
		la, err := parseLogicalAddr(*doipLocalAddr)
		if err != nil {
			return Config{}, nil, fmt.Errorf("cliconfig: --doip-local-addr: %w", err)
		}
		cfg.DoipLocalAddr = la
	}
	if clip.Changed("doip-target-addr") {
		ta, err := parseLogicalAddr(*doipTargetAddr)
		if err != nil {
			return Config{}, nil, fmt.Errorf("cliconfig: --doip-target-addr: %w", err)
		}
		cfg.DoipTargetAddr = ta
	}
	if clip.Changed("scenario") {
		cfg.ScenarioPaths = *scenarioFlag
	}

	cfg.RawUdsCommands = clip.Args()
	return cfg, clip.Args(), nil
}

func parseLogicalAddr(s string) (uint16, error) {
	var v uint16
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err != nil {
		return 0, fmt.Errorf("invalid logical address %q, expected 0xHHHH: %w", s, err)
	}
	return v, nil
}
