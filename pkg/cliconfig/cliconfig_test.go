// SPDX-License-Identifier: GPL-3.0-or-later

package cliconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doipkit/doipkit/internal/fsx"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, positional, err := ParseArgs(fsx.OsFS{}, "doipkit run", nil)
	require.NoError(t, err)
	require.Equal(t, "192.168.11.10:0", cfg.LocalDiagSocket)
	require.Equal(t, "192.168.11.53:13400", cfg.RemoteDiagSocket)
	require.Equal(t, uint16(0xe080), cfg.DoipLocalAddr)
	require.Equal(t, uint16(0x00ed), cfg.DoipTargetAddr)
	require.Empty(t, positional)
}

func TestParseArgsConfigFileThenFlagsOverride(t *testing.T) {
	fsys := fsx.NewMemFS(map[string][]byte{
		"doipkit.yaml": []byte("remote_diag_socket: \"10.0.0.1:13400\"\ndoip_target_addr: 0x1234\n"),
	})
	cfg, _, err := ParseArgs(fsys, "doipkit run", []string{
		"--configfile", "doipkit.yaml",
		"--doip-target-addr", "0x5678",
	})
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:13400", cfg.RemoteDiagSocket)
	require.Equal(t, uint16(0x5678), cfg.DoipTargetAddr)
}

func TestParseArgsDiscoverFlag(t *testing.T) {
	cfg, _, err := ParseArgs(fsx.OsFS{}, "doipkit run", []string{"--discover"})
	require.NoError(t, err)
	require.True(t, cfg.Discover)
}

func TestParseArgsPositionalUdsCommands(t *testing.T) {
	cfg, positional, err := ParseArgs(fsx.OsFS{}, "doipkit run", []string{"22 f1 90", "19 0a"})
	require.NoError(t, err)
	require.Equal(t, []string{"22 f1 90", "19 0a"}, positional)
	require.Equal(t, positional, cfg.RawUdsCommands)
}
