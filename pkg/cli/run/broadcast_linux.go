// SPDX-License-Identifier: GPL-3.0-or-later

package run

import "syscall"

// setSocketBroadcast sets SO_BROADCAST on fd.
func setSocketBroadcast(fd uintptr) error {
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
}
