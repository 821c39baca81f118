// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/spf13/afero
//

package fsx

import (
	"io/fs"
	"os"
)

// OsFS implements [FS] using the standard [os] package.
//
// The zero value is ready to use.
type OsFS struct{}

var _ FS = OsFS{}

// Open implements [FS].
func (OsFS) Open(name string) (File, error) {
	return os.Open(name)
}

// Stat implements [FS].
func (OsFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
