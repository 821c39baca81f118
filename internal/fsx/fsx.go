// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/spf13/afero
//

// Package fsx abstracts the filesystem operations this tool needs:
// opening an existing file for reading. It exists so that scenario
// loading, config loading, ByteSource.BinFileName resolution, and the
// loadfile() builtin can be driven against an in-memory filesystem in
// tests, via internal/testable.
package fsx

import (
	"io"
	"io/fs"
)

// File is the minimal file handle this tool ever needs.
type File interface {
	io.ReadCloser
}

// FS abstracts filesystem access.
type FS interface {
	// Open opens the named file for reading.
	Open(name string) (File, error)

	// Stat returns file metadata for the named file.
	Stat(name string) (fs.FileInfo, error)
}

// ReadFile reads the whole content of the named file using fsys.
func ReadFile(fsys FS, name string) ([]byte, error) {
	filep, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer filep.Close()
	return io.ReadAll(filep)
}
