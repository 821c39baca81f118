// SPDX-License-Identifier: GPL-3.0-or-later

package fsx

import (
	"bytes"
	"io"
	"io/fs"
	"time"
)

// MemFS is an in-memory [FS] used by tests.
//
// The zero value is an empty filesystem; populate it by assigning
// byte slices to [MemFS.Files].
type MemFS struct {
	Files map[string][]byte
}

var _ FS = (*MemFS)(nil)

// NewMemFS creates a new [*MemFS] initialized with the given files.
func NewMemFS(files map[string][]byte) *MemFS {
	return &MemFS{Files: files}
}

// Open implements [FS].
func (mfs *MemFS) Open(name string) (File, error) {
	data, found := mfs.Files[name]
	if !found {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memFile{reader: bytes.NewReader(data)}, nil
}

// Stat implements [FS].
func (mfs *MemFS) Stat(name string) (fs.FileInfo, error) {
	data, found := mfs.Files[name]
	if !found {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return memFileInfo{name: name, size: int64(len(data))}, nil
}

type memFile struct {
	reader *bytes.Reader
}

func (mf *memFile) Read(buf []byte) (int, error) {
	return mf.reader.Read(buf)
}

func (mf *memFile) Close() error {
	return nil
}

var _ io.ReadCloser = &memFile{}

type memFileInfo struct {
	name string
	size int64
}

func (mfi memFileInfo) Name() string       { return mfi.name }
func (mfi memFileInfo) Size() int64        { return mfi.size }
func (mfi memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (mfi memFileInfo) ModTime() time.Time { return time.Time{} }
func (mfi memFileInfo) IsDir() bool        { return false }
func (mfi memFileInfo) Sys() any           { return nil }

var _ fs.FileInfo = memFileInfo{}
