// Package filesys provides the small file system abstraction the config
// loader depends on. The interface delegates to the standard library in
// production and is swapped for an in-memory fake in tests.
package filesys

import (
	"io/fs"
	"os"
)

// ReadWriteFS is the tiny surface the *config loader* needs.
// It is intentionally **smaller** than os.File because callers
// never need random-access writes or directory iteration.
type ReadWriteFS interface {
	Stat(string) (fs.FileInfo, error)
	MkdirAll(string, os.FileMode) error
	Open(string) (*os.File, error)
	WriteFile(string, []byte, os.FileMode) error
}

// OS returns a file system implementation that delegates to the standard
// library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements ReadWriteFS against the local disk.
type OsFS struct{}

func (OsFS) Stat(p string) (fs.FileInfo, error)                { return os.Stat(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error            { return os.MkdirAll(p, m) }
func (OsFS) Open(p string) (*os.File, error)                   { return os.Open(p) }
func (OsFS) WriteFile(p string, b []byte, m os.FileMode) error { return os.WriteFile(p, b, m) }

var _ ReadWriteFS = OsFS{}
