// Package runlog writes and post-processes the files of a run directory:
// the append-only experiments.log and the all.experiment audit trail.
package runlog

import (
	"fmt"
	"io"
	"os"
)

// File names inside a run directory.
const (
	DefaultLogFile   = "experiments.log"
	DefaultAuditFile = "all.experiment"
)

// Separator follows every captured invocation in the log.
const Separator = "\n\n\n\n"

// DoneMarker terminates a completed log.
const DoneMarker = "Done.\n"

// AppendFile is a file opened for appending only.
type AppendFile struct {
	path string
	f    *os.File
}

var _ io.WriteCloser = (*AppendFile)(nil)

// OpenAppend opens path for appending, creating it if needed.
func OpenAppend(path string) (*AppendFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644) //nolint:gosec // log files are meant to be readable
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &AppendFile{path: path, f: f}, nil
}

// Path returns the file path.
func (a *AppendFile) Path() string { return a.path }

func (a *AppendFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// WriteString appends s.
func (a *AppendFile) WriteString(s string) error {
	_, err := io.WriteString(a.f, s)
	return err
}

// Sync flushes the file to disk.
func (a *AppendFile) Sync() error {
	return a.f.Sync()
}

// Close closes the file.
func (a *AppendFile) Close() error {
	return a.f.Close()
}
