package experiment

import (
	"errors"
	"fmt"
	"io/fs"
)

// ValidationError reports a malformed experiment line.
type ValidationError struct {
	File string
	Line int
	// Column is the 1-based column the message refers to, 0 for whole-line errors.
	Column  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Illegal line %d in file %s: %s", e.Line, e.File, e.Message)
}

// FileError reports an input file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return "No such file: " + e.Path
	}
	return fmt.Sprintf("Cannot read file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
