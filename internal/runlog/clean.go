package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CursorUpClear is the progress-bar redraw sequence: cursor up one line, then erase it.
const CursorUpClear = "\x1b[1A\x1b[2K"

// cursorPadding replaces each redraw sequence.
var cursorPadding = strings.Repeat(" ", 8)

// CleanLine replaces every redraw sequence in a single line.
func CleanLine(line string) string {
	return strings.ReplaceAll(line, CursorUpClear, cursorPadding)
}

// Clean copies r to w line by line, replacing redraw sequences.
// Line endings, including a missing final newline, are preserved.
// It returns the number of sequences replaced.
func Clean(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	replaced := 0

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			replaced += strings.Count(line, CursorUpClear)
			if _, werr := bw.WriteString(CleanLine(line)); werr != nil {
				return replaced, werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return replaced, err
		}
	}

	return replaced, bw.Flush()
}

// CleanFile rewrites path in place with redraw sequences replaced.
// The new content is written to a temporary file in the same directory and
// renamed over the original. Running it twice changes nothing the second time.
func CleanFile(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat log: %w", err)
	}

	in, err := os.Open(path) //nolint:gosec // path is a run log chosen by the caller
	if err != nil {
		return 0, fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	replaced, err := Clean(in, tmp)
	if err != nil {
		_ = tmp.Close()
		return replaced, fmt.Errorf("failed to clean log: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return replaced, fmt.Errorf("failed to set log mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return replaced, fmt.Errorf("failed to write log: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return replaced, fmt.Errorf("failed to replace log: %w", err)
	}
	return replaced, nil
}
