package experiment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// maxLineSize bounds a single experiment line.
const maxLineSize = 1 << 20

// LoaderConfig holds loader configuration.
type LoaderConfig struct {
	// Schema is the column layout every line must follow.
	Schema Schema
	// Clock resolves NOW seeds (optional, defaults to time.Now).
	Clock func() time.Time
	// Logger receives one warning per reported problem (optional).
	Logger *slog.Logger
}

// Loader reads experiment files into an ordered Set.
type Loader struct {
	validator *Validator
	logger    *slog.Logger
}

// FileSummary holds per-file statistics.
type FileSummary struct {
	Path    string `json:"path"`
	Lines   int    `json:"lines"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
	Invalid int    `json:"invalid"`
	Missing bool   `json:"missing,omitempty"`
}

// LoadResult contains the records and problems found while loading.
type LoadResult struct {
	Records Set
	// Errors holds *FileError and *ValidationError values in encounter order.
	Errors []error
	Files  []FileSummary
}

// HasErrors returns true if any problem was reported.
func (r *LoadResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ValidationErrors returns only the line-level errors.
func (r *LoadResult) ValidationErrors() []*ValidationError {
	var out []*ValidationError
	for _, err := range r.Errors {
		var ve *ValidationError
		if errors.As(err, &ve) {
			out = append(out, ve)
		}
	}
	return out
}

// InvalidLines counts lines that produced at least one validation error.
func (r *LoadResult) InvalidLines() int {
	n := 0
	for _, f := range r.Files {
		n += f.Invalid
	}
	return n
}

// NewLoader creates a loader for the given schema.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	v, err := NewValidator(cfg.Schema, WithClock(cfg.Clock))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader{validator: v, logger: logger}, nil
}

// Schema returns the schema the loader validates against.
func (l *Loader) Schema() Schema {
	return l.validator.Schema()
}

// Load reads every path in order. Missing files are reported and skipped.
func (l *Loader) Load(paths []string) *LoadResult {
	result := &LoadResult{}
	for _, path := range paths {
		l.loadFile(path, result)
	}

	l.logger.Debug("experiment definitions loaded",
		"files", len(paths),
		"records", len(result.Records),
		"errors", len(result.Errors))

	return result
}

func (l *Loader) loadFile(path string, result *LoadResult) {
	f, err := os.Open(path) //nolint:gosec // paths are user supplied on purpose
	if err != nil {
		l.report(result, &FileError{Path: path, Err: err})
		result.Files = append(result.Files, FileSummary{Path: path, Missing: true})
		return
	}
	defer func() { _ = f.Close() }()

	if err := l.LoadReader(path, f, result); err != nil {
		l.report(result, &FileError{Path: path, Err: err})
	}
}

// LoadReader validates every line read from r, naming them after file.
// Valid records and problems are appended to result.
func (l *Loader) LoadReader(file string, r io.Reader, result *LoadResult) error {
	summary := FileSummary{Path: file}
	defer func() { result.Files = append(result.Files, summary) }()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		summary.Lines++

		line := strings.TrimSpace(scanner.Text())
		if IsSkipped(line) {
			summary.Skipped++
			continue
		}

		rec, errs := l.validator.ValidateLine(file, lineNo, line)
		if len(errs) > 0 {
			summary.Invalid++
			for _, e := range errs {
				l.report(result, e)
			}
			continue
		}

		summary.Records++
		result.Records = append(result.Records, rec)
	}

	return scanner.Err()
}

func (l *Loader) report(result *LoadResult, err error) {
	result.Errors = append(result.Errors, err)
	l.logger.Debug("experiment definition rejected", "error", err)
}
