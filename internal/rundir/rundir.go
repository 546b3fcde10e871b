// Package rundir creates the per-invocation output directory.
//
// A run directory is named after the second it was created in and contains
// the fixed layout RunningTimeMain writes into:
//
//	experiments_2024-03-01-12:00:00/
//	  tmp/               generated gnuplot scripts
//	  data/              tab-separated measurements
//	  plots/times/
//	  plots/counters/
//	  plots/scatter/
//	  plots/averages/
package rundir

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Layout defaults.
const (
	DefaultPrefix     = "experiments_"
	DefaultTimeLayout = "2006-01-02-15:04:05"

	TmpDir   = "tmp"
	DataDir  = "data"
	PlotsDir = "plots"
)

// DefaultPlotCategories are the plot subfolders RunningTimeMain expects.
var DefaultPlotCategories = []string{"times", "counters", "scatter", "averages"}

// ErrExists is returned when the computed run directory is already present.
var ErrExists = errors.New("run directory already exists")

// Layout controls naming and the plot subfolders.
type Layout struct {
	Prefix         string
	TimeLayout     string
	PlotCategories []string
}

// DefaultLayout returns the classic experiments_<timestamp> layout.
func DefaultLayout() Layout {
	return Layout{
		Prefix:         DefaultPrefix,
		TimeLayout:     DefaultTimeLayout,
		PlotCategories: append([]string(nil), DefaultPlotCategories...),
	}
}

func (l Layout) withDefaults() Layout {
	if l.Prefix == "" {
		l.Prefix = DefaultPrefix
	}
	if l.TimeLayout == "" {
		l.TimeLayout = DefaultTimeLayout
	}
	if l.PlotCategories == nil {
		l.PlotCategories = append([]string(nil), DefaultPlotCategories...)
	}
	return l
}

// Name returns the directory name for a run started at t.
func (l Layout) Name(t time.Time) string {
	l = l.withDefaults()
	return l.Prefix + t.Format(l.TimeLayout)
}

// Dir is a created (or reopened) run directory.
type Dir struct {
	Path      string
	CreatedAt time.Time
	layout    Layout
}

// Tmp returns the scratch folder holding generated plot scripts.
func (d *Dir) Tmp() string { return filepath.Join(d.Path, TmpDir) }

// Data returns the data folder.
func (d *Dir) Data() string { return filepath.Join(d.Path, DataDir) }

// Plots returns the folder of one plot category.
func (d *Dir) Plots(category string) string {
	return filepath.Join(d.Path, PlotsDir, category)
}

// Join resolves a path relative to the run directory.
func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.Path}, elem...)...)
}

// Subdirs lists the required subfolders, relative to the run directory.
func (d *Dir) Subdirs() []string {
	dirs := []string{TmpDir, DataDir}
	for _, c := range d.layout.PlotCategories {
		dirs = append(dirs, filepath.Join(PlotsDir, c))
	}
	return dirs
}

// Options configures Create.
type Options struct {
	// BaseDir is the parent of the run directory (defaults to ".").
	BaseDir string
	Layout  Layout
	// Now is the clock used for naming (optional).
	Now    func() time.Time
	Logger *slog.Logger
}

// Create makes a fresh run directory and its subfolders.
// It fails if the directory already exists; callers treat any error as fatal.
func Create(opts Options) (*Dir, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	base := opts.BaseDir
	if base == "" {
		base = "."
	}

	created := now()
	layout := opts.Layout.withDefaults()
	d := &Dir{
		Path:      filepath.Join(base, layout.Name(created)),
		CreatedAt: created,
		layout:    layout,
	}

	if err := os.Mkdir(d.Path, 0o750); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, d.Path)
		}
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	for _, sub := range d.Subdirs() {
		if err := os.MkdirAll(filepath.Join(d.Path, sub), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}

	logger.Debug("created run directory", "path", d.Path, "subdirs", len(d.Subdirs()))
	return d, nil
}

// Open returns an existing run directory without modifying it.
func Open(path string, layout Layout) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a run directory: %s", path)
	}
	return &Dir{Path: path, CreatedAt: info.ModTime(), layout: layout.withDefaults()}, nil
}
