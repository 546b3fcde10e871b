package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEAPSWEEP_"

// ConfigFileNames are searched in order.
var ConfigFileNames = []string{"leapsweep.yaml", "leapsweep.yml"}

// flagKeys maps CLI flags to config keys. Flags not listed are command
// options and never reach the config.
var flagKeys = map[string]string{
	"schema":     "schema",
	"lenient":    "validation.lenient",
	"state":      "state_path",
	"verbose":    "verbose",
	"output":     "output",
	"log-level":  "log_level",
	"skip-build": "build.skip",
	"no-plot":    "plot.skip",
	"base-dir":   "run.base_dir",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// configExistsIn returns the config file inside dir, if any.
func configExistsIn(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey maps LEAPSWEEP_PLOT__COMMAND to plot.command.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from defaults, file, environment and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Relative paths are resolved against the directory holding the config file,
// or the working directory when there is none. Paths given as flags are
// relative to the working directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	projectRoot := cwd
	if cfgFile != "" {
		configFileUsed = cfgFile
	} else {
		configFileUsed = findConfigUpward(cwd)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment (LEAPSWEEP_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Explicitly set flags
	flagPaths := map[string]string{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			val := posflag.FlagVal(flags, f)
			if key == "state_path" || key == "run.base_dir" {
				if s, ok := val.(string); ok && s != "" {
					flagPaths[key] = resolvePathRelativeTo(s, cwd)
				}
			}
			return key, val
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal, splitting comma-separated strings from env into lists
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths
	cfg.ProjectRoot = projectRoot
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	cfg.Run.BaseDir = resolvePathRelativeTo(cfg.Run.BaseDir, projectRoot)
	cfg.Build.Dir = resolvePathRelativeTo(cfg.Build.Dir, projectRoot)
	if p, ok := flagPaths["state_path"]; ok {
		cfg.StatePath = p
	}
	if p, ok := flagPaths["run.base_dir"]; ok {
		cfg.Run.BaseDir = p
	}

	if cfg.Verbose && cfg.LogLevel == DefaultLogLevel {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// Default returns the configuration built only from defaults.
func Default() *Config {
	d := koanf.New(".")
	_ = d.Load(confmap.Provider(Defaults(), "."), nil)
	var cfg Config
	_ = d.Unmarshal("", &cfg)
	if cwd, err := os.Getwd(); err == nil {
		cfg.ProjectRoot = cwd
	}
	return &cfg
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the stderr text logger for the configured level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// ParseLogLevel parses debug, info, warn or error (case-insensitive).
func ParseLogLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", level)
	}
	return lvl, nil
}
