// Package config merges flag, environment, file and default
// configuration into converter.Options for the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

const (
	// EnvPrefix prefixes environment variables, e.g. HEIF2JPEG_QUALITY.
	EnvPrefix = "HEIF2JPEG"
	// DefaultConfigName is the config file base name searched in the
	// working directory and $HOME/.config/heif2jpeg.
	DefaultConfigName = "heif2jpeg"
)

// flagBindings maps config keys (the Options mapstructure tags) to the
// kebab-case CLI flags that override them. Precedence: flags > env >
// config file > defaults.
var flagBindings = map[string]string{
	"input":             "input",
	"output":            "output",
	"quality":           "quality",
	"workers":           "workers",
	"preserveMetadata":  "preserve-exif",
	"recursive":         "recursive",
	"preserveStructure": "preserve-structure",
	"renamePattern":     "rename",
	"outputFormat":      "output-format",
	"logFile":           "log-file",
	"verbose":           "verbose",
}

// LoadAndValidate builds the final Options from all configuration
// sources and sets up the logger. The returned logger is usable even
// when an error is returned, so callers can report load failures.
func LoadAndValidate(cfgFile string, flags *pflag.FlagSet) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("no configuration file found, using defaults/env/flags")
		} else {
			return opts, tempLogger, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for key, name := range flagBindings {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return opts, tempLogger, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return opts, tempLogger, fmt.Errorf("unmarshalling configuration: %w", err)
	}

	logger, handler, err := buildLogger(&opts)
	if err != nil {
		return opts, tempLogger, err
	}
	opts.Logger = handler

	if err := validate(&opts, logger); err != nil {
		return opts, logger, err
	}
	return opts, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("quality", converter.DefaultQuality)
	v.SetDefault("workers", converter.DefaultWorkers)
	v.SetDefault("preserveMetadata", converter.DefaultPreserveMetadata)
	v.SetDefault("recursive", converter.DefaultRecursive)
	v.SetDefault("preserveStructure", converter.DefaultPreserveStructure)
	v.SetDefault("renamePattern", "")
	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))
	v.SetDefault("logFile", "")
	v.SetDefault("verbose", false)
}

// buildLogger creates the CLI logger: text on stderr, debug level under
// --verbose, duplicated to --log-file when set. The log file stays open
// for the life of the process.
func buildLogger(opts *converter.Options) (*slog.Logger, slog.Handler, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file '%s': %w", opts.LogFile, err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), handler, nil
}

func validate(opts *converter.Options, logger *slog.Logger) error {
	if opts.InputPath == "" {
		return fmt.Errorf("%w: input path is required (-i, --input)", converter.ErrConfigValidation)
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve input path '%s': %v", converter.ErrConfigValidation, opts.InputPath, err)
	}
	opts.InputPath = absInput
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return fmt.Errorf("%w: cannot access input path '%s': %v", converter.ErrConfigValidation, opts.InputPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input path '%s' is not a directory", converter.ErrConfigValidation, opts.InputPath)
	}

	// No output directory means convert in place, next to the sources.
	if opts.OutputPath == "" {
		opts.OutputPath = opts.InputPath
		logger.Debug("output path not set, converting into input directory")
	}
	absOutput, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve output path '%s': %v", converter.ErrConfigValidation, opts.OutputPath, err)
	}
	opts.OutputPath = absOutput

	if opts.Quality < 1 || opts.Quality > 100 {
		return fmt.Errorf("%w: quality %d outside 1..100", converter.ErrConfigValidation, opts.Quality)
	}
	if opts.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative", converter.ErrConfigValidation)
	}
	switch opts.OutputFormat {
	case converter.OutputFormatText, converter.OutputFormatJSON, converter.OutputFormatYAML:
	default:
		return fmt.Errorf("%w: invalid output format '%s' (allowed: text, json, yaml)", converter.ErrConfigValidation, opts.OutputFormat)
	}
	return nil
}
