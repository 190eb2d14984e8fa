// Package config loads pinejs.toml, the settings file of the pinejs command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pinejs/pkg/compiler"
)

// FileName is looked up in the working directory when no -config flag is given.
const FileName = "pinejs.toml"

type Config struct {
	Limits Limits `toml:"limits"`
	Output Output `toml:"output"`
}

type Limits struct {
	MaxTokens int `toml:"max_tokens"`
	MaxDepth  int `toml:"max_depth"`
	LoopLimit int `toml:"loop_limit"`
}

type Output struct {
	FunctionName string `toml:"function_name"`
	PruneUnused  bool   `toml:"prune_unused"`
	// Extension replaces the source extension of output files.
	Extension string `toml:"extension"`
}

// Default mirrors compiler.DefaultOptions.
func Default() Config {
	return Config{
		Limits: Limits{
			MaxTokens: compiler.DefaultMaxTokens,
			MaxDepth:  compiler.DefaultMaxDepth,
			LoopLimit: compiler.DefaultLoopLimit,
		},
		Output: Output{
			FunctionName: "main",
			PruneUnused:  true,
			Extension:    ".js",
		},
	}
}

// Parse decodes TOML text over the defaults. Keys it does not know are an
// error so typos do not pass silently.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find loads FileName from dir, falling back to the defaults when the file
// does not exist.
func Find(dir string) (Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (c Config) Validate() error {
	switch {
	case c.Limits.MaxTokens < 0:
		return fmt.Errorf("config: limits.max_tokens must not be negative, got %d", c.Limits.MaxTokens)
	case c.Limits.MaxDepth < 0:
		return fmt.Errorf("config: limits.max_depth must not be negative, got %d", c.Limits.MaxDepth)
	case c.Limits.LoopLimit <= 0:
		return fmt.Errorf("config: limits.loop_limit must be positive, got %d", c.Limits.LoopLimit)
	case c.Output.FunctionName == "":
		return errors.New("config: output.function_name must not be empty")
	case !strings.HasPrefix(c.Output.Extension, "."):
		return fmt.Errorf("config: output.extension must start with a dot, got %q", c.Output.Extension)
	}
	return nil
}

// Options converts the settings into compiler options. A zero limit
// disables that ceiling.
func (c Config) Options() []compiler.Option {
	return []compiler.Option{
		compiler.WithLimits(compiler.Limits{MaxTokens: c.Limits.MaxTokens, MaxDepth: c.Limits.MaxDepth}),
		compiler.WithLoopLimit(c.Limits.LoopLimit),
		compiler.WithFunctionName(c.Output.FunctionName),
		compiler.WithPruning(c.Output.PruneUnused),
	}
}

// OutputPath maps a source path to the path its JavaScript is written to.
func (c Config) OutputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + c.Output.Extension
}
