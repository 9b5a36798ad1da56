// Package config loads the calculator settings shared by the binaries.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/njchilds90/symcalc"
)

// Config mirrors the settings file. Empty fields take the defaults.
type Config struct {
	ArenaSize           int    `yaml:"arena_size" toml:"arena_size"`
	ComplexFormat       string `yaml:"complex_format" toml:"complex_format"`
	AngleUnit           string `yaml:"angle_unit" toml:"angle_unit"`
	UnitFormat          string `yaml:"unit_format" toml:"unit_format"`
	SymbolicComputation string `yaml:"symbolic_computation" toml:"symbolic_computation"`
	Precision           string `yaml:"precision" toml:"precision"`
	LogLevel            string `yaml:"log_level" toml:"log_level"`
}

func Default() Config {
	return Config{
		ArenaSize:           symcalc.DefaultArenaSize,
		ComplexFormat:       "real",
		AngleUnit:           "radian",
		UnitFormat:          "metric",
		SymbolicComputation: "defined",
		Precision:           "double",
		LogLevel:            "info",
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	default:
		return cfg, errors.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks every setting names a known value.
func (c Config) Validate() error {
	if c.ArenaSize < 0 {
		return errors.Errorf("arena_size must not be negative, got %d", c.ArenaSize)
	}
	if _, err := c.Context(); err != nil {
		return err
	}
	if _, err := c.PrecisionValue(); err != nil {
		return err
	}
	_, err := c.Level()
	return err
}

// Context converts the settings to a reduction context without symbols.
func (c Config) Context() (symcalc.ReductionContext, error) {
	ctx := symcalc.DefaultContext()
	var ok bool
	if ctx.ComplexFormat, ok = symcalc.ParseComplexFormat(c.ComplexFormat); !ok {
		return ctx, errors.Errorf("unknown complex_format %q", c.ComplexFormat)
	}
	if ctx.AngleUnit, ok = symcalc.ParseAngleUnit(c.AngleUnit); !ok {
		return ctx, errors.Errorf("unknown angle_unit %q", c.AngleUnit)
	}
	if ctx.UnitFormat, ok = symcalc.ParseUnitFormat(c.UnitFormat); !ok {
		return ctx, errors.Errorf("unknown unit_format %q", c.UnitFormat)
	}
	if ctx.SymbolicComputation, ok = symcalc.ParseSymbolicComputation(c.SymbolicComputation); !ok {
		return ctx, errors.Errorf("unknown symbolic_computation %q", c.SymbolicComputation)
	}
	return ctx, nil
}

func (c Config) PrecisionValue() (symcalc.Precision, error) {
	switch strings.ToLower(c.Precision) {
	case "", "double":
		return symcalc.DoublePrecision, nil
	case "single", "float":
		return symcalc.SinglePrecision, nil
	}
	return symcalc.DoublePrecision, errors.Errorf("unknown precision %q", c.Precision)
}

// Level maps log_level to a slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, errors.Wrap(err, "log_level")
	}
	return l, nil
}

// SessionOptions returns the session options the settings describe, or the
// first validation error.
func (c Config) SessionOptions() ([]symcalc.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ctx, err := c.Context()
	if err != nil {
		return nil, err
	}
	p, err := c.PrecisionValue()
	if err != nil {
		return nil, err
	}
	return []symcalc.Option{
		symcalc.WithArenaSize(c.ArenaSize),
		symcalc.WithContext(ctx),
		symcalc.WithPrecision(p),
	}, nil
}
