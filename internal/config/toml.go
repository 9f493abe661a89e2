// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/listenzcc/BCI-engine/internal/model"
	"github.com/listenzcc/BCI-engine/internal/wordbag"
)

// FileConfig represents the TOML configuration file. Pointer fields
// distinguish "unset" from a zero value so the file can override any
// subset of the defaults.
type FileConfig struct {
	Display  DisplayConfig  `toml:"display"`
	Server   ServerConfig   `toml:"server"`
	Dispatch DispatchConfig `toml:"dispatch"`
}

// DisplayConfig maps stimulus and layout settings.
type DisplayConfig struct {
	Columns      *int     `toml:"columns"`
	PaddingRatio *float64 `toml:"padding-ratio"`
	TrialSeconds *float64 `toml:"trial-seconds"`
	SpeedFactor  *float64 `toml:"speed-factor"`
	Width        *int     `toml:"width"`
	Height       *int     `toml:"height"`
	Charset      *string  `toml:"charset"`
}

// ServerConfig maps the command channel settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
}

// DispatchConfig maps keystroke dispatch settings.
type DispatchConfig struct {
	Enabled *bool `toml:"enabled"`
}

// Default returns the built-in session settings.
func Default() model.Config {
	return model.Config{
		Columns:      9,
		PaddingRatio: 0.2,
		TrialSeconds: 1.0,
		SpeedFactor:  1.0,
		Width:        1920,
		Height:       1080,
		Charset:      wordbag.DefaultCharset,
		ServerAddr:   "localhost:23846",
		Dispatch:     false,
	}
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Resolve layers the file config over the defaults and validates the
// result.
func Resolve(file FileConfig) (model.Config, error) {
	cfg := Default()

	if v := file.Display.Columns; v != nil {
		cfg.Columns = *v
	}
	if v := file.Display.PaddingRatio; v != nil {
		cfg.PaddingRatio = *v
	}
	if v := file.Display.TrialSeconds; v != nil {
		cfg.TrialSeconds = *v
	}
	if v := file.Display.SpeedFactor; v != nil {
		cfg.SpeedFactor = *v
	}
	if v := file.Display.Width; v != nil {
		cfg.Width = *v
	}
	if v := file.Display.Height; v != nil {
		cfg.Height = *v
	}
	if v := file.Display.Charset; v != nil {
		cfg.Charset = *v
	}
	if v := file.Server.Addr; v != nil {
		cfg.ServerAddr = *v
	}
	if v := file.Dispatch.Enabled; v != nil {
		cfg.Dispatch = *v
	}

	if err := Validate(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func Validate(cfg model.Config) error {
	if cfg.Columns <= 0 {
		return fmt.Errorf("columns must be positive, got %d", cfg.Columns)
	}
	if cfg.PaddingRatio < 0 || cfg.PaddingRatio >= 1 {
		return fmt.Errorf("padding-ratio must be in [0, 1), got %g", cfg.PaddingRatio)
	}
	if cfg.TrialSeconds <= 0 {
		return fmt.Errorf("trial-seconds must be positive, got %g", cfg.TrialSeconds)
	}
	if cfg.SpeedFactor <= 0 {
		return fmt.Errorf("speed-factor must be positive, got %g", cfg.SpeedFactor)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Charset == "" {
		return fmt.Errorf("charset must not be empty")
	}
	if cfg.ServerAddr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	return nil
}
