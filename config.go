package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andresousadotpt/seatkeys/internal/dispatch"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
	"github.com/andresousadotpt/seatkeys/internal/layout"
	"github.com/andresousadotpt/seatkeys/internal/session"
)

const configFile = "config.yml"

// AppConfig is config.yml. Zero-valued keys keep their defaults.
type AppConfig struct {
	// Layout bypasses the resolver when set.
	Layout     string `yaml:"layout"`
	LayoutEnv  string `yaml:"layout_env"`
	LayoutFile string `yaml:"layout_file"`
	LayoutKey  string `yaml:"layout_key"`

	Session string `yaml:"session"`
	Seat    string `yaml:"seat"`
	Grab    bool   `yaml:"grab"`
	Hotplug bool   `yaml:"hotplug"`

	Discipline string        `yaml:"discipline"`
	Tick       time.Duration `yaml:"tick"`
	Duration   time.Duration `yaml:"duration"`
	StopKey    string        `yaml:"stop_key"`
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		LayoutEnv:  layout.DefaultEnv,
		LayoutFile: layout.DefaultFile,
		LayoutKey:  layout.DefaultKey,
		Session:    session.ProviderAuto,
		Seat:       session.DefaultSeat,
		Hotplug:    true,
		Discipline: dispatch.DisciplineReactor,
		Tick:       dispatch.DefaultTick,
		StopKey:    "Escape",
	}
}

func configDir() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "seatkeys")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "seatkeys")
}

// LoadAppConfig reads dir/config.yml over the defaults. A missing file is
// not an error.
func LoadAppConfig(dir string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component accepts.
func (c *AppConfig) Validate() error {
	switch c.Session {
	case session.ProviderAuto, session.ProviderLogind, session.ProviderDirect:
	default:
		return fmt.Errorf("session: unknown provider %q", c.Session)
	}
	switch c.Discipline {
	case dispatch.DisciplineReactor, dispatch.DisciplinePoll:
	default:
		return fmt.Errorf("discipline: unknown discipline %q", c.Discipline)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick: must be positive, got %s", c.Tick)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration: must not be negative, got %s", c.Duration)
	}
	if _, ok := keymap.ParseKeysym(c.StopKey); !ok {
		return fmt.Errorf("stop_key: unknown keysym %q", c.StopKey)
	}
	return nil
}

// LayoutSources builds the resolver chain: an explicit layout, then the
// override variable, then the system keyboard file.
func (c *AppConfig) LayoutSources(log *slog.Logger) []layout.Source {
	var sources []layout.Source
	if c.Layout != "" {
		sources = append(sources, layout.Static{Layout: c.Layout})
	}
	return append(sources,
		layout.Env{Var: c.LayoutEnv},
		layout.File{Path: c.LayoutFile, Key: c.LayoutKey, Log: log},
	)
}
