// Package config loads and saves the moneyshape TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config holds all moneyshape configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Engine     EngineConfig     `toml:"engine"`
	Treemap    TreemapConfig    `toml:"treemap"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	Board     string `toml:"board,omitempty"`
	BoardsDir string `toml:"boards_dir,omitempty"`
	StateDB   string `toml:"state_db,omitempty"`
	LogLevel  string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogJSON   bool   `toml:"log_json"`
}

// EngineConfig tunes the synchronization pass and derived object placement.
type EngineConfig struct {
	MaxPasses     int     `toml:"max_passes" validate:"gte=1,lte=100"`
	SummaryOffset float64 `toml:"summary_offset" validate:"gte=0"`
	SummaryWidth  float64 `toml:"summary_width" validate:"gt=0"`
	SummaryHeight float64 `toml:"summary_height" validate:"gt=0"`
	SavingsGap    float64 `toml:"savings_gap" validate:"gte=0"`
}

// TreemapConfig holds "arrange as treemap" defaults.
type TreemapConfig struct {
	MinAspect float64 `toml:"min_aspect" validate:"gt=0"`
	MaxAspect float64 `toml:"max_aspect" validate:"gtefield=MinAspect"`
	Padding   float64 `toml:"padding" validate:"gte=0"`
	Round     bool    `toml:"round"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds the background sync service settings.
type DaemonConfig struct {
	Addr         string `toml:"addr" validate:"required,hostname_port"`
	EventsBuffer int    `toml:"events_buffer" validate:"gte=1"`
	DebounceMS   int    `toml:"debounce_ms" validate:"gte=0"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			LogLevel: "warn",
		},
		Engine: EngineConfig{
			MaxPasses:     8,
			SummaryOffset: 200,
			SummaryWidth:  300,
			SummaryHeight: 200,
			SavingsGap:    20,
		},
		Treemap: TreemapConfig{
			MinAspect: 0.25,
			MaxAspect: 4,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8731",
			EventsBuffer: 200,
			DebounceMS:   250,
		},
	}
}

var validate = validator.New()

// Validate checks every field and reports all failures at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "moneyshape")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "moneyshape")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory used for the state database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "moneyshape")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "moneyshape")
}

// StateDBPath returns the configured state database path or the default.
func StateDBPath(cfg Config) string {
	if cfg.General.StateDB != "" {
		return cfg.General.StateDB
	}
	return filepath.Join(DataDir(), "state.db")
}

// BoardPath returns the board to operate on: MONEYSHAPE_BOARD, then config.
func BoardPath(cfg Config) string {
	if p := os.Getenv("MONEYSHAPE_BOARD"); p != "" {
		return p
	}
	return cfg.General.Board
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads a config file at path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes cfg to path, creating its directory.
func SaveFile(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
